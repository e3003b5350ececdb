package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"go.ngs.io/grid-subset/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subset.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultRegions(t *testing.T) {
	cfg := Default()
	require.Equal(t, []string{"andes", "himalayas"}, cfg.RegionNames())

	andes, ok := cfg.Region("ANDES")
	require.True(t, ok)
	require.Equal(t, domain.BoundingBox{LatMin: -32, LatMax: -14, LonMin: 282, LonMax: 298}, andes)

	// Callers get their own copy of the presets.
	DefaultRegions()["andes"] = domain.BoundingBox{}
	andes, _ = Default().Region("andes")
	require.Equal(t, 282.0, andes.LonMin)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[regions.pacific]
lat_min = -10.0
lat_max = 10.0
lon_min = 170.0
lon_max = 190.0

[regions.himalayas]
lat_min = 25.0
lat_max = 40.0
lon_min = 70.0
lon_max = 100.0

[datasets.era5]
path = "data/era5.nc"
variable = "t2m"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"andes", "himalayas", "pacific"}, cfg.RegionNames())

	h, _ := cfg.Region("himalayas")
	require.Equal(t, 25.0, h.LatMin)

	ds := cfg.Datasets["era5"]
	require.Equal(t, filepath.Join(filepath.Dir(path), "data", "era5.nc"), ds.Path)
	require.Equal(t, "t2m", ds.Variable)
	require.Equal(t, []string{"era5"}, cfg.DatasetNames())
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := map[string]string{
		"malformed region": "[regions.bad]\nlat_min = 10.0\nlat_max = -10.0\nlon_min = 0.0\nlon_max = 1.0\n",
		"unknown key":      "[regions.bad]\nlatmin = 1.0\n",
		"missing variable": "[datasets.era5]\npath = \"era5.nc\"\n",
		"syntax":           "[regions\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
