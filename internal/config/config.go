// Package config loads named regions and datasets from a TOML file.
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"go.ngs.io/grid-subset/internal/domain"
)

// Dataset locates a gridded variable on disk.
type Dataset struct {
	Path     string `toml:"path"`
	Variable string `toml:"variable"`
}

// Config holds the named regions and datasets available to callers.
type Config struct {
	Regions  map[string]domain.BoundingBox `toml:"regions"`
	Datasets map[string]Dataset            `toml:"datasets"`
}

// DefaultRegions returns the built-in region presets.
// The Andes box uses the 0..360 longitude convention.
func DefaultRegions() map[string]domain.BoundingBox {
	return map[string]domain.BoundingBox{
		"andes":     {LatMin: -32, LatMax: -14, LonMin: 360 - 78, LonMax: 360 - 62},
		"himalayas": {LatMin: 15, LatMax: 55, LonMin: 60, LonMax: 120},
	}
}

// Default returns a configuration with the preset regions and no datasets.
func Default() *Config {
	return &Config{
		Regions:  DefaultRegions(),
		Datasets: map[string]Dataset{},
	}
}

// Load reads a TOML configuration. Regions in the file override presets of the
// same name; relative dataset paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	var file Config
	md, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in config %s: %s", path, strings.Join(keys, ", "))
	}

	cfg := Default()
	for name, box := range file.Regions {
		cfg.Regions[strings.ToLower(name)] = box
	}
	baseDir := filepath.Dir(path)
	for name, ds := range file.Datasets {
		if ds.Path != "" && !filepath.IsAbs(ds.Path) {
			ds.Path = filepath.Join(baseDir, ds.Path)
		}
		cfg.Datasets[name] = ds
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every region and dataset entry.
func (c *Config) Validate() error {
	for _, name := range sortedKeys(c.Regions) {
		if err := c.Regions[name].Validate(); err != nil {
			return fmt.Errorf("region %q: %w", name, err)
		}
	}
	for _, name := range sortedKeys(c.Datasets) {
		ds := c.Datasets[name]
		if ds.Path == "" || ds.Variable == "" {
			return fmt.Errorf("dataset %q: path and variable are required", name)
		}
	}
	return nil
}

// Region looks up a region by case-insensitive name.
func (c *Config) Region(name string) (domain.BoundingBox, bool) {
	box, ok := c.Regions[strings.ToLower(name)]
	return box, ok
}

// RegionNames returns the region names in sorted order.
func (c *Config) RegionNames() []string {
	return sortedKeys(c.Regions)
}

// DatasetNames returns the dataset names in sorted order.
func (c *Config) DatasetNames() []string {
	return sortedKeys(c.Datasets)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
