// Package main provides the grid-subset command line tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"go.ngs.io/grid-subset/internal/adapter/store/gridfile"
	"go.ngs.io/grid-subset/internal/config"
	"go.ngs.io/grid-subset/internal/domain"
	"go.ngs.io/grid-subset/internal/usecase"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "TOML file with [regions.*] and [datasets.*]",
		Sources: cli.EnvVars("CONFIG_PATH"),
	}
	regionFlag = &cli.StringFlag{
		Name:    "region",
		Aliases: []string{"r"},
		Usage:   "named region (see the regions command)",
	}
	boundsFlag = &cli.StringFlag{
		Name:    "bounds",
		Aliases: []string{"b"},
		Usage:   "lat_min,lat_max,lon_min,lon_max in degrees",
	}
	timeFlag = &cli.StringFlag{
		Name:    "time",
		Aliases: []string{"t"},
		Usage:   "time step index (negative counts from the end)",
	}
	valuesFlag = &cli.BoolFlag{
		Name:  "values",
		Usage: "include the selected values in the output",
	}
)

func main() {
	cmd := &cli.Command{
		Name:  "grid-subset",
		Usage: "Extract rectangular subsets from gridded NetCDF datasets",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			newSelectCommand("bbox", "Select a bounding box (handles 0..360 grids and the antimeridian)", usecase.ModeBoundingBox),
			newSelectCommand("mask", "Mask by raw lat/lon comparison, without longitude wrapping", usecase.ModeMask),
			{
				Name:   "regions",
				Usage:  "List named regions",
				Action: regionsAction,
			},
			{
				Name:      "vars",
				Usage:     "List gridded variables in a NetCDF file",
				ArgsUsage: "<file>",
				Action:    varsAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newSelectCommand(name, usage string, mode usecase.Mode) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<file> <variable>",
		Flags:     []cli.Flag{regionFlag, boundsFlag, timeFlag, valuesFlag},
		Action: func(_ context.Context, cmd *cli.Command) error {
			return selectAction(cmd, mode)
		},
	}
}

func selectAction(cmd *cli.Command, mode usecase.Mode) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("expected 2 arguments: file and variable")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	bounds, err := boundsFromCommand(cmd, cfg)
	if err != nil {
		return err
	}

	req := usecase.ExtractRequest{Bounds: bounds, Mode: mode}
	if cmd.IsSet(timeFlag.Name) {
		idx, err := strconv.Atoi(cmd.String(timeFlag.Name))
		if err != nil {
			return fmt.Errorf("invalid --time: %w", err)
		}
		req.TimeIndex = &idx
	}

	store := gridfile.NewStore()
	grid, err := store.OpenGrid(cmd.Args().Get(0), cmd.Args().Get(1))
	if err != nil {
		return err
	}

	subsetUC := usecase.NewSubsetUseCase(log.New(os.Stderr, "", 0))
	extractUC := usecase.NewExtractionUseCase(cfg, store, subsetUC)
	sel, err := extractUC.ExtractGrid(grid, req)
	if err != nil {
		return err
	}

	response, err := usecase.NewSubsetResponse(sel, cmd.Bool(valuesFlag.Name))
	if err != nil {
		return err
	}
	return printJSON(response)
}

func regionsAction(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := make(map[string]domain.BoundingBox, len(cfg.Regions))
	for _, name := range cfg.RegionNames() {
		out[name] = cfg.Regions[name]
	}
	return printJSON(out)
}

func varsAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected 1 argument: file")
	}
	vars, err := gridfile.NewStore().ListVariables(cmd.Args().First())
	if err != nil {
		return err
	}
	return printJSON(vars)
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String(configFlag.Name)
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func boundsFromCommand(cmd *cli.Command, cfg *config.Config) (domain.BoundingBox, error) {
	region := cmd.String(regionFlag.Name)
	bounds := cmd.String(boundsFlag.Name)
	switch {
	case region != "" && bounds != "":
		return domain.BoundingBox{}, fmt.Errorf("--region and --bounds are mutually exclusive")
	case region != "":
		box, ok := cfg.Region(region)
		if !ok {
			return domain.BoundingBox{}, fmt.Errorf("unknown region %q", region)
		}
		return box, nil
	case bounds != "":
		return domain.ParseBoundingBox(bounds)
	}
	return domain.BoundingBox{}, fmt.Errorf("one of --region or --bounds is required")
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
