package store

import "go.ngs.io/grid-subset/internal/domain"

// GridLoader opens gridded variables from dataset files.
type GridLoader interface {
	// OpenGrid describes variable in the file at path. Values are read lazily.
	OpenGrid(path, variable string) (*domain.Grid, error)
}
