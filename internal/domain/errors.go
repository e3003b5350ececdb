package domain

import "errors"

var (
	// ErrInvalidArgument marks a missing or contradictory request parameter.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAxisNotFound marks a dataset lacking a required axis.
	ErrAxisNotFound = errors.New("axis not found")

	// ErrMalformedBoundingBox marks a bounding box with lat_min > lat_max or NaN bounds.
	ErrMalformedBoundingBox = errors.New("malformed bounding box")

	// ErrTimeIndexOutOfRange marks a positional time index past either end of the axis.
	ErrTimeIndexOutOfRange = errors.New("time index out of range")
)
