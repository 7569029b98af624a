package analysis

import "errors"

var (
	// ErrInsufficientData is returned when a series is shorter than a calculation's minimum window
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInvalidConfiguration is returned for unknown methods or non-positive parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
