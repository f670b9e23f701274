package lsh

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned when index parameters or a persisted record are invalid.
	ErrInvalidConfig = errors.New("lsh: invalid configuration")

	// ErrUnknownPlane is returned when hashing against a plane id the config does not define.
	ErrUnknownPlane = errors.New("lsh: unknown plane")

	// ErrUnsupportedVersion is returned by FromRecord for record versions this package cannot read.
	ErrUnsupportedVersion = errors.New("lsh: unsupported record version")
)

// DimensionMismatchError indicates a vector whose length differs from the configured feature count.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("lsh: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
