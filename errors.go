package lshvec

import (
	"errors"
	"fmt"

	"github.com/hupe1980/lshvec/catalog"
	"github.com/hupe1980/lshvec/distance"
	"github.com/hupe1980/lshvec/kvstore"
	"github.com/hupe1980/lshvec/lsh"
	"github.com/hupe1980/lshvec/searcher"
)

var (
	// ErrConfiguration is matched by every error caused by invalid
	// parameters, ids or vector dimensions.
	ErrConfiguration = errors.New("lshvec: configuration error")

	// ErrNotFound is returned for unknown vector or index ids.
	ErrNotFound = errors.New("lshvec: not found")

	// ErrNumeric is returned for vectors without a defined similarity
	// (zero norm) or with non-finite values.
	ErrNumeric = errors.New("lshvec: numeric error")

	// ErrExists is returned by CreateIndex when the index id is taken.
	ErrExists = errors.New("lshvec: index already exists")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = fmt.Errorf("%w: k must be positive", ErrConfiguration)
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// It matches ErrConfiguration. The original underlying error (if any) can be
// accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrConfiguration) true.
func (e *ErrDimensionMismatch) Is(target error) bool { return target == ErrConfiguration }

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Already translated.
	if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrNumeric) || errors.Is(err, ErrExists) {
		return err
	}

	if errors.Is(err, kvstore.ErrNotFound) || errors.Is(err, catalog.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, catalog.ErrExists) {
		return fmt.Errorf("%w: %w", ErrExists, err)
	}

	var dm *lsh.DimensionMismatchError
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var lm *distance.LengthMismatchError
	if errors.As(err, &lm) {
		return &ErrDimensionMismatch{Expected: lm.A, Actual: lm.B, cause: err}
	}
	if errors.Is(err, searcher.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}
	if errors.Is(err, lsh.ErrInvalidConfig) || errors.Is(err, lsh.ErrUnknownPlane) ||
		errors.Is(err, lsh.ErrUnsupportedVersion) || errors.Is(err, kvstore.ErrInvalidID) ||
		errors.Is(err, kvstore.ErrInvalidColumn) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	if errors.Is(err, distance.ErrZeroNorm) || errors.Is(err, distance.ErrNonFinite) {
		return fmt.Errorf("%w: %w", ErrNumeric, err)
	}

	// Storage errors propagate unchanged.
	return err
}
