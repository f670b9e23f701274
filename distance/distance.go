package distance

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var (
	// ErrZeroNorm is returned when a similarity is requested for a vector with zero L2 norm.
	ErrZeroNorm = errors.New("distance: zero-norm vector")

	// ErrNonFinite is returned when a vector contains NaN or Inf values.
	ErrNonFinite = errors.New("distance: non-finite value")
)

// LengthMismatchError reports two vectors of different length.
type LengthMismatchError struct {
	A, B int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("distance: length mismatch: %d != %d", e.A, e.B)
}

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the L2 norm of v, accumulated in float64.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns dot(a,b) / (|a|*|b|) clamped to [-1, 1].
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &LengthMismatchError{A: len(a), B: len(b)}
	}
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0, ErrZeroNorm
	}
	return CosineWithNorms(a, b, na, nb), nil
}

// CosineWithNorms is Cosine with precomputed, non-zero norms.
// Lengths are not checked.
func CosineWithNorms(a, b []float32, na, nb float64) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	sim := dot / (na * nb)
	// Rounding can push parallel vectors slightly past 1.
	return math.Max(-1, math.Min(1, sim))
}

// CheckFinite returns ErrNonFinite if v contains NaN or Inf.
func CheckFinite(v []float32) error {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w at position %d", ErrNonFinite, i)
		}
	}
	return nil
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	norm := Norm(v)
	if norm == 0 {
		return false
	}
	inv := 1 / norm
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return true
}

// NormalizeL2Copy returns a normalized copy of src.
// Returns false if src has zero L2 norm.
func NormalizeL2Copy(src []float32) ([]float32, bool) {
	dst := slices.Clone(src)
	if !NormalizeL2InPlace(dst) {
		return nil, false
	}
	return dst, true
}
