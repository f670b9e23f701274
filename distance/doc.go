// Package distance provides the vector math used for hashing and re-ranking.
//
// Projections for hashing use Dot. Re-ranking uses Cosine, which accumulates
// in float64 and rejects zero-norm inputs with ErrZeroNorm instead of
// dividing by zero.
//
// # Usage
//
//	sim, err := distance.Cosine(a, b)
//	if errors.Is(err, distance.ErrZeroNorm) {
//	    // degenerate vector
//	}
//	ok := distance.NormalizeL2InPlace(vec)
package distance
