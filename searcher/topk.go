package searcher

import (
	"errors"

	"github.com/hupe1980/lshvec/distance"
)

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("searcher: k must be positive")

// TopK returns the k candidates most cosine-similar to query, best first.
//
// Candidates with zero norm have no defined similarity and are skipped.
// A zero-norm query fails with distance.ErrZeroNorm and a candidate of the
// wrong length fails with *distance.LengthMismatchError.
func TopK(query []float32, candidates [][]float32, k int) ([]Scored, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	qn := distance.Norm(query)
	if qn == 0 {
		return nil, distance.ErrZeroNorm
	}

	q := NewQueue(k)
	for i, c := range candidates {
		if len(c) != len(query) {
			return nil, &distance.LengthMismatchError{A: len(query), B: len(c)}
		}
		cn := distance.Norm(c)
		if cn == 0 {
			continue
		}
		q.Offer(Scored{Index: i, Score: distance.CosineWithNorms(query, c, qn, cn)})
	}
	return q.Sorted(), nil
}
