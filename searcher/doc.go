// Package searcher selects the k best-scoring candidates without sorting the
// whole candidate set.
//
// TopK scores candidates by cosine similarity against a query and keeps the
// running best k in a bounded min-heap, so selection costs O(n log k).
// Results come back in descending score order; equal scores are ordered by
// ascending candidate index, which makes the output deterministic.
package searcher
