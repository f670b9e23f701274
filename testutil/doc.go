// Package testutil provides testing utilities for lshvec.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random vectors, computing exact
// nearest neighbors, and verifying search recall.
//
// # Random Vector Generation
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UnitVectors(100, 128)
//	near := rng.Perturb(vecs[0], 0.01)
//
// # Exact Search (Ground Truth)
//
//	truth := testutil.ExactTopK(query, ids, vecs, k)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(truth, approx)
package testutil
