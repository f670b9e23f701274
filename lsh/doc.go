// Package lsh defines the random-hyperplane hash family of an index.
//
// A Config owns one Plane per plane id. Each plane is a set of unit-length
// hyperplanes; hashing a vector against a plane yields one bit per hyperplane
// (the sign of the projection) and the bits form the bucket key:
//
//	cfg, err := lsh.Generate("docs", lsh.Params{
//	    NFeatures:      1536,
//	    NPlanes:        2,
//	    BitStart:       10,
//	    BitScaleFactor: 4,
//	})
//	keys, err := cfg.BucketKeys(vec) // one "plane:code" key per plane
//
// Planes are sampled once in Generate and travel with the config through
// ToRecord/FromRecord. Regenerating them would invalidate every bucket
// assignment of a live index, so a Config has no way to do it.
package lsh
