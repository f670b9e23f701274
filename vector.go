package lshvec

import "strings"

const (
	// MetadataPrefix marks metadata rows in the vector table. Vector ids
	// must not start with it.
	MetadataPrefix = "meta#"

	// BucketColumn is the set column holding the vector ids of a bucket.
	BucketColumn = "ids"
)

// Vector is an indexed item.
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Result is a search hit.
type Result struct {
	ID     string
	Values []float32
	// Score is the cosine similarity to the query, in [-1, 1].
	Score float64
}

// MetadataResult is a search hit joined with the metadata stored through
// InsertMetadata.
type MetadataResult struct {
	Result
	Metadata map[string]any
}

func metadataKey(id string) string {
	return MetadataPrefix + id
}

func validateID(id string) error {
	if id == "" {
		return configErrorf("vector id must not be empty")
	}
	if strings.HasPrefix(id, MetadataPrefix) {
		return configErrorf("vector id %q uses reserved prefix %q", id, MetadataPrefix)
	}
	return nil
}
