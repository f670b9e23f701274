package lshvec

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/hupe1980/lshvec/distance"
	"github.com/hupe1980/lshvec/searcher"
)

// Search returns up to k stored vectors most cosine-similar to query,
// best first.
//
// Candidates are the vectors sharing at least one bucket with the query.
// They are re-ranked exactly, ties going to the lexicographically smaller
// id. Stored vectors with zero norm or a wrong length, which only another
// writer can produce, are skipped.
func (i *Index) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	start := time.Now()
	results, candidates, err := i.search(ctx, query, k)
	i.opts.metricsCollector.RecordSearch(k, candidates, time.Since(start), err)
	i.logger.LogSearch(ctx, k, candidates, len(results), err)
	return results, err
}

func (i *Index) search(ctx context.Context, query []float32, k int) ([]Result, int, error) {
	if k <= 0 {
		return nil, 0, ErrInvalidK
	}
	if len(query) != i.cfg.NFeatures() {
		return nil, 0, &ErrDimensionMismatch{Expected: i.cfg.NFeatures(), Actual: len(query)}
	}
	if err := distance.CheckFinite(query); err != nil {
		return nil, 0, translateError(err)
	}
	if distance.Norm(query) == 0 {
		return nil, 0, translateError(distance.ErrZeroNorm)
	}

	ids, err := i.candidates(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return []Result{}, 0, nil
	}

	records, err := i.vectors.GetBulk(ctx, ids)
	if err != nil {
		return nil, len(ids), err
	}

	rankedIDs := make([]string, 0, len(records))
	vectors := make([][]float32, 0, len(records))
	for _, r := range records {
		switch {
		case len(r.Vector) != i.cfg.NFeatures():
			i.logger.LogSkippedCandidate(ctx, r.ID, "dimension mismatch")
			continue
		case distance.Norm(r.Vector) == 0:
			i.logger.LogSkippedCandidate(ctx, r.ID, "zero norm")
			continue
		}
		rankedIDs = append(rankedIDs, r.ID)
		vectors = append(vectors, r.Vector)
	}

	top, err := searcher.TopK(query, vectors, k)
	if err != nil {
		return nil, len(ids), translateError(err)
	}
	results := make([]Result, len(top))
	for n, s := range top {
		results[n] = Result{ID: rankedIDs[s.Index], Values: vectors[s.Index], Score: s.Score}
	}
	return results, len(ids), nil
}

// candidates returns the sorted union of the ids in the query's buckets.
func (i *Index) candidates(ctx context.Context, query []float32) ([]string, error) {
	keys, err := i.cfg.BucketKeys(query)
	if err != nil {
		return nil, translateError(err)
	}
	buckets, err := i.buckets.GetBulk(ctx, keys)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, b := range buckets {
		members := b.Set(BucketColumn)
		if limit := i.opts.maxCandidatesPerBucket; limit > 0 && len(members) > limit {
			members = members[:limit]
		}
		for _, id := range members {
			seen[id] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

// SearchWithMetadata runs Search and joins each hit with the metadata
// stored through InsertMetadata. Hits without metadata are dropped; the
// order of the rest is kept.
func (i *Index) SearchWithMetadata(ctx context.Context, query []float32, k int) ([]MetadataResult, error) {
	results, err := i.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []MetadataResult{}, nil
	}

	keys := make([]string, len(results))
	for n, r := range results {
		keys[n] = metadataKey(r.ID)
	}
	rows, err := i.vectors.GetBulk(ctx, keys)
	if err != nil {
		return nil, err
	}
	metadata := make(map[string]map[string]any, len(rows))
	for _, row := range rows {
		md := row.Metadata
		if md == nil {
			md = map[string]any{}
		}
		metadata[row.ID] = md
	}

	out := make([]MetadataResult, 0, len(results))
	for _, r := range results {
		md, ok := metadata[metadataKey(r.ID)]
		if !ok {
			continue
		}
		out = append(out, MetadataResult{Result: r, Metadata: md})
	}
	return out, nil
}
