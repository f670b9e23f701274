package lsh

import (
	"fmt"
	"slices"

	"github.com/hupe1980/lshvec/distance"
)

// RecordVersion is the schema version written by ToRecord.
const RecordVersion = 1

// Record is the flat, serializable form of a Config.
type Record struct {
	Version        int           `json:"version" msgpack:"version"`
	ID             string        `json:"id" msgpack:"id"`
	NFeatures      int           `json:"n_features" msgpack:"n_features"`
	NPlanes        int           `json:"n_planes" msgpack:"n_planes"`
	BitStart       int           `json:"bit_start" msgpack:"bit_start"`
	BitScaleFactor int           `json:"bit_scale_factor" msgpack:"bit_scale_factor"`
	BitPolicy      BitPolicy     `json:"bit_policy" msgpack:"bit_policy"`
	Planes         []PlaneRecord `json:"planes" msgpack:"planes"`
}

// PlaneRecord holds one plane's row-major Bits x NFeatures matrix.
type PlaneRecord struct {
	ID   int       `json:"id" msgpack:"id"`
	Bits int       `json:"bits" msgpack:"bits"`
	Data []float32 `json:"data" msgpack:"data"`
}

// ToRecord returns the persisted form of c. The record shares no memory with c.
func (c *Config) ToRecord() Record {
	r := Record{
		Version:        RecordVersion,
		ID:             c.id,
		NFeatures:      c.params.NFeatures,
		NPlanes:        c.params.NPlanes,
		BitStart:       c.params.BitStart,
		BitScaleFactor: c.params.BitScaleFactor,
		BitPolicy:      c.params.BitPolicy,
		Planes:         make([]PlaneRecord, len(c.planes)),
	}
	for i, p := range c.planes {
		r.Planes[i] = PlaneRecord{ID: p.ID, Bits: p.Bits, Data: slices.Clone(p.data)}
	}
	return r
}

// FromRecord rebuilds a Config from its persisted form.
//
// Every plane must be present exactly once with the bit width its policy
// prescribes and a complete, finite matrix.
func FromRecord(r Record) (*Config, error) {
	if r.Version < 1 || r.Version > RecordVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, r.Version)
	}
	if r.ID == "" {
		return nil, invalidf("record has empty id")
	}

	params := Params{
		NFeatures:      r.NFeatures,
		NPlanes:        r.NPlanes,
		BitStart:       r.BitStart,
		BitScaleFactor: r.BitScaleFactor,
		BitPolicy:      r.BitPolicy,
	}.normalized()
	if err := params.validate(); err != nil {
		return nil, err
	}
	if len(r.Planes) != params.NPlanes {
		return nil, invalidf("record has %d planes, want %d", len(r.Planes), params.NPlanes)
	}

	planes := make([]Plane, params.NPlanes)
	seen := make([]bool, params.NPlanes)
	for _, pr := range r.Planes {
		if pr.ID < 0 || pr.ID >= params.NPlanes {
			return nil, invalidf("plane id %d out of range", pr.ID)
		}
		if seen[pr.ID] {
			return nil, invalidf("duplicate plane id %d", pr.ID)
		}
		seen[pr.ID] = true

		bits, err := params.BitPolicy.Bits(pr.ID, params.BitStart, params.BitScaleFactor)
		if err != nil {
			return nil, err
		}
		if pr.Bits != bits {
			return nil, invalidf("plane %d has %d bits, policy %s requires %d", pr.ID, pr.Bits, params.BitPolicy, bits)
		}
		if len(pr.Data) != bits*params.NFeatures {
			return nil, invalidf("plane %d matrix has %d values, want %dx%d", pr.ID, len(pr.Data), bits, params.NFeatures)
		}
		if err := distance.CheckFinite(pr.Data); err != nil {
			return nil, invalidf("plane %d: %v", pr.ID, err)
		}

		planes[pr.ID] = Plane{
			ID:       pr.ID,
			Bits:     bits,
			Features: params.NFeatures,
			data:     slices.Clone(pr.Data),
		}
	}

	return &Config{id: r.ID, params: params, planes: planes}, nil
}
