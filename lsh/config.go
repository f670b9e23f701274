package lsh

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/hupe1980/lshvec/distance"
)

// Params are the user-supplied parameters of a hash family.
type Params struct {
	// NFeatures is the dimensionality of every indexed vector.
	NFeatures int
	// NPlanes is the number of independent hash functions (plane ids 0..NPlanes-1).
	NPlanes int
	// BitStart is the bit width of plane 0.
	BitStart int
	// BitScaleFactor controls how the bit width grows with the plane id.
	BitScaleFactor int
	// BitPolicy selects the growth rule. Empty means LinearBits.
	BitPolicy BitPolicy
}

func (p Params) normalized() Params {
	if p.BitPolicy == "" {
		p.BitPolicy = LinearBits
	}
	return p
}

func (p Params) validate() error {
	switch {
	case p.NFeatures <= 0:
		return invalidf("n_features must be positive, got %d", p.NFeatures)
	case p.NPlanes <= 0:
		return invalidf("n_planes must be positive, got %d", p.NPlanes)
	case p.BitStart <= 0:
		return invalidf("bit_start must be positive, got %d", p.BitStart)
	case p.BitScaleFactor < 0:
		return invalidf("bit_scale_factor must not be negative, got %d", p.BitScaleFactor)
	case !p.BitPolicy.valid():
		return invalidf("unknown bit policy %q", string(p.BitPolicy))
	}
	return nil
}

// Plane is one hash function: Bits unit hyperplanes of dimension Features.
type Plane struct {
	ID       int
	Bits     int
	Features int
	data     []float32 // row-major Bits x Features
}

// Row returns a copy of hyperplane i.
func (p Plane) Row(i int) []float32 {
	return slices.Clone(p.row(i))
}

// Data returns a copy of the row-major hyperplane matrix.
func (p Plane) Data() []float32 {
	return slices.Clone(p.data)
}

func (p Plane) row(i int) []float32 {
	return p.data[i*p.Features : (i+1)*p.Features]
}

// Config is the immutable hash family of one index.
//
// A Config can only be obtained from Generate or FromRecord, so every Config
// carries its planes.
type Config struct {
	id     string
	params Params
	planes []Plane // planes[i].ID == i
}

// ID returns the index id.
func (c *Config) ID() string { return c.id }

// Params returns the generation parameters.
func (c *Config) Params() Params { return c.params }

// NFeatures returns the configured dimensionality.
func (c *Config) NFeatures() int { return c.params.NFeatures }

// NPlanes returns the number of planes.
func (c *Config) NPlanes() int { return len(c.planes) }

// Plane returns plane id.
func (c *Config) Plane(id int) (Plane, bool) {
	if id < 0 || id >= len(c.planes) {
		return Plane{}, false
	}
	return c.planes[id], true
}

// Equal reports whether both configs describe the same hash family,
// comparing hyperplanes bit for bit.
func (c *Config) Equal(o *Config) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.id != o.id || c.params != o.params || len(c.planes) != len(o.planes) {
		return false
	}
	for i := range c.planes {
		a, b := c.planes[i], o.planes[i]
		if a.ID != b.ID || a.Bits != b.Bits || a.Features != b.Features || len(a.data) != len(b.data) {
			return false
		}
		for j := range a.data {
			if math.Float32bits(a.data[j]) != math.Float32bits(b.data[j]) {
				return false
			}
		}
	}
	return true
}

type generateOptions struct {
	seed    uint64
	hasSeed bool
}

// GenerateOption configures Generate.
type GenerateOption func(*generateOptions)

// WithSeed makes plane generation deterministic.
func WithSeed(seed uint64) GenerateOption {
	return func(o *generateOptions) {
		o.seed = seed
		o.hasSeed = true
	}
}

// Generate samples the hyperplanes for a new index.
//
// For every plane id p in [0, NPlanes) it draws bits(p) vectors from a
// standard normal distribution and normalizes them to unit length.
func Generate(id string, params Params, opts ...GenerateOption) (*Config, error) {
	if id == "" {
		return nil, invalidf("index id must not be empty")
	}
	params = params.normalized()
	if err := params.validate(); err != nil {
		return nil, err
	}

	o := generateOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	if !o.hasSeed {
		o.seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15))

	planes := make([]Plane, params.NPlanes)
	for p := range planes {
		bits, err := params.BitPolicy.Bits(p, params.BitStart, params.BitScaleFactor)
		if err != nil {
			return nil, err
		}
		plane := Plane{
			ID:       p,
			Bits:     bits,
			Features: params.NFeatures,
			data:     make([]float32, bits*params.NFeatures),
		}
		for i := range bits {
			row := plane.row(i)
			for {
				for j := range row {
					row[j] = float32(rng.NormFloat64())
				}
				if distance.NormalizeL2InPlace(row) {
					break
				}
			}
		}
		planes[p] = plane
	}

	return &Config{id: id, params: params, planes: planes}, nil
}
