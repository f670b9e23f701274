package lsh

import (
	"encoding/json"
	"testing"

	"github.com/hupe1980/lshvec/distance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	cfg, err := Generate("idx", Params{NFeatures: 4, NPlanes: 2, BitStart: 2, BitScaleFactor: 1}, WithSeed(1))
	require.NoError(t, err)

	assert.Equal(t, "idx", cfg.ID())
	assert.Equal(t, 4, cfg.NFeatures())
	assert.Equal(t, 2, cfg.NPlanes())
	assert.Equal(t, LinearBits, cfg.Params().BitPolicy)

	p0, ok := cfg.Plane(0)
	require.True(t, ok)
	assert.Equal(t, 2, p0.Bits)
	p1, ok := cfg.Plane(1)
	require.True(t, ok)
	assert.Equal(t, 3, p1.Bits)

	_, ok = cfg.Plane(2)
	assert.False(t, ok)

	for _, p := range []Plane{p0, p1} {
		assert.Len(t, p.Data(), p.Bits*4)
		for i := range p.Bits {
			assert.InDelta(t, 1.0, distance.Norm(p.Row(i)), 1e-5)
		}
	}
}

func TestGenerateDeterministicSeed(t *testing.T) {
	params := Params{NFeatures: 16, NPlanes: 3, BitStart: 4, BitScaleFactor: 2}

	a, err := Generate("idx", params, WithSeed(42))
	require.NoError(t, err)
	b, err := Generate("idx", params, WithSeed(42))
	require.NoError(t, err)
	c, err := Generate("idx", params, WithSeed(43))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestGenerateInvalid(t *testing.T) {
	tests := []struct {
		name   string
		id     string
		params Params
	}{
		{"EmptyID", "", Params{NFeatures: 4, NPlanes: 1, BitStart: 1}},
		{"ZeroFeatures", "x", Params{NFeatures: 0, NPlanes: 1, BitStart: 1}},
		{"ZeroPlanes", "x", Params{NFeatures: 4, NPlanes: 0, BitStart: 1}},
		{"NegativePlanes", "x", Params{NFeatures: 4, NPlanes: -1, BitStart: 1}},
		{"ZeroBitStart", "x", Params{NFeatures: 4, NPlanes: 1, BitStart: 0}},
		{"NegativeScale", "x", Params{NFeatures: 4, NPlanes: 1, BitStart: 1, BitScaleFactor: -1}},
		{"UnknownPolicy", "x", Params{NFeatures: 4, NPlanes: 1, BitStart: 1, BitPolicy: "cubic"}},
		{"TooWide", "x", Params{NFeatures: 4, NPlanes: 1, BitStart: MaxBits + 1}},
		{"GeometricZeroScale", "x", Params{NFeatures: 4, NPlanes: 2, BitStart: 2, BitPolicy: GeometricBits}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Generate(tt.id, tt.params)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, cfg)
		})
	}
}

func TestBitPolicy(t *testing.T) {
	tests := []struct {
		name     string
		policy   BitPolicy
		plane    int
		start    int
		scale    int
		expected int
	}{
		{"LinearPlane0", LinearBits, 0, 10, 4, 10},
		{"LinearPlane3", LinearBits, 3, 10, 4, 22},
		{"LinearConstant", LinearBits, 5, 8, 0, 8},
		{"DefaultIsLinear", "", 2, 2, 1, 4},
		{"GeometricPlane0", GeometricBits, 0, 3, 2, 3},
		{"GeometricPlane3", GeometricBits, 3, 3, 2, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bits, err := tt.policy.Bits(tt.plane, tt.start, tt.scale)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, bits)
		})
	}

	t.Run("Overflow", func(t *testing.T) {
		_, err := LinearBits.Bits(1000, 10, 10)
		assert.ErrorIs(t, err, ErrInvalidConfig)

		_, err = GeometricBits.Bits(20, 2, 2)
		assert.ErrorIs(t, err, ErrInvalidConfig)

		_, err = GeometricBits.Bits(1, 4, 1<<62+1)
		assert.ErrorIs(t, err, ErrInvalidConfig)

		_, err = LinearBits.Bits(1, 4, 1<<62+1)
		assert.ErrorIs(t, err, ErrInvalidConfig)

		bits, err := GeometricBits.Bits(1<<40, 8, 1)
		require.NoError(t, err)
		assert.Equal(t, 8, bits)
	})
}

func TestRecordRoundTrip(t *testing.T) {
	for _, params := range []Params{
		{NFeatures: 4, NPlanes: 2, BitStart: 2, BitScaleFactor: 1},
		{NFeatures: 32, NPlanes: 3, BitStart: 5, BitScaleFactor: 3},
		{NFeatures: 7, NPlanes: 3, BitStart: 2, BitScaleFactor: 2, BitPolicy: GeometricBits},
	} {
		cfg, err := Generate("rt", params, WithSeed(7))
		require.NoError(t, err)

		restored, err := FromRecord(cfg.ToRecord())
		require.NoError(t, err)
		assert.True(t, cfg.Equal(restored))

		// The record must survive a text encoding without losing float32 bits.
		data, err := json.Marshal(cfg.ToRecord())
		require.NoError(t, err)
		var rec Record
		require.NoError(t, json.Unmarshal(data, &rec))
		restored, err = FromRecord(rec)
		require.NoError(t, err)
		assert.True(t, cfg.Equal(restored))
	}
}

func TestRecordIsDetached(t *testing.T) {
	cfg, err := Generate("rt", Params{NFeatures: 4, NPlanes: 1, BitStart: 2}, WithSeed(1))
	require.NoError(t, err)

	rec := cfg.ToRecord()
	rec.Planes[0].Data[0] = 99

	p, _ := cfg.Plane(0)
	assert.NotEqual(t, float32(99), p.Data()[0])
}

func TestFromRecordInvalid(t *testing.T) {
	cfg, err := Generate("rt", Params{NFeatures: 4, NPlanes: 2, BitStart: 2, BitScaleFactor: 1}, WithSeed(1))
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(r *Record)
		target error
	}{
		{"Version0", func(r *Record) { r.Version = 0 }, ErrUnsupportedVersion},
		{"FutureVersion", func(r *Record) { r.Version = RecordVersion + 1 }, ErrUnsupportedVersion},
		{"EmptyID", func(r *Record) { r.ID = "" }, ErrInvalidConfig},
		{"MissingPlane", func(r *Record) { r.Planes = r.Planes[:1] }, ErrInvalidConfig},
		{"DuplicatePlane", func(r *Record) { r.Planes[1] = r.Planes[0] }, ErrInvalidConfig},
		{"PlaneOutOfRange", func(r *Record) { r.Planes[1].ID = 5 }, ErrInvalidConfig},
		{"WrongBits", func(r *Record) { r.Planes[1].Bits = 7 }, ErrInvalidConfig},
		{"ShortMatrix", func(r *Record) { r.Planes[0].Data = r.Planes[0].Data[:3] }, ErrInvalidConfig},
		{"BadParams", func(r *Record) { r.NFeatures = 0 }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := cfg.ToRecord()
			tt.mutate(&rec)
			_, err := FromRecord(rec)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}
