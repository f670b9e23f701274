package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 32},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Mixed", []float32{1, -1, 2}, []float32{1, 1, -2}, -4},
		{"Empty", []float32{}, []float32{}, 0},
		{"Single", []float32{2}, []float32{3}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dot(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-5)
		})
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"Scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"Orthogonal", []float32{1, 0, 0, 0}, []float32{0, 1, 0, 0}, 0},
		{"Opposite", []float32{1, -1}, []float32{-1, 1}, -1},
		{"NearlyParallel", []float32{1, 0, 0, 0}, []float32{1, 0, 0, 0.001}, 1 / math.Sqrt(1+0.001*0.001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-6)
			assert.LessOrEqual(t, got, 1.0)
			assert.GreaterOrEqual(t, got, -1.0)
		})
	}

	t.Run("ZeroNorm", func(t *testing.T) {
		_, err := Cosine([]float32{0, 0}, []float32{1, 0})
		assert.ErrorIs(t, err, ErrZeroNorm)

		_, err = Cosine([]float32{1, 0}, []float32{0, 0})
		assert.ErrorIs(t, err, ErrZeroNorm)
	})

	t.Run("LengthMismatch", func(t *testing.T) {
		_, err := Cosine([]float32{1, 0}, []float32{1, 0, 0})
		var lm *LengthMismatchError
		require.ErrorAs(t, err, &lm)
		assert.Equal(t, 2, lm.A)
		assert.Equal(t, 3, lm.B)
	})
}

func TestCheckFinite(t *testing.T) {
	require.NoError(t, CheckFinite([]float32{1, -2, 0}))
	assert.ErrorIs(t, CheckFinite([]float32{1, float32(math.NaN())}), ErrNonFinite)
	assert.ErrorIs(t, CheckFinite([]float32{float32(math.Inf(-1))}), ErrNonFinite)
}

func TestNormalizeL2(t *testing.T) {
	t.Run("InPlace", func(t *testing.T) {
		v := []float32{3, 4}
		ok := NormalizeL2InPlace(v)
		assert.True(t, ok)
		assert.InDelta(t, float32(0.6), v[0], 1e-5)
		assert.InDelta(t, float32(0.8), v[1], 1e-5)
		assert.InDelta(t, 1.0, Norm(v), 1e-6)

		vZero := []float32{0, 0}
		assert.False(t, NormalizeL2InPlace(vZero))

		vEmpty := []float32{}
		assert.False(t, NormalizeL2InPlace(vEmpty))
	})

	t.Run("Copy", func(t *testing.T) {
		v := []float32{1, 0}
		dst, ok := NormalizeL2Copy(v)
		assert.True(t, ok)
		assert.Equal(t, float32(1), dst[0])
		assert.NotSame(t, &v[0], &dst[0])

		dst, ok = NormalizeL2Copy([]float32{0, 0})
		assert.False(t, ok)
		assert.Nil(t, dst)
	})
}
