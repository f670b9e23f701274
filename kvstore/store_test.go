package kvstore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateColumn(t *testing.T) {
	assert.NoError(t, ValidateColumn("ids"))
	for _, c := range []string{"", AttrID, AttrVector, AttrMetadata, AttrData} {
		assert.ErrorIs(t, ValidateColumn(c), ErrInvalidColumn, c)
	}
}

func TestUnionSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, UnionSorted([]string{"c", "a"}, []string{"b", "a"}))
	assert.Empty(t, UnionSorted(nil, nil))
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, UniqueIDs([]string{"b", "a", "b", "c", "a"}))
}

func TestLastWins(t *testing.T) {
	rs := LastWins([]Record{{ID: "a", Data: []byte("1")}, {ID: "b"}, {ID: "a", Data: []byte("2")}})
	require.Len(t, rs, 2)
	assert.Equal(t, "b", rs[0].ID)
	assert.Equal(t, []byte("2"), rs[1].Data)
}

func TestInOrder(t *testing.T) {
	found := map[string]Record{"a": {ID: "a"}, "c": {ID: "c"}}
	got := InOrder([]string{"c", "b", "a", "c"}, found)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestRecordClone(t *testing.T) {
	r := Record{ID: "x", Vector: []float32{1}, Sets: map[string][]string{"ids": {"a"}}}
	c := r.Clone()
	c.Vector[0] = 2
	c.Sets["ids"][0] = "b"
	assert.Equal(t, float32(1), r.Vector[0])
	assert.Equal(t, "a", r.Sets["ids"][0])
}

func TestEncodeRecordRoundTrip(t *testing.T) {
	in := Record{
		ID:       "v",
		Vector:   []float32{float32(math.Pi), -0.0001, float32(math.MaxFloat32)},
		Metadata: map[string]any{"n": float64(1.5), "s": "x"},
		Data:     []byte("payload"),
		Sets:     map[string][]string{"ids": {"a", "b"}},
	}
	b, err := EncodeRecord(in)
	require.NoError(t, err)
	out, err := DecodeRecord(b)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeVectorRejectsTruncated(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)

	v, err := DecodeVector(EncodeVector([]float32{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)
}

func TestNormalizeSets(t *testing.T) {
	got := NormalizeSets(map[string][]string{"a": {"y", "x", "y"}, "empty": nil})
	assert.Equal(t, map[string][]string{"a": {"x", "y"}}, got)
	assert.Nil(t, NormalizeSets(map[string][]string{"e": {}}))
}
