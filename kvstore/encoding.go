package kvstore

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/lshvec/codec"
)

// storedRecord is the byte layout shared by the embedded backends.
// Metadata is kept as JSON so every backend decodes numbers as float64.
type storedRecord struct {
	ID       string              `msgpack:"i"`
	Vector   []byte              `msgpack:"v,omitempty"`
	Metadata []byte              `msgpack:"m,omitempty"`
	Data     []byte              `msgpack:"d,omitempty"`
	Sets     map[string][]string `msgpack:"s,omitempty"`
}

// EncodeRecord serializes r with msgpack.
func EncodeRecord(r Record) ([]byte, error) {
	meta, err := EncodeMetadata(r.Metadata)
	if err != nil {
		return nil, err
	}
	return codec.Msgpack{}.Marshal(storedRecord{
		ID:       r.ID,
		Vector:   EncodeVector(r.Vector),
		Metadata: meta,
		Data:     r.Data,
		Sets:     r.Sets,
	})
}

// DecodeRecord is the inverse of EncodeRecord.
func DecodeRecord(b []byte) (Record, error) {
	var s storedRecord
	if err := (codec.Msgpack{}).Unmarshal(b, &s); err != nil {
		return Record{}, fmt.Errorf("kvstore: decode record: %w", err)
	}
	vec, err := DecodeVector(s.Vector)
	if err != nil {
		return Record{}, err
	}
	meta, err := DecodeMetadata(s.Metadata)
	if err != nil {
		return Record{}, err
	}
	r := Record{ID: s.ID, Vector: vec, Metadata: meta, Data: s.Data}
	if len(s.Sets) > 0 {
		r.Sets = s.Sets
	}
	return r, nil
}

// EncodeVector packs v as little-endian float32 values.
func EncodeVector(v []float32) []byte {
	if v == nil {
		return nil
	}
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if b == nil {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("kvstore: vector payload of %d bytes is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

// EncodeMetadata encodes metadata as JSON. Nil metadata encodes to nil.
func EncodeMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := codec.JSON{}.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("kvstore: encode metadata: %w", err)
	}
	return b, nil
}

// DecodeMetadata is the inverse of EncodeMetadata.
func DecodeMetadata(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := (codec.JSON{}).Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("kvstore: decode metadata: %w", err)
	}
	return m, nil
}
