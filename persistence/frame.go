package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/lshvec/codec"
	"github.com/hupe1980/lshvec/internal/hash"
	"github.com/hupe1980/lshvec/lsh"
)

const (
	// Magic identifies a framed config ("LSHC").
	Magic = "LSHC"
	// FormatVersion is the current frame layout version.
	FormatVersion uint16 = 1

	headerSize = 19
)

var (
	ErrInvalidMagic       = errors.New("persistence: invalid magic")
	ErrUnsupportedVersion = errors.New("persistence: unsupported format version")
	ErrTruncated          = errors.New("persistence: truncated frame")
	ErrChecksum           = errors.New("persistence: checksum mismatch")
	ErrCorrupt            = errors.New("persistence: corrupt payload")
)

// Header is the decoded frame header.
type Header struct {
	Version     uint16
	Compression Compression
	Checksum    uint32
	Length      uint32
	RawLength   uint32
}

// EncodeFrame wraps payload in a frame.
func EncodeFrame(payload []byte, c Compression) ([]byte, error) {
	if uint64(len(payload)) > math.MaxUint32 {
		return nil, fmt.Errorf("persistence: payload of %d bytes too large", len(payload))
	}
	stored, used, err := compress(payload, c)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerSize+len(stored))
	copy(out, Magic)
	binary.LittleEndian.PutUint16(out[4:], FormatVersion)
	out[6] = byte(used)
	binary.LittleEndian.PutUint32(out[7:], hash.CRC32C(stored))
	binary.LittleEndian.PutUint32(out[11:], uint32(len(stored)))
	binary.LittleEndian.PutUint32(out[15:], uint32(len(payload)))
	copy(out[headerSize:], stored)
	return out, nil
}

// ReadHeader validates and decodes the header of b.
func ReadHeader(b []byte) (Header, error) {
	if len(b) < headerSize {
		return Header{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(b))
	}
	if string(b[:4]) != Magic {
		return Header{}, ErrInvalidMagic
	}
	h := Header{
		Version:     binary.LittleEndian.Uint16(b[4:]),
		Compression: Compression(b[6]),
		Checksum:    binary.LittleEndian.Uint32(b[7:]),
		Length:      binary.LittleEndian.Uint32(b[11:]),
		RawLength:   binary.LittleEndian.Uint32(b[15:]),
	}
	if h.Version != FormatVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return h, nil
}

// DecodeFrame verifies a frame and returns its uncompressed payload.
func DecodeFrame(b []byte) ([]byte, error) {
	h, err := ReadHeader(b)
	if err != nil {
		return nil, err
	}
	stored := b[headerSize:]
	if uint64(len(stored)) != uint64(h.Length) {
		return nil, fmt.Errorf("%w: payload %d bytes, header says %d", ErrTruncated, len(stored), h.Length)
	}
	if got := hash.CRC32C(stored); got != h.Checksum {
		return nil, fmt.Errorf("%w: got %08x, want %08x", ErrChecksum, got, h.Checksum)
	}
	return decompress(stored, h.Compression, int(h.RawLength))
}

// Encode serializes a config record into a frame.
func Encode(rec lsh.Record, c Compression) ([]byte, error) {
	payload, err := codec.Default.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("persistence: marshal record: %w", err)
	}
	return EncodeFrame(payload, c)
}

// Decode is the inverse of Encode. It does not validate the record's
// contents; use lsh.FromRecord for that.
func Decode(b []byte) (lsh.Record, error) {
	payload, err := DecodeFrame(b)
	if err != nil {
		return lsh.Record{}, err
	}
	var rec lsh.Record
	if err := codec.Default.Unmarshal(payload, &rec); err != nil {
		return lsh.Record{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return rec, nil
}

// EncodeConfig frames cfg.
func EncodeConfig(cfg *lsh.Config, c Compression) ([]byte, error) {
	return Encode(cfg.ToRecord(), c)
}

// DecodeConfig decodes and validates a framed config.
func DecodeConfig(b []byte) (*lsh.Config, error) {
	rec, err := Decode(b)
	if err != nil {
		return nil, err
	}
	return lsh.FromRecord(rec)
}
