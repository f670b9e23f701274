package lsh

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/hupe1980/lshvec/distance"
)

// Hash maps v to its bucket key in plane planeID.
//
// Each hyperplane contributes one bit: 1 if the projection is positive,
// 0 otherwise. Bits are packed MSB-first in row order and hex-encoded, so
// the code has a fixed width of ceil(bits/8)*2 characters. The key is
// "{planeID}:{code}".
func (c *Config) Hash(v []float32, planeID int) (string, error) {
	plane, ok := c.Plane(planeID)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownPlane, planeID)
	}
	if len(v) != c.params.NFeatures {
		return "", &DimensionMismatchError{Expected: c.params.NFeatures, Actual: len(v)}
	}
	return bucketKey(planeID, plane.code(v)), nil
}

// BucketKeys returns one bucket key per plane, in plane-id order.
func (c *Config) BucketKeys(v []float32) ([]string, error) {
	if len(v) != c.params.NFeatures {
		return nil, &DimensionMismatchError{Expected: c.params.NFeatures, Actual: len(v)}
	}
	keys := make([]string, len(c.planes))
	for i := range c.planes {
		keys[i] = bucketKey(i, c.planes[i].code(v))
	}
	return keys, nil
}

func (p Plane) code(v []float32) []byte {
	code := make([]byte, (p.Bits+7)/8)
	for i := range p.Bits {
		if distance.Dot(p.row(i), v) > 0 {
			code[i/8] |= 0x80 >> (i % 8)
		}
	}
	return code
}

func bucketKey(planeID int, code []byte) string {
	return strconv.Itoa(planeID) + ":" + hex.EncodeToString(code)
}
