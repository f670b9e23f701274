package lsh

// MaxBits bounds the number of hyperplanes of a single plane.
const MaxBits = 4096

// BitPolicy names the rule that derives a plane's bit width from its id.
//
// The policy is persisted with the config, so a record always rehashes with
// the rule it was generated with.
type BitPolicy string

const (
	// LinearBits: bits(p) = BitStart + p*BitScaleFactor. This is the default.
	LinearBits BitPolicy = "linear"

	// GeometricBits: bits(p) = BitStart * BitScaleFactor^p. BitScaleFactor must be >= 1.
	GeometricBits BitPolicy = "geometric"
)

func (p BitPolicy) valid() bool {
	return p == LinearBits || p == GeometricBits
}

// Bits returns the bit width of planeID under the policy.
func (p BitPolicy) Bits(planeID, bitStart, bitScaleFactor int) (int, error) {
	if planeID < 0 {
		return 0, invalidf("negative plane id %d", planeID)
	}

	var bits int
	switch p {
	case LinearBits, "":
		if bitScaleFactor > 0 && planeID > (MaxBits-bitStart)/bitScaleFactor {
			return 0, invalidf("plane %d exceeds %d bits", planeID, MaxBits)
		}
		bits = bitStart + planeID*bitScaleFactor
	case GeometricBits:
		if bitScaleFactor < 1 {
			return 0, invalidf("geometric policy requires bit_scale_factor >= 1, got %d", bitScaleFactor)
		}
		bits = bitStart
		if bits <= 0 || bitScaleFactor == 1 {
			break
		}
		for range planeID {
			if bitScaleFactor > MaxBits/bits {
				return 0, invalidf("plane %d exceeds %d bits", planeID, MaxBits)
			}
			bits *= bitScaleFactor
		}
	default:
		return 0, invalidf("unknown bit policy %q", string(p))
	}

	if bits <= 0 || bits > MaxBits {
		return 0, invalidf("plane %d has %d bits, want 1..%d", planeID, bits, MaxBits)
	}
	return bits, nil
}
