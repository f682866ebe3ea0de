package frame

import (
	"github.com/lj123as/Device-Verification-Kit/internal/codec"
	"github.com/lj123as/Device-Verification-Kit/internal/model"
)

// DefaultMaxFrameLen bounds resolved lengths when no guard is configured.
const DefaultMaxFrameLen = 4096

// Status is the outcome of a resolution step.
type Status uint8

const (
	// StatusReady: the value is available.
	StatusReady Status = iota
	// StatusNeed: more bytes are required. Not an error.
	StatusNeed
	// StatusInvalid: the candidate cannot be a frame.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusNeed:
		return "need"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// LengthResolver finds the total length of a candidate frame.
type LengthResolver struct {
	rule     model.LengthRule
	min, max int
}

// NewLengthResolver builds a resolver for m. Lengths above maxFrameLen, or
// too short to hold the header, length field and checksum, are invalid. A
// non-positive maxFrameLen selects DefaultMaxFrameLen.
func NewLengthResolver(m *model.Model, maxFrameLen int) *LengthResolver {
	if maxFrameLen <= 0 {
		maxFrameLen = DefaultMaxFrameLen
	}
	return &LengthResolver{rule: m.Length, min: max(m.MinFrameLen(), 1), max: maxFrameLen}
}

// Bounds returns the accepted [min, max] total length.
func (r *LengthResolver) Bounds() (int, int) { return r.min, r.max }

// Resolve determines the total length of the candidate starting at
// buf[start]. For StatusInvalid the returned value is the rejected length.
func (r *LengthResolver) Resolve(buf []byte, start int) (int64, Status) {
	avail := len(buf) - start
	if r.rule.Mode == model.LengthFixed {
		n := int64(r.rule.Fixed)
		if !r.ok(n) {
			return n, StatusInvalid
		}
		if avail < r.rule.Fixed {
			return n, StatusNeed
		}
		return n, StatusReady
	}

	end := r.rule.FieldEnd()
	if avail < end {
		return 0, StatusNeed
	}
	v, err := codec.ReadInt(buf[start+r.rule.Offset:start+end], r.rule.Type)
	if err != nil || v < 0 || v > int64(r.max) {
		// A negative or oversized raw value never yields an acceptable total.
		return v, StatusInvalid
	}
	n := v
	if r.rule.Mode == model.LengthCounted {
		n = v * int64(r.rule.Unit)
	}
	n += int64(r.rule.Overhead)
	if !r.ok(n) {
		return n, StatusInvalid
	}
	return n, StatusReady
}

func (r *LengthResolver) ok(n int64) bool {
	return n > 0 && n >= int64(r.min) && n <= int64(r.max)
}
