package frame

import (
	"errors"
	"fmt"
)

// Per-candidate and per-field conditions. None of them stops a stream; they
// are reported in results and counters.
var (
	ErrChecksumMismatch = errors.New("frame: checksum mismatch")
	ErrLengthInvalid    = errors.New("frame: invalid length")
	ErrFieldOutOfBounds = errors.New("frame: field out of bounds")
	ErrTruncated        = errors.New("frame: truncated candidate")
)

// ChecksumMismatchError reports a candidate whose stored checksum does not
// match. Err is set when the checksum could not be evaluated at all.
type ChecksumMismatchError struct {
	Offset   int64 // stream offset of the candidate's header
	Length   int
	Computed uint32
	Expected uint32
	Err      error
}

func (e *ChecksumMismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frame at %d (%d bytes): checksum: %v", e.Offset, e.Length, e.Err)
	}
	return fmt.Sprintf("frame at %d (%d bytes): checksum mismatch: computed 0x%X, stored 0x%X", e.Offset, e.Length, e.Computed, e.Expected)
}

func (e *ChecksumMismatchError) Is(target error) bool { return target == ErrChecksumMismatch }

func (e *ChecksumMismatchError) Unwrap() error { return e.Err }

// LengthInvalidError reports a resolved length outside [Min, Max].
type LengthInvalidError struct {
	Offset   int64
	Length   int64
	Min, Max int
}

func (e *LengthInvalidError) Error() string {
	return fmt.Sprintf("frame at %d: invalid length %d (allowed %d..%d)", e.Offset, e.Length, e.Min, e.Max)
}

func (e *LengthInvalidError) Is(target error) bool { return target == ErrLengthInvalid }

// FieldOutOfBoundsError reports a field whose bytes fall outside the frame.
type FieldOutOfBoundsError struct {
	Field    string
	Offset   int // resolved absolute offset
	Length   int64 // resolved length, saturated when the reference overflows
	FrameLen int
}

func (e *FieldOutOfBoundsError) Error() string {
	return fmt.Sprintf("field %s: %d bytes at offset %d outside %d-byte frame", e.Field, e.Length, e.Offset, e.FrameLen)
}

func (e *FieldOutOfBoundsError) Is(target error) bool { return target == ErrFieldOutOfBounds }

// TruncatedError reports a candidate cut off by the end of input.
type TruncatedError struct {
	Offset int64
	Have   int
	Want   int // zero when the length itself was not readable
}

func (e *TruncatedError) Error() string {
	if e.Want == 0 {
		return fmt.Sprintf("frame at %d: input ended after %d bytes, length unknown", e.Offset, e.Have)
	}
	return fmt.Sprintf("frame at %d: input ended after %d of %d bytes", e.Offset, e.Have, e.Want)
}

func (e *TruncatedError) Is(target error) bool { return target == ErrTruncated }
