package frame

import (
	"bytes"
	"fmt"

	"github.com/lj123as/Device-Verification-Kit/internal/checksum"
	"github.com/lj123as/Device-Verification-Kit/internal/model"
)

// State is a synchronizer state. A scan runs
//
//	SeekingHeader → LengthPending → BodyPending → Validating → Emit | Resync
//
// and stops in the first three whenever the buffer runs out.
type State uint8

const (
	StateSeekingHeader State = iota
	StateLengthPending
	StateBodyPending
	StateValidating
)

func (s State) String() string {
	switch s {
	case StateSeekingHeader:
		return "seeking_header"
	case StateLengthPending:
		return "length_pending"
	case StateBodyPending:
		return "body_pending"
	case StateValidating:
		return "validating"
	default:
		return "unknown"
	}
}

// Action is what the caller must do after a Step.
type Action uint8

const (
	// ActionNeed: supply more bytes, then step again from Step.Next.
	ActionNeed Action = iota
	// ActionEmit: buf[Start:Start+Length] is a valid frame.
	ActionEmit
	// ActionResync: the candidate at Start failed; step again from Next.
	ActionResync
)

func (a Action) String() string {
	switch a {
	case ActionNeed:
		return "need"
	case ActionEmit:
		return "emit"
	case ActionResync:
		return "resync"
	default:
		return "unknown"
	}
}

// ResyncPolicy selects where scanning resumes after a failed candidate.
type ResyncPolicy uint8

const (
	// ResyncOneByte resumes one byte past the failed header, so a real
	// header overlapping a false candidate is never skipped.
	ResyncOneByte ResyncPolicy = iota
	// ResyncSkipCandidate resumes after the whole failed candidate when its
	// length was resolved. Fewer resyncs on noisy links, but a frame
	// starting inside a corrupt candidate is lost.
	ResyncSkipCandidate
)

// ParseResyncPolicy maps a configuration string onto a policy.
func ParseResyncPolicy(s string) (ResyncPolicy, error) {
	switch s {
	case "", "one_byte":
		return ResyncOneByte, nil
	case "skip_candidate":
		return ResyncSkipCandidate, nil
	default:
		return 0, fmt.Errorf("unknown resync policy %q (want one_byte or skip_candidate)", s)
	}
}

func (p ResyncPolicy) String() string {
	if p == ResyncSkipCandidate {
		return "skip_candidate"
	}
	return "one_byte"
}

// Step is the outcome of one synchronizer step.
type Step struct {
	Action Action
	// State is where a Need step is waiting, or where a Resync failed.
	State State
	// Start is the header position of the candidate. For a Need while
	// seeking, it is the earliest position a header could still begin.
	Start int
	// Length is the resolved total length, zero when unknown.
	Length int
	// Next is where the following step begins.
	Next int
	// Err explains a Resync: *LengthInvalidError or *ChecksumMismatchError.
	Err error
}

// Synchronizer locates and validates frames in a byte buffer. It holds no
// scan state; the cursor belongs to the caller.
type Synchronizer struct {
	header []byte
	length *LengthResolver
	check  *checksum.Def
	policy ResyncPolicy
}

// NewSynchronizer builds a synchronizer for m.
func NewSynchronizer(m *model.Model, maxFrameLen int, policy ResyncPolicy) *Synchronizer {
	return &Synchronizer{
		header: m.Header,
		length: NewLengthResolver(m, maxFrameLen),
		check:  m.Checksum,
		policy: policy,
	}
}

// Header returns the sync pattern.
func (s *Synchronizer) Header() []byte { return s.header }

// Resolver returns the length resolver.
func (s *Synchronizer) Resolver() *LengthResolver { return s.length }

// Step advances the scan of buf from cursor by one decision. base is the
// stream offset of buf[0] and only affects error reports.
func (s *Synchronizer) Step(buf []byte, cursor int, base int64) Step {
	idx := bytes.Index(buf[cursor:], s.header)
	if idx < 0 {
		keep := max(cursor, len(buf)-len(s.header)+1)
		return Step{Action: ActionNeed, State: StateSeekingHeader, Start: keep, Next: keep}
	}
	pos := cursor + idx

	n64, st := s.length.Resolve(buf, pos)
	switch st {
	case StatusNeed:
		if s.length.rule.Mode == model.LengthFixed {
			return Step{Action: ActionNeed, State: StateBodyPending, Start: pos, Length: int(n64), Next: pos}
		}
		return Step{Action: ActionNeed, State: StateLengthPending, Start: pos, Next: pos}
	case StatusInvalid:
		lo, hi := s.length.Bounds()
		return Step{
			Action: ActionResync,
			State:  StateLengthPending,
			Start:  pos,
			Next:   pos + 1,
			Err:    &LengthInvalidError{Offset: base + int64(pos), Length: n64, Min: lo, Max: hi},
		}
	}

	n := int(n64)
	if len(buf)-pos < n {
		return Step{Action: ActionNeed, State: StateBodyPending, Start: pos, Length: n, Next: pos}
	}

	if s.check != nil {
		computed, expected, err := s.check.Check(buf[pos : pos+n])
		if err != nil || computed != expected {
			return Step{
				Action: ActionResync,
				State:  StateValidating,
				Start:  pos,
				Length: n,
				Next:   s.resume(pos, n),
				Err: &ChecksumMismatchError{
					Offset:   base + int64(pos),
					Length:   n,
					Computed: computed,
					Expected: expected,
					Err:      err,
				},
			}
		}
	}
	return Step{Action: ActionEmit, State: StateValidating, Start: pos, Length: n, Next: pos + n}
}

func (s *Synchronizer) resume(pos, n int) int {
	if s.policy == ResyncSkipCandidate && n > 0 {
		return pos + n
	}
	return pos + 1
}
