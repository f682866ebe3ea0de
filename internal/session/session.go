// Package session runs the frame synchronizer over a byte stream delivered
// in arbitrary chunks.
//
// A Session owns its pending buffer, scan cursor and counters; independent
// sessions share nothing and a Session must not be used from more than one
// goroutine at a time. Submit consumes a chunk and returns every result it
// completes. Flush ends the stream: candidates cut short by the end of input
// are reported as truncated and scanning continues past them. Results do not
// depend on how the stream was chunked.
package session

import (
	"errors"
	"fmt"

	"github.com/lj123as/Device-Verification-Kit/internal/config"
	"github.com/lj123as/Device-Verification-Kit/internal/frame"
	"github.com/lj123as/Device-Verification-Kit/internal/hexdump"
	"github.com/lj123as/Device-Verification-Kit/internal/logging"
	"github.com/lj123as/Device-Verification-Kit/internal/metrics"
	"github.com/lj123as/Device-Verification-Kit/internal/model"
	"github.com/lj123as/Device-Verification-Kit/internal/semantic"
)

// EventKind classifies a diagnostic event.
type EventKind int

const (
	// EventNoise reports a window of discarded bytes with no frame in it.
	EventNoise EventKind = iota + 1
)

func (k EventKind) String() string {
	switch k {
	case EventNoise:
		return "noise"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a diagnostic notice. It never changes what is decoded.
type Event struct {
	Kind   EventKind
	Offset int64 // stream offset just past the last byte of the window
	Bytes  int64 // bytes in this window
	Total  int64 // bytes discarded by the session so far
}

// Result is one outcome of a Submit or Flush. Exactly one field is set.
type Result struct {
	Frame *frame.Frame
	// Err is a *frame.ChecksumMismatchError, *frame.LengthInvalidError or
	// *frame.TruncatedError. Streams continue after every one of them.
	Err   error
	Event *Event
}

// Session is a streaming decoder for one frame model.
type Session struct {
	model *model.Model
	sync  *frame.Synchronizer
	dec   *frame.Decoder
	cfg   config.EngineConfig
	log   *logging.Logger
	sink  *metrics.Sink

	ownLog bool // log was opened from cfg.LogFile and is closed by Close

	pending []byte
	cursor  int
	base    int64 // stream offset of pending[0]
	noise   int64 // discarded bytes since the last frame or noise event
	stats   metrics.RunStats
}

// New creates a session for m.
func New(m *model.Model, opts ...Option) (*Session, error) {
	st := settings{cfg: *config.Default()}
	for _, opt := range opts {
		opt(&st)
	}
	st.cfg.ApplyDefaults()
	if err := st.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if st.cfg.MaxFrameLen < m.MinFrameLen() {
		return nil, fmt.Errorf("session config: max_frame_len %d is below the %d-byte minimum frame", st.cfg.MaxFrameLen, m.MinFrameLen())
	}
	policy, err := frame.ParseResyncPolicy(st.cfg.ResyncPolicy)
	if err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if st.table == nil && m.Commands != nil {
		if st.table, err = semantic.NewTable(m.Commands.SemanticFields()); err != nil {
			return nil, err
		}
	}
	ownLog := false
	switch {
	case st.log != nil:
	case st.cfg.LogFile != "":
		level, err := logging.ParseLevel(st.cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("session config: %w", err)
		}
		if st.log, err = logging.NewLogger(level, st.cfg.LogFile); err != nil {
			return nil, fmt.Errorf("session log: %w", err)
		}
		ownLog = true
	default:
		st.log = logging.Nop()
	}

	return &Session{
		model:   m,
		sync:    frame.NewSynchronizer(m, st.cfg.MaxFrameLen, policy),
		dec:     frame.NewDecoder(m, st.table),
		cfg:     st.cfg,
		log:     st.log,
		ownLog:  ownLog,
		sink:    st.sink,
		pending: make([]byte, 0, min(st.cfg.MaxPending, 2*st.cfg.MaxFrameLen)),
	}, nil
}

// Close releases the log file opened from the configuration, if any. It
// does not flush pending input.
func (s *Session) Close() error {
	if s.ownLog {
		s.ownLog = false
		return s.log.Close()
	}
	return nil
}

// Model returns the frame model the session decodes.
func (s *Session) Model() *model.Model { return s.model }

// Config returns the effective engine configuration.
func (s *Session) Config() config.EngineConfig { return s.cfg }

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() metrics.RunStats { return s.stats.Clone() }

// PendingLen is the number of buffered bytes not yet resolved.
func (s *Session) PendingLen() int { return len(s.pending) - s.cursor }

// Offset is the stream offset of the next byte Submit will accept.
func (s *Session) Offset() int64 { return s.base + int64(len(s.pending)) }

// Submit appends chunk to the stream and returns every result it
// completes. The chunk is not retained.
func (s *Session) Submit(chunk []byte) []Result {
	var out []Result
	for len(chunk) > 0 {
		// Drain leaves less than MaxFrameLen bytes pending, so there is
		// always room for at least one more byte.
		room := s.cfg.MaxPending - len(s.pending)
		take := min(room, len(chunk))
		s.pending = append(s.pending, chunk[:take]...)
		chunk = chunk[take:]
		out = s.drain(out, false)
		s.compact()
	}
	return out
}

// Flush ends the stream. Incomplete candidates are reported as truncated,
// scanning resumes one byte past each, and whatever remains is discarded.
// The session may be reused; stream offsets continue.
func (s *Session) Flush() []Result {
	out := s.drain(nil, true)
	s.compact()
	return out
}

// DecodeAll decodes a complete capture with a fresh session.
func DecodeAll(m *model.Model, data []byte, opts ...Option) ([]Result, metrics.RunStats, error) {
	s, err := New(m, opts...)
	if err != nil {
		return nil, metrics.RunStats{}, err
	}
	out := s.Submit(data)
	out = append(out, s.Flush()...)
	return out, s.Stats(), nil
}

// Frames returns the frames of results in order.
func Frames(results []Result) []*frame.Frame {
	var out []*frame.Frame
	for _, r := range results {
		if r.Frame != nil {
			out = append(out, r.Frame)
		}
	}
	return out
}

func (s *Session) drain(out []Result, eof bool) []Result {
	for {
		step := s.sync.Step(s.pending, s.cursor, s.base)
		switch step.Action {
		case frame.ActionEmit:
			out = s.discard(out, step.Start)
			out = s.emit(out, step)
			s.cursor = step.Next
			s.noise = 0

		case frame.ActionResync:
			out = s.discard(out, step.Start)
			out = s.resync(out, step)
			out = s.discard(out, step.Next)

		case frame.ActionNeed:
			if !eof {
				out = s.discard(out, step.Next)
				return out
			}
			if step.State == frame.StateSeekingHeader {
				out = s.discard(out, len(s.pending))
				return out
			}
			out = s.discard(out, step.Start)
			out = s.truncated(out, step)
			out = s.discard(out, step.Start+1)
		}
	}
}

func (s *Session) emit(out []Result, step frame.Step) []Result {
	f := s.dec.Decode(s.pending[step.Start : step.Start+step.Length])
	f.Offset = s.base + int64(step.Start)
	f.Index = int(s.stats.FramesEmitted)

	s.stats.ObserveFrame(step.Length, f.Valid)
	for _, err := range f.FieldErrors {
		var oob *frame.FieldOutOfBoundsError
		if errors.As(err, &oob) {
			s.stats.ObserveFieldFailure(oob.Field)
			s.log.At(logging.LogLevelVerbose).Int64("offset", f.Offset).Str("field", oob.Field).Msg("field out of bounds")
		}
	}
	if s.log.Enabled(logging.LogLevelDebug) {
		s.log.At(logging.LogLevelDebug).Int64("offset", f.Offset).Int("len", len(f.Raw)).Str("dump", s.annotate(f)).Msgf("frame %d at %d", f.Index, f.Offset)
	}
	s.record(metrics.Record{
		Index:   f.Index,
		Offset:  f.Offset,
		Length:  step.Length,
		Outcome: metrics.OutcomeFrame,
		Valid:   f.Valid,
		Raw:     f.Raw,
	})
	return append(out, Result{Frame: f})
}

func (s *Session) resync(out []Result, step frame.Step) []Result {
	s.stats.ResyncCount++
	outcome := metrics.OutcomeChecksumMismatch
	if errors.Is(step.Err, frame.ErrLengthInvalid) {
		s.stats.LengthInvalid++
		outcome = metrics.OutcomeLengthInvalid
	} else {
		s.stats.ChecksumMismatches++
	}
	s.log.At(logging.LogLevelDebug).Int64("offset", s.base+int64(step.Start)).Str("state", step.State.String()).Msgf("resync: %v", step.Err)
	if outcome == metrics.OutcomeChecksumMismatch && step.Start+step.Length <= len(s.pending) {
		s.log.LogHex(fmt.Sprintf("rejected candidate at %d", s.base+int64(step.Start)), s.pending[step.Start:step.Start+step.Length])
	}
	s.record(metrics.Record{
		Index:   -1,
		Offset:  s.base + int64(step.Start),
		Length:  step.Length,
		Outcome: outcome,
		Error:   step.Err.Error(),
	})
	return append(out, Result{Err: step.Err})
}

// annotate dumps f with its header, decoded fields and stored checksum
// labelled.
func (s *Session) annotate(f *frame.Frame) string {
	spans := []hexdump.Span{{Label: "header", Lo: 0, Hi: len(s.model.Header)}}
	for i, sp := range f.Layout {
		if sp.OK {
			spans = append(spans, hexdump.Span{Label: s.model.Fields[i].Name, Lo: sp.Lo, Hi: sp.Hi})
		}
	}
	if c := s.model.Checksum; c != nil {
		if at, err := c.StoreSpan(len(f.Raw)); err == nil {
			spans = append(spans, hexdump.Span{Label: "checksum", Lo: at, Hi: at + c.Width()})
		}
	}
	return hexdump.Annotate(f.Raw, spans)
}

func (s *Session) truncated(out []Result, step frame.Step) []Result {
	err := &frame.TruncatedError{
		Offset: s.base + int64(step.Start),
		Have:   len(s.pending) - step.Start,
		Want:   step.Length,
	}
	s.stats.Truncated++
	s.log.At(logging.LogLevelInfo).Int64("offset", err.Offset).Int("have", err.Have).Int("want", err.Want).Msg("truncated candidate at end of input")
	s.record(metrics.Record{
		Index:   -1,
		Offset:  err.Offset,
		Length:  err.Have,
		Outcome: metrics.OutcomeTruncated,
		Error:   err.Error(),
	})
	return append(out, Result{Err: err})
}

// discard drops pending[cursor:to] from frame consideration.
func (s *Session) discard(out []Result, to int) []Result {
	n := int64(to - s.cursor)
	if n <= 0 {
		return out
	}
	s.cursor = to
	s.stats.BytesDiscarded += n
	if s.cfg.NoiseWindow <= 0 {
		return out
	}
	s.noise += n
	w := int64(s.cfg.NoiseWindow)
	for s.noise >= w {
		s.noise -= w
		s.stats.NoiseEvents++
		ev := &Event{
			Kind:   EventNoise,
			Offset: s.base + int64(s.cursor) - s.noise,
			Bytes:  w,
			Total:  s.stats.BytesDiscarded - s.noise,
		}
		s.log.At(logging.LogLevelInfo).Int64("offset", ev.Offset).Int64("discarded", ev.Total).Msgf("%d bytes of noise", ev.Bytes)
		s.record(metrics.Record{Index: -1, Offset: ev.Offset - w, Length: int(w), Outcome: metrics.OutcomeNoise})
		out = append(out, Result{Event: ev})
	}
	return out
}

func (s *Session) record(r metrics.Record) {
	if s.sink != nil {
		s.sink.Record(r)
	}
}

// compact moves unresolved bytes to the front of the buffer.
func (s *Session) compact() {
	if s.cursor == 0 {
		return
	}
	n := copy(s.pending, s.pending[s.cursor:])
	s.pending = s.pending[:n]
	s.base += int64(s.cursor)
	s.cursor = 0
}
