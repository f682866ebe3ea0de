package metrics

// Run statistics for streaming decode sessions

import (
	"math"
	"sort"
	"sync"
)

// Outcome classifies one session result.
type Outcome string

const (
	OutcomeFrame            Outcome = "frame"
	OutcomeChecksumMismatch Outcome = "checksum_mismatch"
	OutcomeLengthInvalid    Outcome = "length_invalid"
	OutcomeTruncated        Outcome = "truncated"
	OutcomeNoise            Outcome = "noise"
)

// RunStats holds the counters of one session. The zero value is ready to
// use.
type RunStats struct {
	FramesEmitted      int64
	FramesInvalid      int64 // emitted with a field failure
	ResyncCount        int64
	BytesDiscarded     int64
	ChecksumMismatches int64
	LengthInvalid      int64
	Truncated          int64
	NoiseEvents        int64
	FrameBytes         int64
	MinFrameLen        int
	MaxFrameLen        int
	FieldFailures      map[string]int64
}

// ObserveFrame counts an emitted frame of length n.
func (s *RunStats) ObserveFrame(n int, valid bool) {
	s.FramesEmitted++
	if !valid {
		s.FramesInvalid++
	}
	s.FrameBytes += int64(n)
	if s.MinFrameLen == 0 || n < s.MinFrameLen {
		s.MinFrameLen = n
	}
	if n > s.MaxFrameLen {
		s.MaxFrameLen = n
	}
}

// ObserveFieldFailure counts a field that could not be decoded.
func (s *RunStats) ObserveFieldFailure(field string) {
	if s.FieldFailures == nil {
		s.FieldFailures = make(map[string]int64)
	}
	s.FieldFailures[field]++
}

// AvgFrameLen is the mean length of emitted frames.
func (s RunStats) AvgFrameLen() float64 {
	if s.FramesEmitted == 0 {
		return 0
	}
	return float64(s.FrameBytes) / float64(s.FramesEmitted)
}

// Clone returns a copy that shares no state with s.
func (s RunStats) Clone() RunStats {
	out := s
	if s.FieldFailures != nil {
		out.FieldFailures = make(map[string]int64, len(s.FieldFailures))
		for k, v := range s.FieldFailures {
			out.FieldFailures[k] = v
		}
	}
	return out
}

// FieldFailureNames returns the failing field names in sorted order.
func (s RunStats) FieldFailureNames() []string {
	names := make([]string, 0, len(s.FieldFailures))
	for k := range s.FieldFailures {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Record is one entry of a decode run.
type Record struct {
	Index   int
	Offset  int64
	Length  int
	Outcome Outcome
	Valid   bool
	Error   string
	Raw     []byte
}

// Sink collects records from one or more sessions. It is safe for
// concurrent use.
type Sink struct {
	mu      sync.RWMutex
	records []Record
}

// Summary aggregates a Sink's records.
type Summary struct {
	Total      int
	ByOutcome  map[Outcome]int
	P50Len     float64
	P90Len     float64
	P95Len     float64
	P99Len     float64
	LenBuckets map[string]int
}

// NewSink creates a new record sink
func NewSink() *Sink {
	return &Sink{records: make([]Record, 0)}
}

// Record appends r. Raw is copied.
func (s *Sink) Record(r Record) {
	if r.Raw != nil {
		r.Raw = append([]byte(nil), r.Raw...)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

// Records returns a copy of all recorded entries
func (s *Sink) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Summary aggregates the recorded entries.
func (s *Sink) Summary() *Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &Summary{
		Total:      len(s.records),
		ByOutcome:  make(map[Outcome]int),
		LenBuckets: make(map[string]int),
	}
	lengths := make([]float64, 0, len(s.records))
	for _, r := range s.records {
		summary.ByOutcome[r.Outcome]++
		if r.Outcome == OutcomeFrame {
			lengths = append(lengths, float64(r.Length))
			incrementBucket(summary.LenBuckets, r.Length)
		}
	}
	p := computePercentiles(lengths)
	summary.P50Len, summary.P90Len, summary.P95Len, summary.P99Len = p[0], p[1], p[2], p[3]
	return summary
}

func incrementBucket(buckets map[string]int, n int) {
	switch {
	case n < 16:
		buckets["lt_16"]++
	case n < 64:
		buckets["16_64"]++
	case n < 256:
		buckets["64_256"]++
	case n < 1024:
		buckets["256_1024"]++
	default:
		buckets["ge_1024"]++
	}
}

func computePercentiles(values []float64) [4]float64 {
	var result [4]float64
	if len(values) == 0 {
		return result
	}
	sort.Float64s(values)
	result[0] = percentile(values, 0.50)
	result[1] = percentile(values, 0.90)
	result[2] = percentile(values, 0.95)
	result[3] = percentile(values, 0.99)
	return result
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
