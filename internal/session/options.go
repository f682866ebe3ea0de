package session

import (
	"github.com/lj123as/Device-Verification-Kit/internal/config"
	"github.com/lj123as/Device-Verification-Kit/internal/logging"
	"github.com/lj123as/Device-Verification-Kit/internal/metrics"
	"github.com/lj123as/Device-Verification-Kit/internal/semantic"
)

type settings struct {
	cfg   config.EngineConfig
	log   *logging.Logger
	table *semantic.Table
	sink  *metrics.Sink
}

// Option is a functional option for configuring a Session.
type Option func(*settings)

// WithConfig replaces the engine configuration. Zero fields take their
// defaults.
func WithConfig(cfg config.EngineConfig) Option {
	return func(s *settings) {
		s.cfg = cfg
	}
}

// WithMaxFrameLen caps the length a length field may announce. MaxPending
// is raised to match when it would fall below.
func WithMaxFrameLen(n int) Option {
	return func(s *settings) {
		s.cfg.MaxFrameLen = n
		if s.cfg.MaxPending != 0 && s.cfg.MaxPending < n {
			s.cfg.MaxPending = n
		}
	}
}

// WithNoiseWindow emits a noise event every n discarded bytes.
func WithNoiseWindow(n int) Option {
	return func(s *settings) {
		s.cfg.NoiseWindow = n
	}
}

// WithResyncPolicy selects "one_byte" or "skip_candidate".
func WithResyncPolicy(policy string) Option {
	return func(s *settings) {
		s.cfg.ResyncPolicy = policy
	}
}

// WithLogger sets the session logger. Sessions are silent by default.
func WithLogger(l *logging.Logger) Option {
	return func(s *settings) {
		s.log = l
	}
}

// WithSemantic sets the semantic table used to annotate frames. By
// default it is built from the model's command table, if any.
func WithSemantic(t *semantic.Table) Option {
	return func(s *settings) {
		s.table = t
	}
}

// WithSink records every result into sink.
func WithSink(sink *metrics.Sink) Option {
	return func(s *settings) {
		s.sink = sink
	}
}
