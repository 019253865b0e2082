// Package guard wraps an audit sink with a circuit breaker so a broken
// downstream does not slow every publish.
package guard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	audit "toolbox/pkg/platform/audit"
	"toolbox/pkg/platform/circuit"
)

const defaultProbeInterval = 30 * time.Second

// Sink skips forwarding while the breaker is open, except for one probe
// per interval.
type Sink struct {
	next          audit.Sink
	breaker       *circuit.Breaker
	logger        *slog.Logger
	probeInterval time.Duration
	now           func() time.Time

	mu        sync.Mutex
	lastProbe time.Time
	skipped   int64
}

type Option func(*Sink)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

func WithProbeInterval(d time.Duration) Option {
	return func(s *Sink) {
		if d > 0 {
			s.probeInterval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Sink) { s.now = now }
}

func New(next audit.Sink, breaker *circuit.Breaker, opts ...Option) *Sink {
	s := &Sink{
		next:          next,
		breaker:       breaker,
		probeInterval: defaultProbeInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append forwards the event unless the breaker is open and no probe is due.
// Skipped events return nil; the event is already in the primary store.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	if !s.allow() {
		return nil
	}

	err := s.next.Append(ctx, event)
	if err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.log(ctx, slog.LevelWarn, "audit sink circuit opened", slog.String("error", err.Error()))
		}
		return err
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.log(ctx, slog.LevelInfo, "audit sink circuit closed")
	}
	return nil
}

// Skipped reports how many events were not forwarded while open.
func (s *Sink) Skipped() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

func (s *Sink) allow() bool {
	if !s.breaker.IsOpen() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if now.Sub(s.lastProbe) >= s.probeInterval {
		s.lastProbe = now
		return true
	}
	s.skipped++
	return false
}

func (s *Sink) log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if s.logger == nil {
		return
	}
	attrs = append(attrs, slog.String("breaker", s.breaker.Name()))
	s.logger.LogAttrs(ctx, level, msg, attrs...)
}
