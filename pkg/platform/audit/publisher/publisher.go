package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "toolbox/pkg/domain"
	audit "toolbox/pkg/platform/audit"
	"toolbox/pkg/platform/audit/worker"
)

// ErrBufferFull is returned by Emit in async mode when the queue is saturated.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher records audit events. In sync mode Emit writes straight to the
// store; with WithAsyncBuffer a background worker drains a bounded queue.
type Publisher struct {
	store   audit.Store
	sinks   []audit.Sink
	logger  *slog.Logger
	dropped DropRecorder

	bufferSize int
	queue      chan audit.Event
	worker     *worker.Worker
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
	closed     bool
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with a queue of n events.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.bufferSize = n
		}
	}
}

// WithSinks forwards every event to the given sinks after it is stored.
func WithSinks(sinks ...audit.Sink) Option {
	return func(p *Publisher) {
		p.sinks = append(p.sinks, sinks...)
	}
}

// DropRecorder counts events rejected by a full async buffer.
type DropRecorder interface {
	IncrementAuditDropped()
}

func WithDropRecorder(r DropRecorder) Option {
	return func(p *Publisher) {
		p.dropped = r
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}

	if p.bufferSize > 0 {
		p.queue = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		p.worker = worker.NewWorker(store, p.queue, p.sinks, p.logger)
		go func() {
			defer close(p.done)
			_ = p.worker.Run(context.Background())
		}()
	}
	return p
}

// Emit records an event. A zero timestamp is set to the current time and
// the category is derived from the action.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.queue == nil {
		if err := p.store.Append(ctx, event); err != nil {
			return err
		}
		for _, sink := range p.sinks {
			if err := sink.Append(ctx, event); err != nil && p.logger != nil {
				p.logger.WarnContext(ctx, "failed to forward audit event", "action", event.Action, "error", err)
			}
		}
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("audit publisher closed")
	}

	select {
	case p.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.dropped != nil {
			p.dropped.IncrementAuditDropped()
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit event dropped", "action", event.Action)
		}
		return ErrBufferFull
	}
}

// List returns the stored events for a user.
func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close stops accepting events and, in async mode, waits until the queue is drained.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.queue == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		<-p.done
	})
}
