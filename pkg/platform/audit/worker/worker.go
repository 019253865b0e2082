package worker

import (
	"context"
	"log/slog"

	audit "toolbox/pkg/platform/audit"
)

// Worker consumes audit events from a channel, persists them, and forwards
// them to sinks. Sink failures are logged and never stop the worker.
type Worker struct {
	store  audit.Store
	sinks  []audit.Sink
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, sinks []audit.Sink, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, sinks: sinks, logger: logger}
}

// Run processes events until ctx is done or the inbox is closed. A closed
// inbox drains cleanly and returns nil.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.Handle(ctx, event)
		}
	}
}

// Handle stores one event and fans it out to the sinks.
func (w *Worker) Handle(ctx context.Context, event audit.Event) {
	if err := w.store.Append(ctx, event); err != nil && w.logger != nil {
		w.logger.ErrorContext(ctx, "failed to store audit event", "action", event.Action, "error", err)
	}
	for _, sink := range w.sinks {
		if err := sink.Append(ctx, event); err != nil && w.logger != nil {
			w.logger.WarnContext(ctx, "failed to forward audit event", "action", event.Action, "error", err)
		}
	}
}
