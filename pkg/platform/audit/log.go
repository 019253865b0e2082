package audit

import (
	"context"
	"log/slog"

	"toolbox/pkg/requestcontext"
)

// Emitter is the publishing side of the audit pipeline.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// LogAudit writes an audit line to the structured logger and emits event.
// Either sink may be nil. The request ID is taken from ctx.
func LogAudit(ctx context.Context, logger *slog.Logger, emitter Emitter, event Event, attrs ...any) {
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.RequestID != "" {
		attrs = append(attrs, "request_id", event.RequestID)
	}
	if !event.UserID.IsNil() {
		attrs = append(attrs, "user_id", event.UserID.String())
	}

	args := append(attrs, "event", event.Action, "log_type", "audit")
	if logger != nil {
		logger.InfoContext(ctx, event.Action, args...)
	}

	if emitter == nil {
		return
	}
	if err := emitter.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to emit audit event", "event", event.Action, "error", err)
	}
}
