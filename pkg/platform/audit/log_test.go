package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "toolbox/pkg/domain"
	"toolbox/pkg/requestcontext"
)

type captureEmitter struct {
	events []Event
	err    error
}

func (c *captureEmitter) Emit(_ context.Context, event Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestLogAudit(t *testing.T) {
	userID := id.UserID(uuid.New())
	ctx := requestcontext.WithRequestID(context.Background(), "req-42")

	t.Run("logs and emits with request id", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		emitter := &captureEmitter{}

		LogAudit(ctx, logger, emitter, Event{UserID: userID, Action: string(EventDrawGenerated)}, "job_id", "j1")

		require.Len(t, emitter.events, 1)
		assert.Equal(t, "req-42", emitter.events[0].RequestID)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "draw_generated", line["msg"])
		assert.Equal(t, "audit", line["log_type"])
		assert.Equal(t, "j1", line["job_id"])
		assert.Equal(t, userID.String(), line["user_id"])
	})

	t.Run("emit failure is logged not returned", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		emitter := &captureEmitter{err: errors.New("queue full")}

		LogAudit(ctx, logger, emitter, Event{Action: string(EventTokenRevoked)})
		assert.Contains(t, buf.String(), "failed to emit audit event")
	})

	t.Run("nil sinks are tolerated", func(t *testing.T) {
		assert.NotPanics(t, func() {
			LogAudit(ctx, nil, nil, Event{Action: string(EventAuthFailed)})
		})
	})
}

func TestAuditEventCategory(t *testing.T) {
	assert.Equal(t, CategoryBilling, EventCreditsDebited.Category())
	assert.Equal(t, CategorySecurity, EventTokenIssued.Category())
	assert.Equal(t, CategoryOperations, EventDrawGenerated.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("unknown").Category())
}
