package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tickgate/tickgate/internal/model"
	"github.com/tickgate/tickgate/internal/pkg/logger"
)

// Recorder writes the append-only audit trail. Persistence here is
// best effort: a failed audit write degrades, it never fails a tick.
type Recorder struct {
	store TickStore
	now   func() time.Time
}

func NewRecorder(store TickStore) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// RecordTickRun persists one tick record and returns its id, or an
// empty id when the write failed.
func (r *Recorder) RecordTickRun(ctx context.Context, run *model.TickRun) string {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = r.now().UTC()
	}
	if err := r.store.InsertTickRun(ctx, run); err != nil {
		logger.Error("tick run write failed",
			"strategy_run_id", run.StrategyRunID, "status", run.Status, "error", err)
		return ""
	}
	return run.ID
}

// Emit satisfies pipeline.EventSink. Payloads are sanitized before
// they touch storage; a failed write is logged and dropped.
func (r *Recorder) Emit(ctx context.Context, strategyRunID, userID, eventType string, payload map[string]any) {
	ev := &model.Event{
		ID:            uuid.NewString(),
		StrategyRunID: strategyRunID,
		UserID:        userID,
		EventType:     eventType,
		Payload:       SanitizePayload(payload),
		CreatedAt:     r.now().UTC(),
	}
	if err := r.store.InsertEvent(ctx, ev); err != nil {
		logger.Error("event write failed",
			"strategy_run_id", strategyRunID, "event_type", eventType, "error", err)
	}
}

// SanitizePayload drops any entry whose key name or string value
// contains "key" or "secret", case-insensitively, recursing into
// nested maps and slices. This runs on every event payload before
// persistence; events are user-visible and must never carry
// credential material.
func SanitizePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if containsSensitive(k) {
			continue
		}
		cleaned, keep := sanitizeValue(v)
		if !keep {
			continue
		}
		out[k] = cleaned
	}
	return out
}

func sanitizeValue(v any) (any, bool) {
	switch val := v.(type) {
	case string:
		if containsSensitive(val) {
			return nil, false
		}
		return val, true
	case map[string]any:
		return SanitizePayload(val), true
	case []any:
		out := make([]any, 0, len(val))
		for _, item := range val {
			if cleaned, keep := sanitizeValue(item); keep {
				out = append(out, cleaned)
			}
		}
		return out, true
	default:
		return v, true
	}
}

func containsSensitive(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "key") || strings.Contains(lower, "secret")
}
