// Package service holds the tick execution engine: the orchestrator
// state machine, the risk gate, credential resolution, audit
// recording, the circuit breaker and the sweep scheduler.
package service

import (
	"context"
	"time"

	"github.com/tickgate/tickgate/internal/model"
)

// StrategyStore persists strategy runs and exchange connections.
// Lookups return (nil, nil) for missing rows; errors are reserved for
// the store itself being unavailable.
type StrategyStore interface {
	CreateStrategyRun(ctx context.Context, run *model.StrategyRun) error
	GetStrategyRun(ctx context.Context, id string) (*model.StrategyRun, error)
	ListStrategyRuns(ctx context.Context, userID string) ([]model.StrategyRun, error)
	ListActiveRuns(ctx context.Context) ([]model.StrategyRun, error)
	UpdateRunStatus(ctx context.Context, id, status string) error
	// MarkRan stamps last_run_at and, when signalAt is non-nil,
	// last_signal_at. Called only after the pipeline actually ran.
	MarkRan(ctx context.Context, id string, ranAt time.Time, signalAt *time.Time) error

	CreateConnection(ctx context.Context, conn *model.ExchangeConnection) error
	GetConnection(ctx context.Context, id string) (*model.ExchangeConnection, error)
}

// TickStore persists the append-only audit trail.
type TickStore interface {
	InsertTickRun(ctx context.Context, run *model.TickRun) error
	InsertEvent(ctx context.Context, ev *model.Event) error
	// ListRecentEvents returns up to limit newest-first events for one
	// strategy run, optionally filtered by type (empty = all).
	ListRecentEvents(ctx context.Context, strategyRunID, eventType string, limit int) ([]model.Event, error)
}

// RiskStore persists per-user risk state and platform settings.
type RiskStore interface {
	GetRiskState(ctx context.Context, userID, day string) (*model.RiskState, error)
	UpsertRiskState(ctx context.Context, state *model.RiskState) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// LockManager is the distributed per-strategy mutex. Acquire is an
// atomic check-and-set with a TTL; Release is unconditional and
// idempotent, relying on the TTL to cover crashed holders.
type LockManager interface {
	Acquire(ctx context.Context, strategyRunID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, strategyRunID string) error
}
