package model

import (
	"time"

	"gorm.io/datatypes"
)

// Tick terminal classifications.
const (
	TickOK      = "ok"
	TickSkipped = "skipped"
	TickBlocked = "blocked"
	TickError   = "error"
)

// Signals as returned to callers and persisted on TickRun rows.
const (
	SignalBuy  = "buy"
	SignalSell = "sell"
	SignalHold = "hold"
)

// TickRun is one durable record per tick attempt. Append-only; never
// updated after insert.
type TickRun struct {
	ID            string            `gorm:"primaryKey" json:"id"`
	StrategyRunID string            `gorm:"index:idx_tick_runs_strategy" json:"strategy_run_id"`
	UserID        string            `gorm:"index" json:"user_id"`
	ScheduledAt   time.Time         `json:"scheduled_at"`
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at"`
	Status        string            `json:"status"`
	Reason        string            `json:"reason,omitempty"`
	Signal        string            `json:"signal"`
	LatencyMs     *int64            `json:"latency_ms"`
	Meta          datatypes.JSONMap `json:"meta"`
	CreatedAt     time.Time         `gorm:"index:idx_tick_runs_strategy,sort:desc" json:"created_at"`
}

// Event is an immutable log entry emitted during a tick. Payloads are
// sanitized before persistence; Events may be surfaced to the user.
type Event struct {
	ID            string            `gorm:"primaryKey" json:"id"`
	StrategyRunID string            `gorm:"index:idx_events_strategy" json:"strategy_run_id"`
	UserID        string            `json:"user_id"`
	EventType     string            `json:"event_type"`
	Payload       datatypes.JSONMap `json:"payload"`
	CreatedAt     time.Time         `gorm:"index:idx_events_strategy,sort:desc" json:"created_at"`
}

// Well-known event types.
const (
	EventSignal      = "signal"
	EventOrderSubmit = "order_submit"
	EventRiskBlock   = "risk_block"
	EventError       = "error"
	EventAutoPaused  = "auto_paused"
)
