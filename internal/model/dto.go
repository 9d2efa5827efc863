package model

// Stable reason codes used both as TickRun.Reason and as filtering keys.
const (
	ReasonStrategyRunNotFound = "strategy_run_not_found"
	ReasonStrategyNotActive   = "strategy_not_active"
	ReasonLockNotAcquired     = "lock_not_acquired"
	ReasonRisk                = "risk"
	ReasonPlatformKillSwitch  = "platform_kill_switch"
	ReasonCooldown            = "cooldown"
	ReasonConnectionNotFound  = "connection_not_found"
	ReasonConnectionNotTested = "connection_not_tested"
	ReasonCredentialsMissing  = "credentials_missing"
	ReasonDecryptionFailed    = "decryption_failed"
)

// TickResult is the structured return value of one tick attempt.
// Expected conditions (not-found, not-active, locked, risk-blocked)
// are modeled as non-ok statuses, never as transport faults.
type TickResult struct {
	Status    string `json:"status"` // ok | skipped | blocked | error
	Reason    string `json:"reason,omitempty"`
	Signal    string `json:"signal"` // buy | sell | hold
	LatencyMs *int64 `json:"latency_ms,omitempty"`
	RunID     string `json:"run_id,omitempty"`
}

// TickOutcome is one sweep entry; ordering matches sweep iteration.
type TickOutcome struct {
	StrategyRunID string `json:"strategy_run_id"`
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
}

// SweepSummary aggregates one RunDue pass over all active runs.
type SweepSummary struct {
	Ran     int           `json:"ran"`
	Skipped int           `json:"skipped"`
	Blocked int           `json:"blocked"`
	Errors  int           `json:"errors"`
	Results []TickOutcome `json:"results"`
}

// CreateStrategyRunRequest is the incoming JSON body for POST /v1/strategies.
type CreateStrategyRunRequest struct {
	UserID               string         `json:"user_id" binding:"required"`
	ExchangeConnectionID string         `json:"exchange_connection_id" binding:"required"`
	Symbol               string         `json:"symbol" binding:"required"`
	Timeframe            string         `json:"timeframe" binding:"required"`
	Direction            string         `json:"direction" binding:"required,oneof=long short both"`
	Leverage             int            `json:"leverage" binding:"required,min=1,max=125"`
	MarginMode           string         `json:"margin_mode,omitempty"`
	PositionMode         string         `json:"position_mode,omitempty"`
	OrderSizePct         float64        `json:"order_size_pct,omitempty"`
	InitialCapitalUSDT   float64        `json:"initial_capital_usdt,omitempty"`
	TakeProfitPct        float64        `json:"take_profit_pct,omitempty"`
	StopLossPct          float64        `json:"stop_loss_pct,omitempty"`
	StrategyTemplate     string         `json:"strategy_template,omitempty"`
	StrategyParams       map[string]any `json:"strategy_params,omitempty"`
}

// UpdateStatusRequest changes a strategy run's lifecycle status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active paused stopped"`
}

// SimulateTradeResultRequest feeds the risk-state writer for testing.
type SimulateTradeResultRequest struct {
	UserID       string  `json:"user_id" binding:"required"`
	PnlDeltaUSDT float64 `json:"pnl_delta_usdt"`
}
