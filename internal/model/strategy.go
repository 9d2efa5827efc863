package model

import (
	"time"

	"gorm.io/datatypes"
)

// StrategyRun lifecycle states. Only active runs are eligible for
// execution; everything else short-circuits a tick as skipped.
const (
	StatusDraft   = "draft"
	StatusActive  = "active"
	StatusPaused  = "paused"
	StatusStopped = "stopped"
)

const (
	DirectionLong  = "long"
	DirectionShort = "short"
	DirectionBoth  = "both"
)

// StrategyRun is a user's configured automated strategy. Mutable fields
// (status, last_run_at, last_signal_at) are written only by the tick
// orchestrator and by explicit status changes through the API.
type StrategyRun struct {
	ID                   string            `gorm:"primaryKey" json:"id"`
	UserID               string            `gorm:"index" json:"user_id"`
	ExchangeConnectionID string            `json:"exchange_connection_id"`
	Exchange             string            `json:"exchange"` // binance | bybit
	MarketType           string            `json:"market_type"`
	Symbol               string            `json:"symbol"`
	Timeframe            string            `json:"timeframe"`
	Direction            string            `json:"direction"` // long | short | both
	Leverage             int               `json:"leverage"`
	MarginMode           string            `json:"margin_mode"`
	PositionMode         string            `json:"position_mode"`
	OrderSizePct         float64           `json:"order_size_pct"`
	InitialCapitalUSDT   float64           `json:"initial_capital_usdt"`
	TakeProfitPct        float64           `json:"take_profit_pct"`
	StopLossPct          float64           `json:"stop_loss_pct"`
	StrategyTemplate     string            `json:"strategy_template"`
	StrategyParams       datatypes.JSONMap `json:"strategy_params"`
	Status               string            `gorm:"index" json:"status"`
	LastRunAt            *time.Time        `json:"last_run_at"`
	LastSignalAt         *time.Time        `json:"last_signal_at"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// ExchangeConnection is a user's linked exchange account plus its risk
// envelope. A StrategyRun may execute only if LastTestStatus == "ok",
// FuturesEnabled and the connection kill switch is off.
type ExchangeConnection struct {
	ID                 string    `gorm:"primaryKey" json:"id"`
	UserID             string    `gorm:"index" json:"user_id"`
	Exchange           string    `json:"exchange"`
	EncryptedConfigB64 string    `json:"-"`
	Environment        string    `json:"environment"` // production | testnet
	KillSwitch         bool      `json:"kill_switch"`
	FuturesEnabled     bool      `json:"futures_enabled"`
	MaxLeverageAllowed int       `json:"max_leverage_allowed"`
	MaxNotionalUSDT    float64   `json:"max_notional_usdt"`
	MarginMode         string    `json:"margin_mode"`
	PositionMode       string    `json:"position_mode"`
	DefaultLeverage    int       `json:"default_leverage"`
	LastTestStatus     string    `json:"last_test_status"` // ok | failed | ""
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RiskState is the per-user, per-UTC-day rolling risk posture. Written
// by trade-result recording and admin overrides; the risk gate only
// reads it.
type RiskState struct {
	UserID            string     `gorm:"primaryKey" json:"user_id"`
	Day               string     `gorm:"primaryKey" json:"day"` // YYYY-MM-DD (UTC)
	RealizedPnlUSDT   float64    `json:"realized_pnl_usdt"`
	TradesCount       int        `json:"trades_count"`
	ConsecutiveLosses int        `json:"consecutive_losses"`
	IsPaused          bool       `json:"is_paused"`
	PausedReason      string     `json:"paused_reason"`
	PausedUntil       *time.Time `json:"paused_until"`
	LastTradeAt       *time.Time `json:"last_trade_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// PlatformSetting is a single admin-configurable key/value row. The
// global kill switch lives under SettingKillSwitch and is read fresh
// on every risk-gate check.
type PlatformSetting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

const SettingKillSwitch = "kill_switch_global"
