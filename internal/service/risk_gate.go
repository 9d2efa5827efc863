package service

import (
	"context"
	"time"

	"github.com/tickgate/tickgate/internal/config"
	"github.com/tickgate/tickgate/internal/model"
	"github.com/tickgate/tickgate/internal/pkg/logger"
	"github.com/tickgate/tickgate/internal/pkg/metrics"
)

// Auto-pause reasons written to RiskState.PausedReason.
const (
	PauseReasonDailyLoss      = "daily_loss_limit"
	PauseReasonConsecutive    = "consecutive_losses"
	PauseReasonMaxTrades      = "max_trades_per_day"
	PauseReasonCircuitBreaker = "circuit_breaker"
	PauseReasonManual         = "manual"
)

const dayFormat = "2006-01-02"

// RiskGate is the pre-trade admission check plus the trade-result
// writer that maintains per-user daily risk state.
type RiskGate struct {
	store RiskStore
	cfg   config.RiskConfig
	now   func() time.Time
}

func NewRiskGate(store RiskStore, cfg config.RiskConfig) *RiskGate {
	return &RiskGate{store: store, cfg: cfg, now: time.Now}
}

// Check returns an empty string when trading is allowed, otherwise a
// stable reason code. The platform kill switch is read fresh on every
// call and checked before any per-user state; an unreadable setting
// fails closed.
func (g *RiskGate) Check(ctx context.Context, userID string) string {
	val, found, err := g.store.GetSetting(ctx, model.SettingKillSwitch)
	if err != nil {
		logger.Error("kill switch read failed, failing closed", "error", err)
		metrics.RiskBlocks.WithLabelValues(model.ReasonPlatformKillSwitch).Inc()
		return model.ReasonPlatformKillSwitch
	}
	if found && val == "true" {
		metrics.RiskBlocks.WithLabelValues(model.ReasonPlatformKillSwitch).Inc()
		return model.ReasonPlatformKillSwitch
	}

	now := g.now().UTC()
	state, err := g.store.GetRiskState(ctx, userID, now.Format(dayFormat))
	if err != nil {
		logger.Error("risk state read failed, failing closed", "user_id", userID, "error", err)
		metrics.RiskBlocks.WithLabelValues(model.ReasonRisk).Inc()
		return model.ReasonRisk
	}
	if state == nil {
		return ""
	}
	if state.IsPaused {
		// An expired pause no longer blocks; the gate never mutates
		// state, the next trade-result write resets it.
		if state.PausedUntil == nil || state.PausedUntil.After(now) {
			metrics.RiskBlocks.WithLabelValues(model.ReasonRisk).Inc()
			return model.ReasonRisk
		}
	}
	return ""
}

// RecordTradeResult folds one realized trade outcome into today's
// risk state and applies the auto-pause rules.
func (g *RiskGate) RecordTradeResult(ctx context.Context, userID string, pnlDeltaUSDT float64) (*model.RiskState, error) {
	now := g.now().UTC()
	day := now.Format(dayFormat)

	state, err := g.store.GetRiskState(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &model.RiskState{UserID: userID, Day: day}
	}

	state.TradesCount++
	state.RealizedPnlUSDT += pnlDeltaUSDT
	if pnlDeltaUSDT < 0 {
		state.ConsecutiveLosses++
	} else {
		state.ConsecutiveLosses = 0
	}
	ts := now
	state.LastTradeAt = &ts

	if !state.IsPaused {
		if reason := g.pauseReason(state); reason != "" {
			until := now.Add(time.Duration(g.cfg.PauseDurationMin) * time.Minute)
			state.IsPaused = true
			state.PausedReason = reason
			state.PausedUntil = &until
			logger.Warn("user auto-paused",
				"user_id", userID, "reason", reason, "until", until)
		}
	}

	if err := g.store.UpsertRiskState(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (g *RiskGate) pauseReason(state *model.RiskState) string {
	if g.cfg.DailyMaxLossUSDT > 0 && state.RealizedPnlUSDT <= -g.cfg.DailyMaxLossUSDT {
		return PauseReasonDailyLoss
	}
	if g.cfg.MaxConsecutiveLosses > 0 && state.ConsecutiveLosses >= g.cfg.MaxConsecutiveLosses {
		return PauseReasonConsecutive
	}
	if g.cfg.MaxTradesPerDay > 0 && state.TradesCount >= g.cfg.MaxTradesPerDay {
		return PauseReasonMaxTrades
	}
	return ""
}

// PauseUser pauses a user's trading for today under the given reason.
// Used by the circuit breaker and admin overrides.
func (g *RiskGate) PauseUser(ctx context.Context, userID, reason string, until *time.Time) error {
	now := g.now().UTC()
	day := now.Format(dayFormat)

	state, err := g.store.GetRiskState(ctx, userID, day)
	if err != nil {
		return err
	}
	if state == nil {
		state = &model.RiskState{UserID: userID, Day: day}
	}
	state.IsPaused = true
	state.PausedReason = reason
	state.PausedUntil = until
	return g.store.UpsertRiskState(ctx, state)
}
