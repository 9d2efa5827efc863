package service

import (
	"context"
	"testing"
	"time"

	"github.com/tickgate/tickgate/internal/config"
	"github.com/tickgate/tickgate/internal/model"
)

func testRiskCfg() config.RiskConfig {
	return config.RiskConfig{
		DailyMaxLossUSDT:     50,
		MaxTradesPerDay:      20,
		MaxConsecutiveLosses: 3,
		PauseDurationMin:     1440,
	}
}

func TestGateAllowsCleanUser(t *testing.T) {
	gate := NewRiskGate(NewMemoryStore(), testRiskCfg())
	if reason := gate.Check(context.Background(), "user-1"); reason != "" {
		t.Fatalf("reason = %q, want allowed", reason)
	}
}

func TestGateKillSwitch(t *testing.T) {
	store := NewMemoryStore()
	gate := NewRiskGate(store, testRiskCfg())
	ctx := context.Background()

	_ = store.SetSetting(ctx, model.SettingKillSwitch, "true")
	if reason := gate.Check(ctx, "user-1"); reason != model.ReasonPlatformKillSwitch {
		t.Fatalf("reason = %q, want platform_kill_switch", reason)
	}

	// Flipping the switch takes effect immediately; no caching.
	_ = store.SetSetting(ctx, model.SettingKillSwitch, "false")
	if reason := gate.Check(ctx, "user-1"); reason != "" {
		t.Fatalf("reason = %q, want allowed after switch off", reason)
	}
}

func TestGateExpiredPauseAllows(t *testing.T) {
	store := NewMemoryStore()
	gate := NewRiskGate(store, testRiskCfg())
	ctx := context.Background()

	day := time.Now().UTC().Format("2006-01-02")
	past := time.Now().UTC().Add(-time.Hour)
	_ = store.UpsertRiskState(ctx, &model.RiskState{
		UserID: "user-1", Day: day, IsPaused: true, PausedUntil: &past,
	})

	if reason := gate.Check(ctx, "user-1"); reason != "" {
		t.Fatalf("reason = %q, expired pause must not block", reason)
	}
}

func TestGateIndefinitePauseBlocks(t *testing.T) {
	store := NewMemoryStore()
	gate := NewRiskGate(store, testRiskCfg())
	ctx := context.Background()

	day := time.Now().UTC().Format("2006-01-02")
	_ = store.UpsertRiskState(ctx, &model.RiskState{
		UserID: "user-1", Day: day, IsPaused: true,
	})

	if reason := gate.Check(ctx, "user-1"); reason != model.ReasonRisk {
		t.Fatalf("reason = %q, want risk", reason)
	}
}

func TestRecordTradeResultDailyLossPause(t *testing.T) {
	gate := NewRiskGate(NewMemoryStore(), testRiskCfg())
	ctx := context.Background()

	state, err := gate.RecordTradeResult(ctx, "user-1", -30)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if state.IsPaused {
		t.Fatal("one moderate loss must not pause")
	}

	state, _ = gate.RecordTradeResult(ctx, "user-1", -25)
	if !state.IsPaused || state.PausedReason != PauseReasonDailyLoss {
		t.Fatalf("state = %+v, want daily_loss_limit pause", state)
	}
	if state.PausedUntil == nil {
		t.Fatal("auto-pause must carry an expiry")
	}

	if reason := gate.Check(ctx, "user-1"); reason != model.ReasonRisk {
		t.Fatalf("paused user check = %q, want risk", reason)
	}
}

func TestRecordTradeResultConsecutiveLosses(t *testing.T) {
	gate := NewRiskGate(NewMemoryStore(), testRiskCfg())
	ctx := context.Background()

	gateLoss := func() *model.RiskState {
		state, err := gate.RecordTradeResult(ctx, "user-1", -5)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		return state
	}

	gateLoss()
	gateLoss()
	// A win resets the streak.
	state, _ := gate.RecordTradeResult(ctx, "user-1", 10)
	if state.ConsecutiveLosses != 0 || state.IsPaused {
		t.Fatalf("state after win = %+v", state)
	}

	gateLoss()
	gateLoss()
	state = gateLoss()
	if !state.IsPaused || state.PausedReason != PauseReasonConsecutive {
		t.Fatalf("state = %+v, want consecutive_losses pause", state)
	}
}

func TestPauseUser(t *testing.T) {
	store := NewMemoryStore()
	gate := NewRiskGate(store, testRiskCfg())
	ctx := context.Background()

	until := time.Now().UTC().Add(time.Hour)
	if err := gate.PauseUser(ctx, "user-1", PauseReasonManual, &until); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if reason := gate.Check(ctx, "user-1"); reason != model.ReasonRisk {
		t.Fatalf("reason = %q, want risk", reason)
	}
}
