package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"

	"github.com/tickgate/tickgate/internal/config"
	"github.com/tickgate/tickgate/internal/exchange"
	"github.com/tickgate/tickgate/internal/model"
	"github.com/tickgate/tickgate/internal/pipeline"
	"github.com/tickgate/tickgate/internal/pkg/logger"
	"github.com/tickgate/tickgate/internal/pkg/metrics"
)

// SignalPipeline evaluates a strategy against market data and trades.
type SignalPipeline interface {
	Execute(ctx context.Context, run *model.StrategyRun, conn *model.ExchangeConnection, adapter exchange.Adapter) pipeline.Result
}

// AdapterFactory builds an exchange adapter for one tick.
type AdapterFactory func(exchangeName string, creds exchange.Credentials, environment string) (exchange.Adapter, error)

// Orchestrator drives one strategy tick through its full state
// machine: status check, lock, risk gate, cooldown, connection
// validation, credential resolution, pipeline invocation,
// classification, persistence and circuit breaking.
type Orchestrator struct {
	strategies StrategyStore
	gate       *RiskGate
	locks      LockManager
	creds      *CredentialResolver
	recorder   *Recorder
	breaker    *CircuitBreaker
	pipeline   SignalPipeline
	adapters   AdapterFactory
	cfg        config.RunnerConfig
	now        func() time.Time
}

func NewOrchestrator(
	strategies StrategyStore,
	gate *RiskGate,
	locks LockManager,
	creds *CredentialResolver,
	recorder *Recorder,
	breaker *CircuitBreaker,
	signalPipeline SignalPipeline,
	adapters AdapterFactory,
	cfg config.RunnerConfig,
) *Orchestrator {
	if adapters == nil {
		adapters = exchange.New
	}
	return &Orchestrator{
		strategies: strategies,
		gate:       gate,
		locks:      locks,
		creds:      creds,
		recorder:   recorder,
		breaker:    breaker,
		pipeline:   signalPipeline,
		adapters:   adapters,
		cfg:        cfg,
		now:        time.Now,
	}
}

// ExecuteTick runs one tick attempt for a strategy run. Expected
// conditions come back as a classified TickResult; the error return is
// reserved for the strategy store being unreachable.
func (o *Orchestrator) ExecuteTick(ctx context.Context, strategyRunID string) (model.TickResult, error) {
	started := o.now().UTC()

	run, err := o.strategies.GetStrategyRun(ctx, strategyRunID)
	if err != nil {
		return model.TickResult{}, err
	}
	if run == nil {
		return o.finish(ctx, strategyRunID, "", started,
			model.TickError, model.ReasonStrategyRunNotFound, pipeline.SignalNone, nil), nil
	}
	if run.Status != model.StatusActive {
		return o.finish(ctx, run.ID, run.UserID, started,
			model.TickSkipped, model.ReasonStrategyNotActive, pipeline.SignalNone, nil), nil
	}

	acquired, err := o.locks.Acquire(ctx, run.ID, o.cfg.LockTTL())
	if err != nil {
		// A dead lock backend degrades to skip; ticking without mutual
		// exclusion is worse than not ticking.
		logger.Error("lock acquire failed", "strategy_run_id", run.ID, "error", err)
		acquired = false
	}
	if !acquired {
		return o.finish(ctx, run.ID, run.UserID, started,
			model.TickSkipped, model.ReasonLockNotAcquired, pipeline.SignalNone, nil), nil
	}
	defer func() {
		if err := o.locks.Release(ctx, run.ID); err != nil {
			logger.Error("lock release failed", "strategy_run_id", run.ID, "error", err)
		}
	}()

	if reason := o.gate.Check(ctx, run.UserID); reason != "" {
		return o.finish(ctx, run.ID, run.UserID, started,
			model.TickBlocked, reason, pipeline.SignalNone, nil), nil
	}

	if run.LastRunAt != nil && started.Sub(*run.LastRunAt) < o.cfg.Cooldown() {
		return o.finish(ctx, run.ID, run.UserID, started,
			model.TickSkipped, model.ReasonCooldown, pipeline.SignalNone, nil), nil
	}

	conn, err := o.strategies.GetConnection(ctx, run.ExchangeConnectionID)
	if err != nil {
		return model.TickResult{}, err
	}
	if conn == nil {
		return o.failTick(ctx, run, started, model.ReasonConnectionNotFound, "exchange connection not found"), nil
	}
	// Connection validation blocks are user-fixable policy denials,
	// not errors; they never feed the circuit breaker.
	if conn.LastTestStatus != "ok" {
		return o.finish(ctx, run.ID, run.UserID, started,
			model.TickBlocked, model.ReasonConnectionNotTested, pipeline.SignalNone, nil), nil
	}

	creds, err := o.creds.Resolve(conn)
	if err != nil {
		if errors.Is(err, ErrCredentialsMissing) {
			return o.finish(ctx, run.ID, run.UserID, started,
				model.TickBlocked, model.ReasonCredentialsMissing, pipeline.SignalNone, nil), nil
		}
		return o.failTick(ctx, run, started, model.ReasonDecryptionFailed, "credential decryption failed"), nil
	}

	adapter, err := o.adapters(conn.Exchange, creds, conn.Environment)
	if err != nil {
		return o.failTick(ctx, run, started, "", err.Error()), nil
	}

	result := o.pipeline.Execute(ctx, run, conn, adapter)
	finished := o.now().UTC()

	// The pipeline ran; stamp last_run_at so the cooldown window
	// starts regardless of how the tick classified.
	var signalAt *time.Time
	if result.Signal != pipeline.SignalNone {
		signalAt = &finished
	}
	if err := o.strategies.MarkRan(ctx, run.ID, finished, signalAt); err != nil {
		logger.Error("last_run_at update failed", "strategy_run_id", run.ID, "error", err)
	}

	switch {
	case result.Err != nil:
		// The pipeline already emitted its own error event.
		res := o.record(ctx, run.ID, run.UserID, started, finished,
			model.TickError, "", pipeline.SignalNone, map[string]any{"message": result.Err.Error()})
		o.breaker.OnError(ctx, run)
		o.observe(conn.Exchange, started, finished)
		return res, nil
	case result.RiskBlock != "":
		res := o.record(ctx, run.ID, run.UserID, started, finished,
			model.TickBlocked, result.RiskBlock, result.Signal, nil)
		o.observe(conn.Exchange, started, finished)
		return res, nil
	default:
		meta := map[string]any{"order_placed": result.OrderPlaced}
		if result.OrderID != "" {
			meta["order_id"] = result.OrderID
		}
		if result.RSI != nil {
			meta["rsi"] = result.RSI.Round(2).InexactFloat64()
		}
		res := o.record(ctx, run.ID, run.UserID, started, finished,
			model.TickOK, "", result.Signal, meta)
		o.observe(conn.Exchange, started, finished)
		return res, nil
	}
}

// failTick handles pre-pipeline error classifications. These count
// toward the circuit breaker, so an error event is emitted here.
func (o *Orchestrator) failTick(ctx context.Context, run *model.StrategyRun, started time.Time, reason, message string) model.TickResult {
	finished := o.now().UTC()
	o.recorder.Emit(ctx, run.ID, run.UserID, model.EventError, map[string]any{
		"reason":  reason,
		"message": message,
	})
	res := o.record(ctx, run.ID, run.UserID, started, finished,
		model.TickError, reason, pipeline.SignalNone, map[string]any{"message": message})
	o.breaker.OnError(ctx, run)
	return res
}

// finish records an early-exit classification (skips and gate blocks)
// that never reached the pipeline. last_run_at is left untouched.
func (o *Orchestrator) finish(ctx context.Context, strategyRunID, userID string, started time.Time, status, reason, signal string, meta map[string]any) model.TickResult {
	return o.record(ctx, strategyRunID, userID, started, o.now().UTC(), status, reason, signal, meta)
}

func (o *Orchestrator) record(ctx context.Context, strategyRunID, userID string, started, finished time.Time, status, reason, signal string, meta map[string]any) model.TickResult {
	latency := finished.Sub(started).Milliseconds()
	tick := &model.TickRun{
		StrategyRunID: strategyRunID,
		UserID:        userID,
		ScheduledAt:   started,
		StartedAt:     started,
		FinishedAt:    finished,
		Status:        status,
		Reason:        reason,
		Signal:        mapSignal(signal),
		LatencyMs:     &latency,
	}
	if meta != nil {
		tick.Meta = datatypes.JSONMap(meta)
	}
	id := o.recorder.RecordTickRun(ctx, tick)

	metrics.TicksTotal.WithLabelValues(status, reason).Inc()
	logger.Info("tick finished",
		"strategy_run_id", strategyRunID, "status", status, "reason", reason,
		"signal", mapSignal(signal), "latency_ms", latency)

	return model.TickResult{
		Status:    status,
		Reason:    reason,
		Signal:    mapSignal(signal),
		LatencyMs: &latency,
		RunID:     id,
	}
}

func (o *Orchestrator) observe(exchangeName string, started, finished time.Time) {
	metrics.TickLatency.WithLabelValues(exchangeName).Observe(finished.Sub(started).Seconds())
}

func mapSignal(signal string) string {
	switch signal {
	case pipeline.SignalLong:
		return model.SignalBuy
	case pipeline.SignalShort:
		return model.SignalSell
	default:
		return model.SignalHold
	}
}
