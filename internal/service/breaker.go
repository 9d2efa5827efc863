package service

import (
	"context"

	"github.com/tickgate/tickgate/internal/model"
	"github.com/tickgate/tickgate/internal/pkg/logger"
	"github.com/tickgate/tickgate/internal/pkg/metrics"
)

// CircuitBreaker pauses a strategy run after repeated error ticks so
// a persistently failing strategy stops consuming exchange quota and
// lock bandwidth.
type CircuitBreaker struct {
	ticks      TickStore
	strategies StrategyStore
	recorder   *Recorder
	threshold  int
}

func NewCircuitBreaker(ticks TickStore, strategies StrategyStore, recorder *Recorder, threshold int) *CircuitBreaker {
	return &CircuitBreaker{ticks: ticks, strategies: strategies, recorder: recorder, threshold: threshold}
}

// OnError runs after an error-classified tick has been recorded. It
// counts the run's recent error events, including the one just
// written, and trips once the threshold is reached. Tripping is best
// effort; a store failure here leaves the run active for the next
// tick to retry.
func (b *CircuitBreaker) OnError(ctx context.Context, run *model.StrategyRun) bool {
	if b.threshold <= 0 {
		return false
	}
	events, err := b.ticks.ListRecentEvents(ctx, run.ID, model.EventError, b.threshold)
	if err != nil {
		logger.Error("breaker event scan failed", "strategy_run_id", run.ID, "error", err)
		return false
	}
	if len(events) < b.threshold {
		return false
	}

	if err := b.strategies.UpdateRunStatus(ctx, run.ID, model.StatusPaused); err != nil {
		logger.Error("breaker pause failed", "strategy_run_id", run.ID, "error", err)
		return false
	}

	metrics.BreakerTrips.Inc()
	logger.Warn("circuit breaker tripped",
		"strategy_run_id", run.ID, "user_id", run.UserID, "error_count", len(events))
	b.recorder.Emit(ctx, run.ID, run.UserID, model.EventAutoPaused, map[string]any{
		"reason":      PauseReasonCircuitBreaker,
		"error_count": len(events),
		"threshold":   b.threshold,
	})
	return true
}
