package service

import (
	"context"
	"time"

	"github.com/tickgate/tickgate/internal/model"
	"github.com/tickgate/tickgate/internal/pkg/logger"
	"github.com/tickgate/tickgate/internal/pkg/metrics"
	"github.com/tickgate/tickgate/internal/timeframe"
)

// Sweeper finds active strategy runs whose timeframe interval has
// elapsed and executes a tick for each. One failing run never stops
// the sweep.
type Sweeper struct {
	strategies StrategyStore
	orch       *Orchestrator
	now        func() time.Time
}

func NewSweeper(strategies StrategyStore, orch *Orchestrator) *Sweeper {
	return &Sweeper{strategies: strategies, orch: orch, now: time.Now}
}

// RunDue executes one sweep pass. The error return is reserved for
// the strategy store being unreachable; per-run failures are folded
// into the summary.
func (s *Sweeper) RunDue(ctx context.Context) (model.SweepSummary, error) {
	metrics.SweepsTotal.Inc()
	now := s.now().UTC()

	runs, err := s.strategies.ListActiveRuns(ctx)
	if err != nil {
		return model.SweepSummary{}, err
	}

	var due []model.StrategyRun
	for _, run := range runs {
		if timeframe.IsDue(run.Timeframe, now, run.LastRunAt) {
			due = append(due, run)
		}
	}
	metrics.SweepDue.Observe(float64(len(due)))

	summary := model.SweepSummary{Results: make([]model.TickOutcome, 0, len(due))}
	for _, run := range due {
		res, err := s.orch.ExecuteTick(ctx, run.ID)
		if err != nil {
			logger.Error("sweep tick failed", "strategy_run_id", run.ID, "error", err)
			summary.Errors++
			summary.Results = append(summary.Results, model.TickOutcome{
				StrategyRunID: run.ID, Status: model.TickError,
			})
			continue
		}
		switch res.Status {
		case model.TickOK:
			summary.Ran++
		case model.TickBlocked:
			summary.Blocked++
		case model.TickError:
			summary.Errors++
		default:
			summary.Skipped++
		}
		summary.Results = append(summary.Results, model.TickOutcome{
			StrategyRunID: run.ID, Status: res.Status, Reason: res.Reason,
		})
	}

	logger.Info("sweep finished",
		"due", len(due), "ran", summary.Ran, "skipped", summary.Skipped,
		"blocked", summary.Blocked, "errors", summary.Errors)
	return summary, nil
}
