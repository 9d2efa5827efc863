package service

import (
	"context"
	"testing"
	"time"

	"github.com/tickgate/tickgate/internal/model"
)

func TestRunDueExecutesOnlyDueRuns(t *testing.T) {
	h := newHarness(t, defaultRunnerCfg())
	h.seedConnection(t, "conn-1")
	h.seedRun(t, "run-a", "conn-1", model.StatusActive)
	h.seedRun(t, "run-b", "conn-1", model.StatusActive)
	h.seedRun(t, "run-c", "conn-1", model.StatusPaused)

	ctx := context.Background()

	// run-b ticked moments ago; its 5m interval has not elapsed.
	recent := time.Now().UTC().Add(-time.Minute)
	if err := h.store.MarkRan(ctx, "run-b", recent, nil); err != nil {
		t.Fatalf("mark ran: %v", err)
	}

	sweeper := NewSweeper(h.store, h.orch)
	summary, err := sweeper.RunDue(ctx)
	if err != nil {
		t.Fatalf("RunDue: %v", err)
	}

	if len(summary.Results) != 1 {
		t.Fatalf("results = %+v, want only run-a", summary.Results)
	}
	if summary.Results[0].StrategyRunID != "run-a" || summary.Results[0].Status != model.TickOK {
		t.Fatalf("results[0] = %+v", summary.Results[0])
	}
	if summary.Ran != 1 || summary.Skipped != 0 || summary.Errors != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestRunDueSurvivesFailingRun(t *testing.T) {
	cfg := defaultRunnerCfg()
	cfg.BreakerThreshold = 0 // keep failing runs active across the test
	h := newHarness(t, cfg)
	h.seedConnection(t, "conn-1")
	// run-a points at a missing connection and will classify as error;
	// run-b is healthy and must still execute.
	h.seedRun(t, "run-a", "missing-conn", model.StatusActive)
	h.seedRun(t, "run-b", "conn-1", model.StatusActive)

	sweeper := NewSweeper(h.store, h.orch)
	summary, err := sweeper.RunDue(context.Background())
	if err != nil {
		t.Fatalf("RunDue: %v", err)
	}

	if summary.Errors != 1 || summary.Ran != 1 {
		t.Fatalf("summary = %+v, want one error and one ok", summary)
	}
	if len(summary.Results) != 2 {
		t.Fatalf("results = %+v", summary.Results)
	}
	// ListActiveRuns orders by id, so run-a comes first.
	if summary.Results[0].StrategyRunID != "run-a" || summary.Results[0].Status != model.TickError {
		t.Fatalf("results[0] = %+v", summary.Results[0])
	}
	if summary.Results[1].StrategyRunID != "run-b" || summary.Results[1].Status != model.TickOK {
		t.Fatalf("results[1] = %+v", summary.Results[1])
	}
}
