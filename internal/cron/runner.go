// Package cron wraps robfig/cron with panic-safe job registration so
// a misbehaving job cannot take the scheduler down.
package cron

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tickgate/tickgate/internal/pkg/logger"
)

type Runner struct {
	c *cron.Cron
}

func New() *Runner {
	return &Runner{c: cron.New()}
}

// AddEvery schedules job at a fixed interval. The first execution
// happens one interval after Start.
func (r *Runner) AddEvery(interval time.Duration, name string, job func()) {
	r.c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("cron job panicked", "job", name, "panic", rec)
			}
		}()
		job()
	}))
	logger.Info("cron job registered", "job", name, "interval", interval.String())
}

func (r *Runner) Start() {
	r.c.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.c.Stop()
	<-ctx.Done()
}
