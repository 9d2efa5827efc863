// Package handler wires the HTTP surface: runner control, strategy
// lifecycle and admin overrides.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tickgate/tickgate/internal/config"
	"github.com/tickgate/tickgate/internal/middleware"
)

// NewRouter assembles the gin engine with the full middleware chain.
func NewRouter(cfg *config.Config, runner *RunnerHandler, strategy *StrategyHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.RateLimit(cfg.Runner.RateQPS, cfg.Runner.RateBurst))
	r.Use(middleware.ErrorHandler())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")

	cron := v1.Group("/runner", middleware.CronOrAdmin(cfg.Auth.CronSecret, cfg.Auth.AdminKey))
	cron.POST("/cron", runner.Cron)

	admin := v1.Group("", middleware.Admin(cfg.Auth.AdminKey))
	admin.GET("/runner/status", runner.Status)
	admin.POST("/runner/simulate-trade-result", runner.SimulateTradeResult)
	admin.PATCH("/admin/kill-switch", runner.SetKillSwitch)

	admin.POST("/strategies", strategy.Create)
	admin.GET("/strategies", strategy.List)
	admin.GET("/strategies/:id", strategy.Get)
	admin.PUT("/strategies/:id/status", strategy.UpdateStatus)

	tick := v1.Group("/strategies", middleware.CronOrAdmin(cfg.Auth.CronSecret, cfg.Auth.AdminKey))
	tick.POST("/:id/execute-tick", strategy.ExecuteTick)

	return r
}
