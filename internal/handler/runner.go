package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tickgate/tickgate/internal/config"
	"github.com/tickgate/tickgate/internal/model"
	"github.com/tickgate/tickgate/internal/pkg/apperrors"
	"github.com/tickgate/tickgate/internal/service"
)

// RunnerHandler exposes the sweep scheduler and risk controls.
type RunnerHandler struct {
	sweeper *service.Sweeper
	gate    *service.RiskGate
	risk    service.RiskStore
	cfg     *config.Config
}

func NewRunnerHandler(sweeper *service.Sweeper, gate *service.RiskGate, risk service.RiskStore, cfg *config.Config) *RunnerHandler {
	return &RunnerHandler{sweeper: sweeper, gate: gate, risk: risk, cfg: cfg}
}

// Cron executes one sweep pass. Wired for external schedulers hitting
// POST /v1/runner/cron with the cron secret.
func (h *RunnerHandler) Cron(c *gin.Context) {
	if !h.cfg.Runner.Enabled {
		c.JSON(http.StatusServiceUnavailable,
			gin.H{"error": apperrors.New(apperrors.ErrRunnerDisabled, "runner is disabled", nil)})
		return
	}

	summary, err := h.sweeper.RunDue(c.Request.Context())
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrStoreDown, "sweep failed", err))
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Status reports the effective runner configuration.
func (h *RunnerHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enabled":            h.cfg.Runner.Enabled,
		"sweep_interval_sec": int(h.cfg.Runner.SweepInterval().Seconds()),
		"cooldown_sec":       h.cfg.Runner.CooldownSec,
		"lock_ttl_sec":       h.cfg.Runner.LockTTLSec,
		"breaker_threshold":  h.cfg.Runner.BreakerThreshold,
	})
}

// SimulateTradeResult feeds a synthetic realized trade into the risk
// writer. Only available when runner.admin_simulate is on.
func (h *RunnerHandler) SimulateTradeResult(c *gin.Context) {
	if !h.cfg.Runner.AdminSimulate {
		c.JSON(http.StatusNotFound,
			gin.H{"error": apperrors.NewNotFound("simulation is disabled")})
		return
	}

	var req model.SimulateTradeResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	state, err := h.gate.RecordTradeResult(c.Request.Context(), req.UserID, req.PnlDeltaUSDT)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrStoreDown, "risk state write failed", err))
		return
	}
	c.JSON(http.StatusOK, state)
}

// SetKillSwitch flips the platform-wide kill switch. Takes effect on
// the next gate check; nothing is cached.
func (h *RunnerHandler) SetKillSwitch(c *gin.Context) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	value := "false"
	if req.Enabled {
		value = "true"
	}
	if err := h.risk.SetSetting(c.Request.Context(), model.SettingKillSwitch, value); err != nil {
		c.Error(apperrors.New(apperrors.ErrStoreDown, "setting write failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"kill_switch": req.Enabled})
}
