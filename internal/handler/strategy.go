package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/tickgate/tickgate/internal/model"
	"github.com/tickgate/tickgate/internal/pkg/apperrors"
	"github.com/tickgate/tickgate/internal/service"
	"github.com/tickgate/tickgate/internal/timeframe"
)

const eventPageSize = 50

// StrategyHandler manages strategy run lifecycle and on-demand ticks.
type StrategyHandler struct {
	strategies service.StrategyStore
	ticks      service.TickStore
	orch       *service.Orchestrator
}

func NewStrategyHandler(strategies service.StrategyStore, ticks service.TickStore, orch *service.Orchestrator) *StrategyHandler {
	return &StrategyHandler{strategies: strategies, ticks: ticks, orch: orch}
}

// Create validates and stores a new strategy run in draft status.
func (h *StrategyHandler) Create(c *gin.Context) {
	var req model.CreateStrategyRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if _, ok := timeframe.Duration(req.Timeframe); !ok {
		c.Error(apperrors.NewInvalidRequest("unknown timeframe: " + req.Timeframe))
		return
	}

	ctx := c.Request.Context()
	conn, err := h.strategies.GetConnection(ctx, req.ExchangeConnectionID)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrStoreDown, "connection lookup failed", err))
		return
	}
	if conn == nil {
		c.Error(apperrors.NewInvalidRequest("exchange connection not found"))
		return
	}

	now := time.Now().UTC()
	run := &model.StrategyRun{
		ID:                   uuid.NewString(),
		UserID:               req.UserID,
		ExchangeConnectionID: req.ExchangeConnectionID,
		Exchange:             conn.Exchange,
		MarketType:           "futures",
		Symbol:               req.Symbol,
		Timeframe:            req.Timeframe,
		Direction:            req.Direction,
		Leverage:             req.Leverage,
		MarginMode:           req.MarginMode,
		PositionMode:         req.PositionMode,
		OrderSizePct:         req.OrderSizePct,
		InitialCapitalUSDT:   req.InitialCapitalUSDT,
		TakeProfitPct:        req.TakeProfitPct,
		StopLossPct:          req.StopLossPct,
		StrategyTemplate:     req.StrategyTemplate,
		Status:               model.StatusDraft,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if req.StrategyParams != nil {
		run.StrategyParams = datatypes.JSONMap(req.StrategyParams)
	}

	if err := h.strategies.CreateStrategyRun(ctx, run); err != nil {
		c.Error(apperrors.New(apperrors.ErrStoreDown, "strategy run write failed", err))
		return
	}
	c.JSON(http.StatusCreated, run)
}

// List returns a user's strategy runs.
func (h *StrategyHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.Error(apperrors.NewInvalidRequest("user_id query parameter is required"))
		return
	}

	runs, err := h.strategies.ListStrategyRuns(c.Request.Context(), userID)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrStoreDown, "strategy run list failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategies": runs})
}

// Get returns one run with its latest events.
func (h *StrategyHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	run, err := h.strategies.GetStrategyRun(ctx, c.Param("id"))
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrStoreDown, "strategy run lookup failed", err))
		return
	}
	if run == nil {
		c.Error(apperrors.NewNotFound("strategy run not found"))
		return
	}

	events, err := h.ticks.ListRecentEvents(ctx, run.ID, "", eventPageSize)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrStoreDown, "event list failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"strategy": run, "events": events})
}

// UpdateStatus changes a run's lifecycle status. Activation runs a
// preflight over the exchange connection first.
func (h *StrategyHandler) UpdateStatus(c *gin.Context) {
	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	ctx := c.Request.Context()
	run, err := h.strategies.GetStrategyRun(ctx, c.Param("id"))
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrStoreDown, "strategy run lookup failed", err))
		return
	}
	if run == nil {
		c.Error(apperrors.NewNotFound("strategy run not found"))
		return
	}

	if req.Status == model.StatusActive {
		conn, err := h.strategies.GetConnection(ctx, run.ExchangeConnectionID)
		if err != nil {
			c.Error(apperrors.New(apperrors.ErrStoreDown, "connection lookup failed", err))
			return
		}
		if conn == nil {
			c.Error(apperrors.NewInvalidRequest("cannot activate: exchange connection not found"))
			return
		}
		if conn.LastTestStatus != "ok" {
			c.Error(apperrors.NewInvalidRequest("cannot activate: exchange connection has no passing test"))
			return
		}
		if conn.EncryptedConfigB64 == "" {
			c.Error(apperrors.NewInvalidRequest("cannot activate: exchange connection has no credentials"))
			return
		}
	}

	if err := h.strategies.UpdateRunStatus(ctx, run.ID, req.Status); err != nil {
		c.Error(apperrors.New(apperrors.ErrStoreDown, "status update failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": run.ID, "status": req.Status})
}

// ExecuteTick runs a single tick for one strategy run on demand.
func (h *StrategyHandler) ExecuteTick(c *gin.Context) {
	res, err := h.orch.ExecuteTick(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrStoreDown, "tick failed", err))
		return
	}
	c.JSON(http.StatusOK, res)
}
