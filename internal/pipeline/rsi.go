// Package pipeline evaluates a strategy template against live market
// data and, when a signal fires, submits the resulting order through
// an exchange adapter. The pipeline owns the connection-envelope risk
// checks; account-level risk is gated before it ever runs.
package pipeline

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tickgate/tickgate/internal/exchange"
	"github.com/tickgate/tickgate/internal/model"
	"github.com/tickgate/tickgate/internal/pkg/logger"
	"github.com/tickgate/tickgate/internal/pkg/metrics"
)

const (
	TemplateRSI = "rsi"

	rsiPeriod     = 14
	rsiOversold   = 30
	rsiOverbought = 70
	candleLimit   = 50

	defaultMaxLeverage     = 10
	defaultMaxNotionalUSDT = 200
	defaultOrderSizePct    = 10
	defaultTakeProfitPct   = 3.0
	defaultStopLossPct     = 1.5
)

// allowedSymbols is the tradable universe. Anything else is rejected
// as a connection-envelope risk block, never an error.
var allowedSymbols = map[string]bool{
	"BTCUSDT": true,
	"ETHUSDT": true,
	"SOLUSDT": true,
}

// Envelope risk block reasons, persisted in risk_block event payloads.
const (
	BlockKillSwitch        = "kill_switch"
	BlockFuturesNotEnabled = "futures_not_enabled"
	BlockSymbolNotAllowed  = "symbol_not_allowed"
	BlockLeverageExceeds   = "leverage_exceeds_max"
	BlockNotionalExceeds   = "notional_exceeds_max"
)

// Signal values produced by strategy evaluation.
const (
	SignalLong  = "long"
	SignalShort = "short"
	SignalNone  = "none"
)

// EventSink receives audit events emitted while the pipeline runs.
// Implementations sanitize and persist; emission is best effort.
type EventSink interface {
	Emit(ctx context.Context, strategyRunID, userID, eventType string, payload map[string]any)
}

// Result is the pipeline outcome for one tick. Exactly one of
// RiskBlock or Err is set on non-clean paths; a clean evaluation has
// both empty and Signal set (possibly to none).
type Result struct {
	Signal      string
	RSI         *decimal.Decimal
	OrderPlaced bool
	OrderID     string
	RiskBlock   string
	Err         error
}

// Engine evaluates the RSI template.
type Engine struct {
	events EventSink
}

func NewEngine(events EventSink) *Engine {
	return &Engine{events: events}
}

// Execute runs one full evaluate-and-trade pass. The adapter already
// carries resolved credentials; conn supplies the risk envelope.
func (e *Engine) Execute(ctx context.Context, run *model.StrategyRun, conn *model.ExchangeConnection, adapter exchange.Adapter) Result {
	if block := e.checkEnvelope(run, conn); block != "" {
		e.emitRiskBlock(ctx, run, block)
		return Result{Signal: SignalNone, RiskBlock: block}
	}

	candles, err := adapter.FetchCandles(ctx, run.Symbol, run.Timeframe, candleLimit)
	if err != nil {
		return e.fail(ctx, run, fmt.Errorf("fetch candles: %w", err))
	}
	closes := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	rsi, ok := RSI(closes, rsiPeriod)
	if !ok {
		return e.fail(ctx, run, fmt.Errorf("insufficient candles: have %d, need %d", len(closes), rsiPeriod+1))
	}

	signal := classify(rsi, run.Direction)
	e.events.Emit(ctx, run.ID, run.UserID, model.EventSignal, map[string]any{
		"symbol":    run.Symbol,
		"timeframe": run.Timeframe,
		"template":  run.StrategyTemplate,
		"rsi":       rsi.Round(2).InexactFloat64(),
		"signal":    signal,
	})

	if signal == SignalNone {
		return Result{Signal: SignalNone, RSI: &rsi}
	}

	// One position per symbol; an existing one means hold the signal.
	pos, err := adapter.OpenPosition(ctx, run.Symbol)
	if err != nil {
		return e.fail(ctx, run, fmt.Errorf("load position: %w", err))
	}
	if pos != nil {
		logger.Info("position already open, holding signal",
			"strategy_run_id", run.ID, "symbol", run.Symbol, "signal", signal)
		return Result{Signal: signal, RSI: &rsi}
	}

	lastClose := closes[len(closes)-1]
	notional := e.notional(run)
	maxNotional := decimal.NewFromFloat(defaultMaxNotionalUSDT)
	if conn.MaxNotionalUSDT > 0 {
		maxNotional = decimal.NewFromFloat(conn.MaxNotionalUSDT)
	}
	if notional.GreaterThan(maxNotional) {
		e.emitRiskBlock(ctx, run, BlockNotionalExceeds)
		return Result{Signal: signal, RSI: &rsi, RiskBlock: BlockNotionalExceeds}
	}

	qty := notional.Div(lastClose).Round(4)
	params := exchange.OrderParams{
		Symbol:       run.Symbol,
		Side:         orderSide(signal),
		Qty:          qty,
		Leverage:     run.Leverage,
		MarginMode:   run.MarginMode,
		PositionMode: run.PositionMode,
	}
	params.TakeProfitPrice, params.StopLossPrice = bracketPrices(lastClose, signal, run.TakeProfitPct, run.StopLossPct)

	result, err := adapter.PlaceOrder(ctx, params)
	if err != nil {
		return e.fail(ctx, run, fmt.Errorf("place order: %w", err))
	}

	e.events.Emit(ctx, run.ID, run.UserID, model.EventOrderSubmit, map[string]any{
		"order_id": result.OrderID,
		"symbol":   result.Symbol,
		"side":     result.Side,
		"qty":      result.Qty.String(),
		"notional": notional.Round(2).String(),
		"status":   result.Status,
	})

	return Result{Signal: signal, RSI: &rsi, OrderPlaced: true, OrderID: result.OrderID}
}

// checkEnvelope applies the connection-level risk envelope in a fixed
// order so the first violation is the one reported.
func (e *Engine) checkEnvelope(run *model.StrategyRun, conn *model.ExchangeConnection) string {
	if conn.KillSwitch {
		return BlockKillSwitch
	}
	if !conn.FuturesEnabled {
		return BlockFuturesNotEnabled
	}
	if !allowedSymbols[run.Symbol] {
		return BlockSymbolNotAllowed
	}
	maxLev := conn.MaxLeverageAllowed
	if maxLev <= 0 {
		maxLev = defaultMaxLeverage
	}
	if run.Leverage > maxLev {
		return BlockLeverageExceeds
	}
	return ""
}

func (e *Engine) notional(run *model.StrategyRun) decimal.Decimal {
	capital := run.InitialCapitalUSDT
	if capital <= 0 {
		capital = defaultMaxNotionalUSDT
	}
	pct := run.OrderSizePct
	if pct <= 0 {
		pct = defaultOrderSizePct
	}
	return decimal.NewFromFloat(capital).
		Mul(decimal.NewFromFloat(pct)).
		Div(decimal.NewFromInt(100))
}

func (e *Engine) emitRiskBlock(ctx context.Context, run *model.StrategyRun, reason string) {
	metrics.RiskBlocks.WithLabelValues(reason).Inc()
	e.events.Emit(ctx, run.ID, run.UserID, model.EventRiskBlock, map[string]any{
		"reason": reason,
		"symbol": run.Symbol,
	})
}

func (e *Engine) fail(ctx context.Context, run *model.StrategyRun, err error) Result {
	logger.Error("pipeline failed", "strategy_run_id", run.ID, "error", err)
	e.events.Emit(ctx, run.ID, run.UserID, model.EventError, map[string]any{
		"message": err.Error(),
	})
	return Result{Signal: SignalNone, Err: err}
}

func classify(rsi decimal.Decimal, direction string) string {
	oversold := decimal.NewFromInt(rsiOversold)
	overbought := decimal.NewFromInt(rsiOverbought)

	switch {
	case rsi.LessThan(oversold):
		if direction == model.DirectionShort {
			return SignalNone
		}
		return SignalLong
	case rsi.GreaterThan(overbought):
		if direction == model.DirectionLong {
			return SignalNone
		}
		return SignalShort
	default:
		return SignalNone
	}
}

func orderSide(signal string) string {
	if signal == SignalShort {
		return "sell"
	}
	return "buy"
}

// bracketPrices derives TP/SL trigger prices from the entry close.
// Percentages fall back to defaults when the run leaves them unset.
func bracketPrices(close decimal.Decimal, signal string, tpPct, slPct float64) (tp, sl decimal.Decimal) {
	if tpPct <= 0 {
		tpPct = defaultTakeProfitPct
	}
	if slPct <= 0 {
		slPct = defaultStopLossPct
	}
	tpDelta := close.Mul(decimal.NewFromFloat(tpPct)).Div(decimal.NewFromInt(100))
	slDelta := close.Mul(decimal.NewFromFloat(slPct)).Div(decimal.NewFromInt(100))

	if signal == SignalShort {
		return close.Sub(tpDelta).Round(2), close.Add(slDelta).Round(2)
	}
	return close.Add(tpDelta).Round(2), close.Sub(slDelta).Round(2)
}
