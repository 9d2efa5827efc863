package pipeline

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tickgate/tickgate/internal/exchange"
	"github.com/tickgate/tickgate/internal/model"
)

type recordedEvent struct {
	EventType string
	Payload   map[string]any
}

type sinkStub struct {
	events []recordedEvent
}

func (s *sinkStub) Emit(_ context.Context, _, _, eventType string, payload map[string]any) {
	s.events = append(s.events, recordedEvent{EventType: eventType, Payload: payload})
}

func (s *sinkStub) last(eventType string) *recordedEvent {
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].EventType == eventType {
			return &s.events[i]
		}
	}
	return nil
}

func baseRun() *model.StrategyRun {
	return &model.StrategyRun{
		ID:                 "run-1",
		UserID:             "user-1",
		Symbol:             "BTCUSDT",
		Timeframe:          "5m",
		Direction:          model.DirectionBoth,
		Leverage:           5,
		OrderSizePct:       10,
		InitialCapitalUSDT: 1000,
		TakeProfitPct:      3,
		StopLossPct:        1.5,
		StrategyTemplate:   TemplateRSI,
		Status:             model.StatusActive,
	}
}

func baseConn() *model.ExchangeConnection {
	return &model.ExchangeConnection{
		ID:                 "conn-1",
		UserID:             "user-1",
		Exchange:           exchange.ExchangeBinance,
		FuturesEnabled:     true,
		MaxLeverageAllowed: 10,
		MaxNotionalUSDT:    200,
		LastTestStatus:     "ok",
	}
}

// falling closes drive RSI to 0, firing a long signal.
func fallingCloses() []float64 {
	closes := make([]float64, 20)
	price := 100.0
	for i := range closes {
		closes[i] = price
		price -= 1.0
	}
	return closes
}

func risingCloses() []float64 {
	closes := make([]float64, 20)
	price := 100.0
	for i := range closes {
		closes[i] = price
		price += 1.0
	}
	return closes
}

func TestRSIIndicator(t *testing.T) {
	toDec := func(vals []float64) []decimal.Decimal {
		out := make([]decimal.Decimal, len(vals))
		for i, v := range vals {
			out[i] = decimal.NewFromFloat(v)
		}
		return out
	}

	if _, ok := RSI(toDec([]float64{1, 2, 3}), 14); ok {
		t.Fatal("expected short series to be rejected")
	}

	rsi, ok := RSI(toDec(risingCloses()), 14)
	if !ok || !rsi.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("all-gains RSI = %v, %v; want 100", rsi, ok)
	}

	rsi, ok = RSI(toDec(fallingCloses()), 14)
	if !ok || !rsi.IsZero() {
		t.Fatalf("all-losses RSI = %v, %v; want 0", rsi, ok)
	}

	// Mixed series stays inside the open interval.
	mixed := []float64{100, 101, 100, 102, 101, 103, 102, 104, 103, 105, 104, 106, 105, 107, 106, 108}
	rsi, ok = RSI(toDec(mixed), 14)
	if !ok || rsi.LessThanOrEqual(decimal.Zero) || rsi.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		t.Fatalf("mixed RSI = %v out of range", rsi)
	}
}

func TestEnvelopeBlocks(t *testing.T) {
	tests := []struct {
		name  string
		run   func(*model.StrategyRun)
		conn  func(*model.ExchangeConnection)
		block string
	}{
		{"kill switch", nil, func(c *model.ExchangeConnection) { c.KillSwitch = true }, BlockKillSwitch},
		{"futures disabled", nil, func(c *model.ExchangeConnection) { c.FuturesEnabled = false }, BlockFuturesNotEnabled},
		{"symbol not allowed", func(r *model.StrategyRun) { r.Symbol = "DOGEUSDT" }, nil, BlockSymbolNotAllowed},
		{"leverage exceeds", func(r *model.StrategyRun) { r.Leverage = 25 }, nil, BlockLeverageExceeds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, conn := baseRun(), baseConn()
			if tt.run != nil {
				tt.run(run)
			}
			if tt.conn != nil {
				tt.conn(conn)
			}
			sink := &sinkStub{}
			adapter := exchange.NewPaper()
			adapter.SeedCloses(fallingCloses())

			res := NewEngine(sink).Execute(context.Background(), run, conn, adapter)
			if res.RiskBlock != tt.block {
				t.Fatalf("RiskBlock = %q, want %q", res.RiskBlock, tt.block)
			}
			if res.OrderPlaced {
				t.Fatal("blocked tick must not place orders")
			}
			ev := sink.last(model.EventRiskBlock)
			if ev == nil || ev.Payload["reason"] != tt.block {
				t.Fatalf("risk_block event missing or wrong: %+v", ev)
			}
		})
	}
}

func TestLongSignalPlacesOrderWithBrackets(t *testing.T) {
	run, conn := baseRun(), baseConn()
	sink := &sinkStub{}
	adapter := exchange.NewPaper()
	adapter.SeedCloses(fallingCloses())

	res := NewEngine(sink).Execute(context.Background(), run, conn, adapter)
	if res.Err != nil || res.RiskBlock != "" {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if res.Signal != SignalLong || !res.OrderPlaced {
		t.Fatalf("Signal=%q OrderPlaced=%v, want long+placed", res.Signal, res.OrderPlaced)
	}

	orders := adapter.Orders()
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want 1", len(orders))
	}
	o := orders[0]
	if o.Side != "buy" {
		t.Fatalf("order side = %q, want buy", o.Side)
	}

	// notional = 1000 * 10% = 100; last close is 81.
	wantQty := decimal.NewFromInt(100).Div(decimal.NewFromInt(81)).Round(4)
	if !o.Qty.Equal(wantQty) {
		t.Fatalf("qty = %s, want %s", o.Qty, wantQty)
	}
	// long brackets sit above and below entry
	if !o.TakeProfitPrice.GreaterThan(decimal.NewFromInt(81)) {
		t.Fatalf("take profit %s not above entry", o.TakeProfitPrice)
	}
	if !o.StopLossPrice.LessThan(decimal.NewFromInt(81)) {
		t.Fatalf("stop loss %s not below entry", o.StopLossPrice)
	}

	if sink.last(model.EventSignal) == nil || sink.last(model.EventOrderSubmit) == nil {
		t.Fatalf("expected signal and order_submit events, got %+v", sink.events)
	}
}

func TestDirectionFilter(t *testing.T) {
	run, conn := baseRun(), baseConn()
	run.Direction = model.DirectionLong
	sink := &sinkStub{}
	adapter := exchange.NewPaper()
	adapter.SeedCloses(risingCloses()) // overbought, would be short

	res := NewEngine(sink).Execute(context.Background(), run, conn, adapter)
	if res.Signal != SignalNone || res.OrderPlaced {
		t.Fatalf("long-only run must suppress short: %+v", res)
	}
	if len(adapter.Orders()) != 0 {
		t.Fatal("no order expected")
	}
}

func TestOpenPositionHoldsSignal(t *testing.T) {
	run, conn := baseRun(), baseConn()
	sink := &sinkStub{}
	adapter := exchange.NewPaper()
	adapter.SeedCloses(fallingCloses())
	adapter.SetPosition(&exchange.Position{
		Symbol: "BTCUSDT", Side: "long",
		Qty: decimal.NewFromInt(1), EntryPrice: decimal.NewFromInt(90),
	})

	res := NewEngine(sink).Execute(context.Background(), run, conn, adapter)
	if res.Signal != SignalLong {
		t.Fatalf("Signal = %q, want long", res.Signal)
	}
	if res.OrderPlaced || len(adapter.Orders()) != 0 {
		t.Fatal("existing position must suppress new orders")
	}
}

func TestNotionalExceedsMax(t *testing.T) {
	run, conn := baseRun(), baseConn()
	run.InitialCapitalUSDT = 10000
	run.OrderSizePct = 50 // 5000 USDT notional vs 200 cap
	sink := &sinkStub{}
	adapter := exchange.NewPaper()
	adapter.SeedCloses(fallingCloses())

	res := NewEngine(sink).Execute(context.Background(), run, conn, adapter)
	if res.RiskBlock != BlockNotionalExceeds {
		t.Fatalf("RiskBlock = %q, want %q", res.RiskBlock, BlockNotionalExceeds)
	}
	if res.OrderPlaced {
		t.Fatal("notional-blocked tick must not place orders")
	}
}

func TestCandleFailureIsError(t *testing.T) {
	run, conn := baseRun(), baseConn()
	sink := &sinkStub{}
	adapter := exchange.NewPaper()
	adapter.FailCandles = true

	res := NewEngine(sink).Execute(context.Background(), run, conn, adapter)
	if res.Err == nil {
		t.Fatal("expected error result")
	}
	if sink.last(model.EventError) == nil {
		t.Fatal("expected error event")
	}
}

func TestOrderFailureIsError(t *testing.T) {
	run, conn := baseRun(), baseConn()
	sink := &sinkStub{}
	adapter := exchange.NewPaper()
	adapter.SeedCloses(fallingCloses())
	adapter.FailOrders = true

	res := NewEngine(sink).Execute(context.Background(), run, conn, adapter)
	if res.Err == nil {
		t.Fatal("expected error result")
	}
	if res.OrderPlaced {
		t.Fatal("failed order must not report as placed")
	}
}
