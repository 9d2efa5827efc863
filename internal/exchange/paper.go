package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PaperAdapter is an in-memory adapter used by tests and local
// development. Candles and balances are seeded by the caller; orders
// are acknowledged immediately and tracked as open positions.
type PaperAdapter struct {
	mu        sync.Mutex
	candles   []Candle
	summary   AccountSummary
	positions map[string]*Position
	orders    []OrderParams
	seq       int

	// FailOrders makes PlaceOrder return an error, for exercising the
	// error classification path.
	FailOrders  bool
	FailCandles bool
}

func NewPaper() *PaperAdapter {
	return &PaperAdapter{
		summary:   AccountSummary{AvailableUSDT: decimal.NewFromInt(1000), TotalUSDT: decimal.NewFromInt(1000)},
		positions: make(map[string]*Position),
	}
}

func (p *PaperAdapter) Name() string { return "paper" }

// SeedCandles replaces the canned candle series returned by FetchCandles.
func (p *PaperAdapter) SeedCandles(candles []Candle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candles = candles
}

// SeedCloses builds a synthetic series from close prices one minute apart.
func (p *PaperAdapter) SeedCloses(closes []float64) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]Candle, len(closes))
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		candles[i] = Candle{
			OpenTime: base.Add(time.Duration(i) * time.Minute),
			Open:     d, High: d, Low: d, Close: d,
			Volume: decimal.NewFromInt(1),
		}
	}
	p.SeedCandles(candles)
}

func (p *PaperAdapter) SetBalance(availableUSDT float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d := decimal.NewFromFloat(availableUSDT)
	p.summary = AccountSummary{AvailableUSDT: d, TotalUSDT: d}
}

func (p *PaperAdapter) SetPosition(pos *Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos == nil {
		return
	}
	p.positions[pos.Symbol] = pos
}

// Orders returns all orders placed so far, in submission order.
func (p *PaperAdapter) Orders() []OrderParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]OrderParams, len(p.orders))
	copy(out, p.orders)
	return out
}

func (p *PaperAdapter) FetchCandles(_ context.Context, _, _ string, limit int) ([]Candle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailCandles {
		return nil, fmt.Errorf("paper: candle feed unavailable")
	}
	if limit > 0 && len(p.candles) > limit {
		return p.candles[len(p.candles)-limit:], nil
	}
	out := make([]Candle, len(p.candles))
	copy(out, p.candles)
	return out, nil
}

func (p *PaperAdapter) AccountSummary(_ context.Context) (AccountSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.summary, nil
}

func (p *PaperAdapter) OpenPosition(_ context.Context, symbol string) (*Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions[symbol], nil
}

func (p *PaperAdapter) PlaceOrder(_ context.Context, params OrderParams) (OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailOrders {
		return OrderResult{}, fmt.Errorf("paper: order rejected")
	}
	p.seq++
	p.orders = append(p.orders, params)

	side := "long"
	if params.Side == "sell" {
		side = "short"
	}
	var last decimal.Decimal
	if len(p.candles) > 0 {
		last = p.candles[len(p.candles)-1].Close
	}
	p.positions[params.Symbol] = &Position{
		Symbol: params.Symbol, Side: side, Qty: params.Qty, EntryPrice: last,
	}
	return OrderResult{
		OrderID: fmt.Sprintf("paper-%d", p.seq),
		Symbol:  params.Symbol,
		Side:    params.Side,
		Qty:     params.Qty,
		AvgPrice: last,
		Status:  "filled",
	}, nil
}
