// Package exchange provides futures exchange adapters behind a common
// interface. Adapters carry per-call credentials and never cache them.
package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Credentials are plaintext API credentials resolved for a single tick.
// They live only for the duration of the call chain and are never
// logged or persisted.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Candle is one OHLCV bar, oldest-first in slices returned by adapters.
type Candle struct {
	OpenTime time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   decimal.Decimal
}

// AccountSummary is the subset of account state the pipeline needs.
type AccountSummary struct {
	AvailableUSDT decimal.Decimal
	TotalUSDT     decimal.Decimal
}

// Position is an open futures position for one symbol.
type Position struct {
	Symbol     string
	Side       string // long | short
	Qty        decimal.Decimal
	EntryPrice decimal.Decimal
}

// OrderParams describes one market entry order with optional bracket
// exits attached.
type OrderParams struct {
	Symbol          string
	Side            string // buy | sell
	Qty             decimal.Decimal
	Leverage        int
	MarginMode      string
	PositionMode    string
	TakeProfitPrice decimal.Decimal
	StopLossPrice   decimal.Decimal
	ReduceOnly      bool
}

// OrderResult is the exchange acknowledgement of a submitted order.
type OrderResult struct {
	OrderID   string
	Symbol    string
	Side      string
	Qty       decimal.Decimal
	AvgPrice  decimal.Decimal
	Status    string
	Submitted time.Time
}

// Adapter is the per-exchange surface the signal pipeline executes
// against. Implementations are stateless; credentials arrive at
// construction and are scoped to one tick.
type Adapter interface {
	Name() string
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	AccountSummary(ctx context.Context) (AccountSummary, error)
	OpenPosition(ctx context.Context, symbol string) (*Position, error)
	PlaceOrder(ctx context.Context, params OrderParams) (OrderResult, error)
}
