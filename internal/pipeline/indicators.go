package pipeline

import "github.com/shopspring/decimal"

// RSI computes the simple-average relative strength index over the
// last `period` deltas of the close series. Returns ok=false when the
// series is too short. A window with zero average loss yields 100.
func RSI(closes []decimal.Decimal, period int) (decimal.Decimal, bool) {
	if period <= 0 || len(closes) < period+1 {
		return decimal.Zero, false
	}

	var gains, losses decimal.Decimal
	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		delta := closes[i].Sub(closes[i-1])
		if delta.IsPositive() {
			gains = gains.Add(delta)
		} else {
			losses = losses.Add(delta.Neg())
		}
	}

	p := decimal.NewFromInt(int64(period))
	avgGain := gains.Div(p)
	avgLoss := losses.Div(p)

	if avgLoss.IsZero() {
		return decimal.NewFromInt(100), true
	}

	rs := avgGain.Div(avgLoss)
	hundred := decimal.NewFromInt(100)
	rsi := hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs)))
	return rsi, true
}
