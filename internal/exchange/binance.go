package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tickgate/tickgate/internal/pkg/apperrors"
)

const (
	binanceProdBase    = "https://fapi.binance.com"
	binanceTestnetBase = "https://demo-fapi.binance.com"
)

// binanceIntervals maps internal timeframe labels to Binance kline
// interval strings. They happen to coincide today but the mapping is
// kept explicit.
var binanceIntervals = map[string]string{
	"1m": "1m", "3m": "3m", "5m": "5m", "15m": "15m", "30m": "30m",
	"1h": "1h", "2h": "2h", "4h": "4h", "1d": "1d",
}

type binanceAdapter struct {
	creds   Credentials
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func newBinance(creds Credentials, testnet bool, client *http.Client) *binanceAdapter {
	base := binanceProdBase
	if testnet {
		base = binanceTestnetBase
	}
	return &binanceAdapter{creds: creds, baseURL: base, client: client, now: time.Now}
}

func (b *binanceAdapter) Name() string { return ExchangeBinance }

func (b *binanceAdapter) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(b.creds.APISecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

func (b *binanceAdapter) do(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if signed {
		params.Set("timestamp", strconv.FormatInt(b.now().UnixMilli(), 10))
		params.Set("recvWindow", "5000")
		params.Set("signature", b.sign(params.Encode()))
	}

	reqURL := b.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if signed {
		req.Header.Set("X-MBX-APIKEY", b.creds.APIKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "binance request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "binance response read failed", err)
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.New(apperrors.ErrUpstream,
			fmt.Sprintf("binance %s %s: status %d: %s", method, path, resp.StatusCode, truncate(body, 256)), nil)
	}
	return body, nil
}

func (b *binanceAdapter) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	binInterval, ok := binanceIntervals[interval]
	if !ok {
		return nil, fmt.Errorf("unsupported interval: %s", interval)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", binInterval)
	params.Set("limit", strconv.Itoa(limit))

	body, err := b.do(ctx, http.MethodGet, "/fapi/v1/klines", params, false)
	if err != nil {
		return nil, err
	}

	// Each kline row is a mixed-type JSON array:
	// [openTime, open, high, low, close, volume, ...]
	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "binance klines parse failed", err)
	}

	candles := make([]Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			continue
		}
		c := Candle{OpenTime: time.UnixMilli(openMs).UTC()}
		var perr error
		c.Open, perr = decimalField(row[1], perr)
		c.High, perr = decimalField(row[2], perr)
		c.Low, perr = decimalField(row[3], perr)
		c.Close, perr = decimalField(row[4], perr)
		c.Volume, perr = decimalField(row[5], perr)
		if perr != nil {
			return nil, apperrors.New(apperrors.ErrUpstream, "binance klines parse failed", perr)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (b *binanceAdapter) AccountSummary(ctx context.Context) (AccountSummary, error) {
	body, err := b.do(ctx, http.MethodGet, "/fapi/v2/account", nil, true)
	if err != nil {
		return AccountSummary{}, err
	}

	var acct struct {
		AvailableBalance   string `json:"availableBalance"`
		TotalWalletBalance string `json:"totalWalletBalance"`
	}
	if err := json.Unmarshal(body, &acct); err != nil {
		return AccountSummary{}, apperrors.New(apperrors.ErrUpstream, "binance account parse failed", err)
	}

	avail, err := decimal.NewFromString(acct.AvailableBalance)
	if err != nil {
		return AccountSummary{}, apperrors.New(apperrors.ErrUpstream, "binance account parse failed", err)
	}
	total, err := decimal.NewFromString(acct.TotalWalletBalance)
	if err != nil {
		return AccountSummary{}, apperrors.New(apperrors.ErrUpstream, "binance account parse failed", err)
	}
	return AccountSummary{AvailableUSDT: avail, TotalUSDT: total}, nil
}

func (b *binanceAdapter) OpenPosition(ctx context.Context, symbol string) (*Position, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := b.do(ctx, http.MethodGet, "/fapi/v2/positionRisk", params, true)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Symbol      string `json:"symbol"`
		PositionAmt string `json:"positionAmt"`
		EntryPrice  string `json:"entryPrice"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "binance position parse failed", err)
	}

	for _, row := range rows {
		if row.Symbol != symbol {
			continue
		}
		amt, err := decimal.NewFromString(row.PositionAmt)
		if err != nil || amt.IsZero() {
			continue
		}
		entry, _ := decimal.NewFromString(row.EntryPrice)
		side := "long"
		if amt.IsNegative() {
			side = "short"
		}
		return &Position{Symbol: symbol, Side: side, Qty: amt.Abs(), EntryPrice: entry}, nil
	}
	return nil, nil
}

func (b *binanceAdapter) PlaceOrder(ctx context.Context, p OrderParams) (OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", p.Symbol)
	params.Set("side", binanceSide(p.Side))
	params.Set("type", "MARKET")
	params.Set("quantity", p.Qty.String())
	if p.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	body, err := b.do(ctx, http.MethodPost, "/fapi/v1/order", params, true)
	if err != nil {
		return OrderResult{}, err
	}

	var ack struct {
		OrderID  int64  `json:"orderId"`
		Symbol   string `json:"symbol"`
		Status   string `json:"status"`
		AvgPrice string `json:"avgPrice"`
	}
	if err := json.Unmarshal(body, &ack); err != nil {
		return OrderResult{}, apperrors.New(apperrors.ErrUpstream, "binance order parse failed", err)
	}

	// Bracket exits are best effort. A failed TP/SL placement does not
	// roll back the filled entry; the caller surfaces the error event.
	if !p.ReduceOnly {
		b.placeBracket(ctx, p)
	}

	avg, _ := decimal.NewFromString(ack.AvgPrice)
	return OrderResult{
		OrderID:   strconv.FormatInt(ack.OrderID, 10),
		Symbol:    ack.Symbol,
		Side:      p.Side,
		Qty:       p.Qty,
		AvgPrice:  avg,
		Status:    ack.Status,
		Submitted: b.now().UTC(),
	}, nil
}

func (b *binanceAdapter) placeBracket(ctx context.Context, p OrderParams) {
	exitSide := "SELL"
	if p.Side == "sell" {
		exitSide = "BUY"
	}
	if !p.TakeProfitPrice.IsZero() {
		tp := url.Values{}
		tp.Set("symbol", p.Symbol)
		tp.Set("side", exitSide)
		tp.Set("type", "TAKE_PROFIT_MARKET")
		tp.Set("stopPrice", p.TakeProfitPrice.String())
		tp.Set("closePosition", "true")
		_, _ = b.do(ctx, http.MethodPost, "/fapi/v1/order", tp, true)
	}
	if !p.StopLossPrice.IsZero() {
		sl := url.Values{}
		sl.Set("symbol", p.Symbol)
		sl.Set("side", exitSide)
		sl.Set("type", "STOP_MARKET")
		sl.Set("stopPrice", p.StopLossPrice.String())
		sl.Set("closePosition", "true")
		_, _ = b.do(ctx, http.MethodPost, "/fapi/v1/order", sl, true)
	}
}

func binanceSide(side string) string {
	if side == "sell" {
		return "SELL"
	}
	return "BUY"
}

func decimalField(raw json.RawMessage, prev error) (decimal.Decimal, error) {
	if prev != nil {
		return decimal.Zero, prev
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
