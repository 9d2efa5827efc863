package exchange

import (
	"bytes"
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
	bybitProdBase    = "https://api.bybit.com"
	bybitTestnetBase = "https://api-testnet.bybit.com"

	bybitRecvWindow = "5000"
)

// bybitIntervals maps timeframe labels to Bybit v5 kline intervals,
// which are minute counts except for day bars.
var bybitIntervals = map[string]string{
	"1m": "1", "3m": "3", "5m": "5", "15m": "15", "30m": "30",
	"1h": "60", "2h": "120", "4h": "240", "1d": "D",
}

type bybitAdapter struct {
	creds   Credentials
	baseURL string
	client  *http.Client
	now     func() time.Time
}

func newBybit(creds Credentials, testnet bool, client *http.Client) *bybitAdapter {
	base := bybitProdBase
	if testnet {
		base = bybitTestnetBase
	}
	return &bybitAdapter{creds: creds, baseURL: base, client: client, now: time.Now}
}

func (b *bybitAdapter) Name() string { return ExchangeBybit }

// sign computes the v5 signature over timestamp + api key + recv
// window + payload, where payload is the query string for GET and the
// JSON body for POST.
func (b *bybitAdapter) sign(timestamp, payload string) string {
	mac := hmac.New(sha256.New, []byte(b.creds.APISecret))
	mac.Write([]byte(timestamp + b.creds.APIKey + bybitRecvWindow + payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (b *bybitAdapter) do(ctx context.Context, method, path string, query url.Values, jsonBody any, signed bool) ([]byte, error) {
	var payload string
	var bodyReader io.Reader
	if query != nil {
		payload = query.Encode()
	}
	if jsonBody != nil {
		raw, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, err
		}
		payload = string(raw)
		bodyReader = bytes.NewReader(raw)
	}

	reqURL := b.baseURL + path
	if query != nil {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, err
	}
	if jsonBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if signed {
		ts := strconv.FormatInt(b.now().UnixMilli(), 10)
		req.Header.Set("X-BAPI-API-KEY", b.creds.APIKey)
		req.Header.Set("X-BAPI-TIMESTAMP", ts)
		req.Header.Set("X-BAPI-RECV-WINDOW", bybitRecvWindow)
		req.Header.Set("X-BAPI-SIGN", b.sign(ts, payload))
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "bybit request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "bybit response read failed", err)
	}
	if resp.StatusCode >= 400 {
		return nil, apperrors.New(apperrors.ErrUpstream,
			fmt.Sprintf("bybit %s %s: status %d: %s", method, path, resp.StatusCode, truncate(body, 256)), nil)
	}
	return body, nil
}

// bybitEnvelope is the v5 response wrapper; retCode 0 is success.
type bybitEnvelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

func (b *bybitAdapter) unwrap(body []byte, what string) (json.RawMessage, error) {
	var env bybitEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "bybit "+what+" parse failed", err)
	}
	if env.RetCode != 0 {
		return nil, apperrors.New(apperrors.ErrUpstream,
			fmt.Sprintf("bybit %s: retCode %d: %s", what, env.RetCode, env.RetMsg), nil)
	}
	return env.Result, nil
}

func (b *bybitAdapter) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	byInterval, ok := bybitIntervals[interval]
	if !ok {
		return nil, fmt.Errorf("unsupported interval: %s", interval)
	}

	query := url.Values{}
	query.Set("category", "linear")
	query.Set("symbol", symbol)
	query.Set("interval", byInterval)
	query.Set("limit", strconv.Itoa(limit))

	body, err := b.do(ctx, http.MethodGet, "/v5/market/kline", query, nil, false)
	if err != nil {
		return nil, err
	}
	result, err := b.unwrap(body, "kline")
	if err != nil {
		return nil, err
	}

	var res struct {
		List [][]string `json:"list"`
	}
	if err := json.Unmarshal(result, &res); err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "bybit kline parse failed", err)
	}

	// Bybit returns newest-first; reverse to oldest-first.
	candles := make([]Candle, 0, len(res.List))
	for i := len(res.List) - 1; i >= 0; i-- {
		row := res.List[i]
		if len(row) < 6 {
			continue
		}
		startMs, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			continue
		}
		c := Candle{OpenTime: time.UnixMilli(startMs).UTC()}
		var perr error
		c.Open, perr = parseDec(row[1], perr)
		c.High, perr = parseDec(row[2], perr)
		c.Low, perr = parseDec(row[3], perr)
		c.Close, perr = parseDec(row[4], perr)
		c.Volume, perr = parseDec(row[5], perr)
		if perr != nil {
			return nil, apperrors.New(apperrors.ErrUpstream, "bybit kline parse failed", perr)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (b *bybitAdapter) AccountSummary(ctx context.Context) (AccountSummary, error) {
	query := url.Values{}
	query.Set("accountType", "UNIFIED")
	query.Set("coin", "USDT")

	body, err := b.do(ctx, http.MethodGet, "/v5/account/wallet-balance", query, nil, true)
	if err != nil {
		return AccountSummary{}, err
	}
	result, err := b.unwrap(body, "wallet-balance")
	if err != nil {
		return AccountSummary{}, err
	}

	var res struct {
		List []struct {
			Coin []struct {
				Coin                string `json:"coin"`
				WalletBalance       string `json:"walletBalance"`
				AvailableToWithdraw string `json:"availableToWithdraw"`
			} `json:"coin"`
		} `json:"list"`
	}
	if err := json.Unmarshal(result, &res); err != nil {
		return AccountSummary{}, apperrors.New(apperrors.ErrUpstream, "bybit wallet-balance parse failed", err)
	}

	for _, acct := range res.List {
		for _, coin := range acct.Coin {
			if coin.Coin != "USDT" {
				continue
			}
			total, err := decimal.NewFromString(coin.WalletBalance)
			if err != nil {
				return AccountSummary{}, apperrors.New(apperrors.ErrUpstream, "bybit wallet-balance parse failed", err)
			}
			avail := total
			if coin.AvailableToWithdraw != "" {
				if a, err := decimal.NewFromString(coin.AvailableToWithdraw); err == nil {
					avail = a
				}
			}
			return AccountSummary{AvailableUSDT: avail, TotalUSDT: total}, nil
		}
	}
	return AccountSummary{}, nil
}

func (b *bybitAdapter) OpenPosition(ctx context.Context, symbol string) (*Position, error) {
	query := url.Values{}
	query.Set("category", "linear")
	query.Set("symbol", symbol)

	body, err := b.do(ctx, http.MethodGet, "/v5/position/list", query, nil, true)
	if err != nil {
		return nil, err
	}
	result, err := b.unwrap(body, "position list")
	if err != nil {
		return nil, err
	}

	var res struct {
		List []struct {
			Symbol   string `json:"symbol"`
			Side     string `json:"side"` // Buy | Sell | None
			Size     string `json:"size"`
			AvgPrice string `json:"avgPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(result, &res); err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "bybit position parse failed", err)
	}

	for _, row := range res.List {
		if row.Symbol != symbol || row.Side == "None" {
			continue
		}
		size, err := decimal.NewFromString(row.Size)
		if err != nil || size.IsZero() {
			continue
		}
		entry, _ := decimal.NewFromString(row.AvgPrice)
		side := "long"
		if row.Side == "Sell" {
			side = "short"
		}
		return &Position{Symbol: symbol, Side: side, Qty: size, EntryPrice: entry}, nil
	}
	return nil, nil
}

func (b *bybitAdapter) PlaceOrder(ctx context.Context, p OrderParams) (OrderResult, error) {
	order := map[string]any{
		"category":  "linear",
		"symbol":    p.Symbol,
		"side":      bybitSide(p.Side),
		"orderType": "Market",
		"qty":       p.Qty.String(),
	}
	if p.ReduceOnly {
		order["reduceOnly"] = true
	}
	// Bybit attaches bracket exits inline on the entry order.
	if !p.TakeProfitPrice.IsZero() {
		order["takeProfit"] = p.TakeProfitPrice.String()
	}
	if !p.StopLossPrice.IsZero() {
		order["stopLoss"] = p.StopLossPrice.String()
	}

	body, err := b.do(ctx, http.MethodPost, "/v5/order/create", nil, order, true)
	if err != nil {
		return OrderResult{}, err
	}
	result, err := b.unwrap(body, "order create")
	if err != nil {
		return OrderResult{}, err
	}

	var res struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(result, &res); err != nil {
		return OrderResult{}, apperrors.New(apperrors.ErrUpstream, "bybit order parse failed", err)
	}

	return OrderResult{
		OrderID:   res.OrderID,
		Symbol:    p.Symbol,
		Side:      p.Side,
		Qty:       p.Qty,
		Status:    "submitted",
		Submitted: b.now().UTC(),
	}, nil
}

func bybitSide(side string) string {
	if side == "sell" {
		return "Sell"
	}
	return "Buy"
}

func parseDec(s string, prev error) (decimal.Decimal, error) {
	if prev != nil {
		return decimal.Zero, prev
	}
	return decimal.NewFromString(s)
}
