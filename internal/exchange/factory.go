package exchange

import (
	"fmt"
	"net/http"
	"time"
)

const (
	ExchangeBinance = "binance"
	ExchangeBybit   = "bybit"

	EnvironmentProduction = "production"
	EnvironmentTestnet    = "testnet"
)

var defaultHTTPClient = &http.Client{Timeout: 10 * time.Second}

// New builds an adapter for the given exchange and environment. The
// credentials are bound to the returned adapter and discarded with it.
func New(exchange string, creds Credentials, environment string) (Adapter, error) {
	testnet := environment == EnvironmentTestnet
	switch exchange {
	case ExchangeBinance:
		return newBinance(creds, testnet, defaultHTTPClient), nil
	case ExchangeBybit:
		return newBybit(creds, testnet, defaultHTTPClient), nil
	default:
		return nil, fmt.Errorf("unsupported exchange: %s", exchange)
	}
}
