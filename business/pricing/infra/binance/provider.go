// Package binance implements the pricing context's CEX side: a historical
// klines REST client standing in for the live depth feed a trading bot
// would use, since a backtester only ever needs a reference close price at
// a point in history, never current book depth.
package binance

import (
	"context"

	"github.com/mevbacktest/backtester/business/pricing/app"
	"github.com/mevbacktest/backtester/business/pricing/domain"
	"github.com/mevbacktest/backtester/internal/logger"
)

const tracerName = "mevbacktest.pricing.binance"

// Ensure Provider implements KlinesProvider.
var _ app.KlinesProvider = (*Provider)(nil)

// Provider implements KlinesProvider for Binance via REST klines.
type Provider struct {
	http *HTTPClient
}

// NewProvider constructs a Provider backed by a Binance REST HTTP client.
func NewProvider(cfg HTTPClientConfig, log logger.LoggerInterface) (*Provider, error) {
	client, err := NewHTTPClient(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Provider{http: client}, nil
}

// GetKlines retrieves historical candles for symbol at the given interval.
func (p *Provider) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error) {
	return p.http.GetKlines(ctx, symbol, interval, limit)
}
