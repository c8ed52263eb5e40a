// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/mevbacktest/backtester/business/pricing/domain"
	"github.com/mevbacktest/backtester/internal/asset"
	"github.com/shopspring/decimal"
)

// PricingService coordinates price fetching from a historical CEX klines
// feed and a live DEX quoter, for ad hoc CEX/DEX comparison alongside a
// backtest run.
type PricingService struct {
	cex KlinesProvider
	dex DEXProvider
}

// NewPricingService creates a new PricingService with the given providers.
func NewPricingService(cex KlinesProvider, dex DEXProvider) *PricingService {
	return &PricingService{
		cex: cex,
		dex: dex,
	}
}

// GetPriceSnapshot retrieves the latest CEX reference price (from the most
// recent kline close) and a DEX quote for the same trade size, for side by
// side comparison.
func (s *PricingService) GetPriceSnapshot(ctx context.Context, pair domain.Pair, symbol, interval string, tradeSize decimal.Decimal) (*domain.PriceSnapshot, error) {
	klines, err := s.cex.GetKlines(ctx, symbol, interval, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to get CEX klines: %w", err)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("no klines returned for %s", symbol)
	}
	latest := klines[len(klines)-1]
	rate := decimal.NewFromFloat(latest.ClosePrice)
	cexPrice := asset.NewPrice(pair.Base, pair.Quote, rate, time.UnixMilli(latest.OpenTimeMs))

	amountIn := toRawAmount(pair.Base, tradeSize)

	tokenIn := pair.Base.Address()
	tokenOut := pair.Quote.Address()
	if pair.Base.IsNative() {
		tokenIn = asset.AddrWETHEthereum
	}
	if pair.Quote.IsNative() {
		tokenOut = asset.AddrWETHEthereum
	}

	dexQuote, err := s.dex.GetQuote(ctx, tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, fmt.Errorf("failed to get DEX quote: %w", err)
	}

	price := domain.NewPrice(cexPrice, asset.NewAmount(pair.Base, amountIn), domain.SideBuy, "binance")

	return &domain.PriceSnapshot{
		Pair:      pair,
		CEXPrice:  &price,
		DEXQuote:  dexQuote,
		Timestamp: time.Now(),
	}, nil
}

// Spread computes the CEX/DEX spread in basis points for a snapshot already
// retrieved via GetPriceSnapshot.
func (s *PricingService) Spread(snapshot *domain.PriceSnapshot) domain.Spread {
	cex := snapshot.CEXPrice.Rate.Rate()
	dex := snapshot.DEXQuote.Price.Rate()
	return domain.CalculateSpread(cex, dex)
}

// toRawAmount converts a decimal amount to raw (wei-like) representation.
func toRawAmount(a *asset.Asset, amount decimal.Decimal) *big.Int {
	multiplier := decimal.NewFromInt(10).Pow(decimal.NewFromInt(int64(a.Decimals())))
	raw := amount.Mul(multiplier)
	result := raw.BigInt()
	return result
}
