// Package app contains application services and port definitions for the pricing context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mevbacktest/backtester/business/pricing/domain"
)

// KlinesProvider defines the interface for historical CEX candle ingestion.
// It replaces a live-orderbook feed: the backtester only ever needs a
// reference close price at a given point in history, never current depth.
type KlinesProvider interface {
	// GetKlines retrieves up to limit candles for symbol at the given
	// interval (e.g. "1m"), most recent last.
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error)
}

// DEXProvider defines the interface for decentralized exchange price providers.
type DEXProvider interface {
	// GetQuote retrieves a price quote for swapping tokens on a DEX.
	GetQuote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*domain.Quote, error)
}
