// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/mevbacktest/backtester/business/blockchain/domain"
)

// BlockchainService is the thin composition point a backtest driver calls
// into to fetch one block or a range. An offline replay has no use for a
// live gas price: every cost computation reads a block's own base fee.
type BlockchainService struct {
	fetcher BlockFetcher
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(fetcher BlockFetcher) *BlockchainService {
	return &BlockchainService{
		fetcher: fetcher,
	}
}

// FetchBlock retrieves a single block and its transactions-with-receipts.
func (s *BlockchainService) FetchBlock(ctx context.Context, number uint64) (*domain.Block, []domain.TxWithReceipt, error) {
	return s.fetcher.FetchBlock(ctx, number)
}

// FetchRange retrieves every block in [from, to].
func (s *BlockchainService) FetchRange(ctx context.Context, from, to uint64) (*RangeResult, error) {
	return s.fetcher.FetchRange(ctx, from, to)
}
