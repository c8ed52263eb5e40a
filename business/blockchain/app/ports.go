// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"

	"github.com/mevbacktest/backtester/business/blockchain/domain"
)

// BlockFetcher retrieves historical blocks and their transaction receipts
// over RPC, one block or one contiguous range at a time. Every leaf RPC
// call passes through a single capacity-bounded permit pool regardless of
// whether it was issued by FetchBlock directly or by a FetchRange task.
type BlockFetcher interface {
	// FetchBlock retrieves the header and every transaction-with-receipt
	// for block number n, retrying transient RPC failures.
	FetchBlock(ctx context.Context, number uint64) (*domain.Block, []domain.TxWithReceipt, error)

	// FetchRange retrieves every block in [from, to], one task per block
	// sharing the fetcher's permit pool. Blocks that still fail after the
	// retry budget are reported in RangeResult.Failed; every other block
	// in the range is returned regardless.
	FetchRange(ctx context.Context, from, to uint64) (*RangeResult, error)
}

// RangeResult is the outcome of a FetchRange call: the successfully
// fetched blocks and transactions, keyed by block number, plus the block
// numbers that exhausted their retry budget.
type RangeResult struct {
	Blocks map[uint64]*domain.Block
	Txs    map[uint64][]domain.TxWithReceipt
	Failed []uint64
}
