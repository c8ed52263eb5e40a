package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mevbacktest/backtester/business/mev/domain"
)

// StoreFacade is the persistence boundary for everything the MEV context
// produces and reads back: blocks, transactions, receipt logs, CEX price
// points, and opportunity/intra-block verdict rows. No storage engine is
// prescribed — only these semantic operations.
type StoreFacade interface {
	PutBlock(ctx context.Context, blockNumber uint64, timestamp int64, baseFee *big.Int) error
	PutTxs(ctx context.Context, blockNumber uint64, txHashes []common.Hash) error
	PutLogs(ctx context.Context, blockNumber uint64, logCount int) error

	PutCexPoint(ctx context.Context, timestampS int64, closePriceFP int64, quoteDecimals uint8) error

	PutOpportunity(ctx context.Context, blockNumber uint64, kind domain.OutcomeKind, sourcePool, destPool common.Address, profitWei *big.Int, details string) error
	PutIntraBlockRow(ctx context.Context, row IntraBlockRow) error

	GetBlockTimestamp(ctx context.Context, blockNumber uint64) (int64, error)
	GetCexPointNear(ctx context.Context, timestampS int64, maxDeltaS int64) (*domain.CexPricePoint, bool, error)
}
