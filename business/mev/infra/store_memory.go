package infra

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mevbacktest/backtester/business/mev/app"
	"github.com/mevbacktest/backtester/business/mev/domain"
	"github.com/mevbacktest/backtester/internal/apperror"
)

var _ app.StoreFacade = (*MemoryStore)(nil)

type blockRecord struct {
	timestamp int64
	baseFee   *big.Int
	txHashes  []common.Hash
	logCount  int
}

// MemoryStore is an in-memory StoreFacade, single-writer per block number,
// intended for tests and small local backtests. It is safe for concurrent
// use across distinct block numbers.
type MemoryStore struct {
	mu         sync.Mutex
	blocks     map[uint64]*blockRecord
	cexPoints  []domain.CexPricePoint
	opportunities []opportunityRecord
	intraRows  []app.IntraBlockRow
}

type opportunityRecord struct {
	blockNumber uint64
	kind        domain.OutcomeKind
	sourcePool  common.Address
	destPool    common.Address
	profitWei   *big.Int
	details     string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blocks: make(map[uint64]*blockRecord)}
}

func (s *MemoryStore) PutBlock(_ context.Context, blockNumber uint64, timestamp int64, baseFee *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.blocks[blockNumber]
	if rec == nil {
		rec = &blockRecord{}
		s.blocks[blockNumber] = rec
	}
	rec.timestamp = timestamp
	rec.baseFee = new(big.Int).Set(baseFee)
	return nil
}

func (s *MemoryStore) PutTxs(_ context.Context, blockNumber uint64, txHashes []common.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.blocks[blockNumber]
	if rec == nil {
		return apperror.New(apperror.CodeNotFound, apperror.WithContext("put_txs before put_block"))
	}
	rec.txHashes = append([]common.Hash(nil), txHashes...)
	return nil
}

func (s *MemoryStore) PutLogs(_ context.Context, blockNumber uint64, logCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.blocks[blockNumber]
	if rec == nil {
		return apperror.New(apperror.CodeNotFound, apperror.WithContext("put_logs before put_block"))
	}
	rec.logCount = logCount
	return nil
}

func (s *MemoryStore) PutCexPoint(_ context.Context, timestampS int64, closePriceFP int64, quoteDecimals uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cexPoints = append(s.cexPoints, domain.CexPricePoint{
		TimestampS: timestampS, ClosePriceFP: closePriceFP, QuoteDecimals: quoteDecimals,
	})
	return nil
}

func (s *MemoryStore) PutOpportunity(_ context.Context, blockNumber uint64, kind domain.OutcomeKind, sourcePool, destPool common.Address, profitWei *big.Int, details string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opportunities = append(s.opportunities, opportunityRecord{
		blockNumber: blockNumber, kind: kind, sourcePool: sourcePool, destPool: destPool,
		profitWei: profitWei, details: details,
	})
	return nil
}

func (s *MemoryStore) PutIntraBlockRow(_ context.Context, row app.IntraBlockRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intraRows = append(s.intraRows, row)
	return nil
}

func (s *MemoryStore) GetBlockTimestamp(_ context.Context, blockNumber uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.blocks[blockNumber]
	if !ok {
		return 0, apperror.New(apperror.CodeNotFound, apperror.WithContext("block not found"))
	}
	return rec.timestamp, nil
}

// GetCexPointNear returns the CEX price point with the smallest |timestamp
// delta| to timestampS, provided that delta is within maxDeltaS.
func (s *MemoryStore) GetCexPointNear(_ context.Context, timestampS int64, maxDeltaS int64) (*domain.CexPricePoint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *domain.CexPricePoint
	bestDelta := int64(-1)
	for i := range s.cexPoints {
		p := s.cexPoints[i]
		delta := timestampS - p.TimestampS
		if delta < 0 {
			delta = -delta
		}
		if delta > maxDeltaS {
			continue
		}
		if best == nil || delta < bestDelta {
			point := p
			best = &point
			bestDelta = delta
		}
	}
	return best, best != nil, nil
}
