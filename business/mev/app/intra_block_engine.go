package app

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mevbacktest/backtester/business/mev/domain"
	"github.com/mevbacktest/backtester/internal/intmath"
)

// PairState names the per-pair lifecycle stages of the intra-block walk:
// idle, evaluated, then emitted or suppressed. Run does not store a
// PairState per pair; a step's outcome shows only as a row emitted or not.
type PairState string

const (
	PairIdle      PairState = "IDLE"
	PairEvaluated PairState = "EVALUATED"
	PairEmitted   PairState = "EMITTED"
	PairSuppressed PairState = "SUPPRESSED"
)

// Pair is a tracked pool pair ArbSolver may evaluate.
type Pair struct {
	PoolA *domain.PoolSnapshot
	PoolB *domain.PoolSnapshot
}

// IntraBlockRow is one emitted record of the intra-block walk: either a
// profitable opportunity or a candidate-trigger row recording a rejection
// whose spread crossed the candidate threshold.
type IntraBlockRow struct {
	BlockNumber  uint64
	AfterTxIndex uint
	AfterLogIndex uint
	PoolA        common.Address
	PoolB        common.Address
	SpreadBps    *big.Int
	ProfitWei    *big.Int
	Direction    domain.Direction
	Verdict      string
}

// IntraBlockEngine replays a block's merged Sync timeline against a set of
// tracked pool pairs, re-evaluating only the pairs touched by each event via
// a reverse pool->pairs index built once per block.
type IntraBlockEngine struct {
	solver *ArbSolver
	cfg    Config
}

// NewIntraBlockEngine constructs an engine bound to solver and cfg.
func NewIntraBlockEngine(solver *ArbSolver, cfg Config) *IntraBlockEngine {
	return &IntraBlockEngine{solver: solver, cfg: cfg}
}

// Run walks timeline in (tx_index, log_index) order against preBlockReserves
// (pool address -> snapshot as of block N-1) and the supplied pairs,
// producing opportunity and candidate-trigger rows. baseFee, wethAddress and
// wethReferencePool are forwarded unchanged to every ArbSolver.Detect call.
func (e *IntraBlockEngine) Run(
	pairs []Pair,
	preBlockReserves map[common.Address]*domain.PoolSnapshot,
	timeline []domain.ReserveSnapshot,
	baseFee *big.Int,
	wethAddress common.Address,
	wethReferencePool *domain.PoolSnapshot,
) []IntraBlockRow {
	latest := make(map[common.Address]*domain.PoolSnapshot, len(preBlockReserves))
	for addr, snap := range preBlockReserves {
		latest[addr] = snap
	}

	reverseIndex := make(map[common.Address][]int)
	for i, pair := range pairs {
		reverseIndex[pair.PoolA.Address] = append(reverseIndex[pair.PoolA.Address], i)
		reverseIndex[pair.PoolB.Address] = append(reverseIndex[pair.PoolB.Address], i)
	}

	var rows []IntraBlockRow

	for _, event := range timeline {
		poolAddr := common.BytesToAddress(event.PoolAddress[:])
		current, ok := latest[poolAddr]
		if !ok {
			continue // Sync on a pool we are not tracking; nothing to re-evaluate.
		}

		updated, err := domain.NewPoolSnapshot(
			current.Address, current.Token0, current.Token1,
			event.Reserve0, event.Reserve1,
			current.FeeNumerator, current.FeeDenominator,
			current.BlockNumber, current.ReserveTimestamp,
		)
		if err != nil {
			continue // malformed reserves; skip this event, keep the prior snapshot live.
		}
		latest[poolAddr] = updated

		for _, pairIdx := range reverseIndex[poolAddr] {
			pair := pairs[pairIdx]
			poolA := latest[pair.PoolA.Address]
			poolB := latest[pair.PoolB.Address]
			if poolA == nil || poolB == nil {
				continue
			}

			outcome := e.solver.Detect(poolA, poolB, baseFee, wethAddress, wethReferencePool)

			switch outcome.Kind {
			case domain.KindOpportunity:
				rows = append(rows, IntraBlockRow{
					BlockNumber:   poolA.BlockNumber,
					AfterTxIndex:  event.TxIndex,
					AfterLogIndex: event.LogIndex,
					PoolA:         poolA.Address,
					PoolB:         poolB.Address,
					SpreadBps:     mustSpread(poolA, poolB),
					ProfitWei:     outcome.Op.NetProfit,
					Direction:     outcome.Op.Direction,
					Verdict:       string(domain.KindOpportunity),
				})
			case domain.KindNoOpportunity:
				spread := mustSpread(poolA, poolB)
				if spread != nil && spread.Cmp(big.NewInt(e.cfg.IntraCandidateBps)) >= 0 {
					rows = append(rows, IntraBlockRow{
						BlockNumber:   poolA.BlockNumber,
						AfterTxIndex:  event.TxIndex,
						AfterLogIndex: event.LogIndex,
						PoolA:         poolA.Address,
						PoolB:         poolB.Address,
						SpreadBps:     spread,
						ProfitWei:     big.NewInt(0),
						Verdict:       string(outcome.Reason),
					})
				}
			}
		}
	}

	return rows
}

// mustSpread returns the integer spread between two pools, or nil if the
// computation overflows the 256-bit domain (a candidate row is then simply
// not recorded for that step, consistent with the fault/verdict separation).
func mustSpread(poolA, poolB *domain.PoolSnapshot) *big.Int {
	spread, err := intmath.SpreadBpsInteger(poolA.Reserve0, poolA.Reserve1, poolB.Reserve0, poolB.Reserve1)
	if err != nil {
		return nil
	}
	return spread
}
