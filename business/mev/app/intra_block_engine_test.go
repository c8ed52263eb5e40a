package app

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mevbacktest/backtester/business/mev/domain"
)

func TestIntraBlockEngineRun_widenedSpreadWithoutProfitYieldsCandidateRow(t *testing.T) {
	poolA := mustPoolBig(t, "0x01", weth, usdc, scaled(1_000, 18), big.NewInt(2_000_000*1e6), 997, 1000, 100)
	poolB := mustPoolBig(t, "0x02", weth, usdc, scaled(1_000, 18), big.NewInt(2_010_000*1e6), 997, 1000, 100)

	pairs := []Pair{{PoolA: poolA, PoolB: poolB}}
	preBlock := map[common.Address]*domain.PoolSnapshot{
		poolA.Address: poolA,
		poolB.Address: poolB,
	}

	timeline := []domain.ReserveSnapshot{
		{
			PoolAddress: [20]byte(poolB.Address),
			TxIndex:     0,
			LogIndex:    0,
			Reserve0:    big.NewInt(0).Set(poolB.Reserve0),
			Reserve1:    big.NewInt(0).SetUint64(0), // placeholder, overwritten below
		},
	}
	timeline[0].Reserve1, _ = new(big.Int).SetString("2200000000000", 10) // 2_200_000 * 1e6

	engine := NewIntraBlockEngine(NewArbSolver(DefaultConfig()), DefaultConfig())
	// An enormous base fee guarantees the gas-converted cost dwarfs any
	// achievable profit, forcing BelowGasFloor despite the wide spread.
	hugeBaseFee := new(big.Int).Exp(big.NewInt(10), big.NewInt(30), nil)

	rows := engine.Run(pairs, preBlock, timeline, hugeBaseFee, common.HexToAddress(weth), nil)

	if len(rows) != 1 {
		t.Fatalf("expected exactly one candidate-trigger row, got %d", len(rows))
	}
	row := rows[0]
	if row.ProfitWei.Sign() != 0 {
		t.Fatalf("expected profit_wei = 0 for a candidate-trigger row, got %s", row.ProfitWei)
	}
	if row.SpreadBps.Cmp(big.NewInt(30)) < 0 {
		t.Fatalf("expected spread_bps >= 30, got %s", row.SpreadBps)
	}
	if row.Verdict != string(domain.ReasonBelowGasFloor) {
		t.Fatalf("expected verdict BelowGasFloor, got %s", row.Verdict)
	}
}

func TestIntraBlockEngineRun_untrackedPoolEventIsIgnored(t *testing.T) {
	poolA := mustPoolBig(t, "0x01", weth, usdc, scaled(1_000, 18), big.NewInt(2_000_000*1e6), 3, 1000, 100)
	poolB := mustPoolBig(t, "0x02", weth, usdc, scaled(1_000, 18), big.NewInt(2_010_000*1e6), 3, 1000, 100)
	pairs := []Pair{{PoolA: poolA, PoolB: poolB}}
	preBlock := map[common.Address]*domain.PoolSnapshot{poolA.Address: poolA, poolB.Address: poolB}

	timeline := []domain.ReserveSnapshot{
		{
			PoolAddress: [20]byte(common.HexToAddress("0xdead")),
			TxIndex:     0,
			LogIndex:    0,
			Reserve0:    big.NewInt(1),
			Reserve1:    big.NewInt(1),
		},
	}

	engine := NewIntraBlockEngine(NewArbSolver(DefaultConfig()), DefaultConfig())
	rows := engine.Run(pairs, preBlock, timeline, big.NewInt(20_000_000_000), common.HexToAddress(weth), nil)

	if len(rows) != 0 {
		t.Fatalf("expected no rows for an event on an untracked pool, got %d", len(rows))
	}
}
