package app

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mevbacktest/backtester/business/mev/domain"
)

func TestCexDexEvaluate_noPricePointIsNoCexData(t *testing.T) {
	pool := mustPool(t, "0x01", weth, usdc, 1_000*1e6, 2_000_000*1e6, 3, 1000, 100)
	eval := NewCexDexEvaluator(DefaultConfig())

	verdict := eval.Evaluate(pool, nil, 1_700_000_000, common.HexToAddress(weth), 30)
	if verdict.Kind != domain.VerdictNoCexData {
		t.Fatalf("expected NoCexData, got %v", verdict.Kind)
	}
}

func TestCexDexEvaluate_staleCexDataRegardlessOfPrice(t *testing.T) {
	pool := mustPool(t, "0x01", weth, usdc, 1_000*1e6, 2_000_000*1e6, 3, 1000, 100)
	eval := NewCexDexEvaluator(DefaultConfig())

	price := &domain.CexPricePoint{TimestampS: 1_699_999_800, ClosePriceFP: 2_000_00000000, QuoteDecimals: 6}
	verdict := eval.Evaluate(pool, price, 1_700_000_000, common.HexToAddress(weth), 30)
	if verdict.Kind != domain.VerdictStaleCexData {
		t.Fatalf("expected StaleCexData, got %v", verdict.Kind)
	}
}

func TestCexDexEvaluate_withinFeeSpreadIsSpreadBelowFee(t *testing.T) {
	// Pool implies ~2000 quote per WETH; CEX price matches almost exactly,
	// well inside a 30bps fee gate.
	pool := mustPoolBig(t, "0x01", weth, usdc, scaled(1_000, 18), big.NewInt(2_000_000*1e6), 3, 1000, 100)
	eval := NewCexDexEvaluator(DefaultConfig())

	price := &domain.CexPricePoint{TimestampS: 1_700_000_000, ClosePriceFP: 2_000_00000000, QuoteDecimals: 6}
	verdict := eval.Evaluate(pool, price, 1_700_000_000, common.HexToAddress(weth), 30)
	if verdict.Kind != domain.VerdictSpreadBelowFee {
		t.Fatalf("expected SpreadBelowFee, got %v", verdict.Kind)
	}
}

func TestCexDexEvaluate_wideSpreadYieldsOpportunity(t *testing.T) {
	// DEX price is far cheaper than CEX, well beyond a 30bps gate.
	pool := mustPoolBig(t, "0x01", weth, usdc, scaled(1_000, 18), big.NewInt(1_500_000*1e6), 997, 1000, 100)
	eval := NewCexDexEvaluator(DefaultConfig())

	price := &domain.CexPricePoint{TimestampS: 1_700_000_000, ClosePriceFP: 2_000_00000000, QuoteDecimals: 6}
	verdict := eval.Evaluate(pool, price, 1_700_000_000, common.HexToAddress(weth), 30)
	if verdict.Kind != domain.VerdictOpportunity {
		t.Fatalf("expected Opportunity, got %v", verdict.Kind)
	}
	if verdict.Op.NetProfit.Sign() <= 0 {
		t.Fatalf("expected strictly positive profit, got %s", verdict.Op.NetProfit)
	}
}

func TestDirectionalProfit_zeroInputYieldsNonPositiveProfit(t *testing.T) {
	profit, ok := directionalProfit(big.NewInt(3), big.NewInt(1000), big.NewInt(1_000*1e18), big.NewInt(2_000_000*1e6), big.NewInt(2000), big.NewInt(0), domain.DirectionSellOnDex)
	if !ok {
		t.Fatalf("expected ok result for zero input")
	}
	if profit.Sign() > 0 {
		t.Fatalf("expected non-positive profit for zero input, got %s", profit)
	}
}
