package app

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mevbacktest/backtester/business/mev/domain"
	"github.com/mevbacktest/backtester/internal/intmath"
)

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
var fixedPointScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(8), nil)

// gridExponentSteps and gridLinearSteps bound the exponential and linear
// candidate sweeps respectively.
const (
	gridExponentSteps = 25 // k in [0, 24]
	gridLinearSteps   = 40 // k in [1, 40]
)

// CexDexEvaluator compares a single DEX pool's implied price against a CEX
// reference price and sizes a cross-venue trade. Like ArbSolver, it holds
// only configuration and is safe for concurrent use.
type CexDexEvaluator struct {
	cfg Config
}

// NewCexDexEvaluator constructs a CexDexEvaluator bound to cfg.
func NewCexDexEvaluator(cfg Config) *CexDexEvaluator {
	return &CexDexEvaluator{cfg: cfg}
}

// Evaluate runs NoCexData -> StaleCexData -> price conversion -> fee gate ->
// dual-grid sweep -> decide over one pool and one CEX price point. wethAddress
// identifies which side of the pool is the base (WETH) leg; feeBps is the
// fee-gate threshold expressed in basis points.
func (e *CexDexEvaluator) Evaluate(pool *domain.PoolSnapshot, price *domain.CexPricePoint, blockTimestamp int64, wethAddress common.Address, feeBps int64) domain.CexDexVerdict {
	if price == nil {
		return domain.NoCexData()
	}

	delta := blockTimestamp - price.TimestampS
	if delta < 0 {
		delta = -delta
	}
	if delta > e.cfg.MaxStaleSeconds {
		return domain.StaleCexData()
	}

	rWeth, rQuote, ok := pool.ReservesFor(wethAddress)
	if !ok {
		return domain.NoCexData()
	}

	pDex := new(big.Int).Mul(rQuote, weiPerEther)
	pDex.Div(pDex, rWeth)

	quoteScale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(price.QuoteDecimals)), nil)
	pCex := new(big.Int).Mul(big.NewInt(price.ClosePriceFP), quoteScale)
	pCex.Div(pCex, fixedPointScale)

	within, err := intmath.CexFeeBelow(pDex, pCex, feeBps)
	if err != nil {
		return domain.NoCexData()
	}
	if within {
		return domain.SpreadBelowFee()
	}

	bestProfit, bestDirection, found := e.sweep(pool.FeeNumerator, pool.FeeDenominator, rWeth, rQuote, pCex)
	if !found || bestProfit.Sign() <= 0 {
		return domain.NonPositiveProfit()
	}

	return domain.CexDexOpportunity(&domain.ArbOpportunity{
		BlockNumber:  pool.BlockNumber,
		SourcePool:   pool.Address,
		DestPool:     common.Address{}, // the CEX venue has no on-chain address
		Direction:    bestDirection,
		OptimalInput: bestProfit.OptimalInput,
		GrossProfit:  bestProfit.GrossProfit,
		NetProfit:    bestProfit.GrossProfit,
		Token0:       pool.Token0,
		Token1:       pool.Token1,
	})
}

type sweepBest struct {
	OptimalInput *big.Int
	GrossProfit  *big.Int
}

// sweep evaluates both directions over the exponential and linear candidate
// grids and returns the best profit found, in WETH wei; that profit may be
// zero or negative, and the caller decides whether it is an opportunity.
// rWeth/rQuote are the pool's reserves already resolved to the WETH/quote
// sides via PoolSnapshot.ReservesFor, independent of token0/token1 order.
func (e *CexDexEvaluator) sweep(feeNum, feeDen, rWeth, rQuote, pCex *big.Int) (sweepBest, domain.Direction, bool) {
	maxInput := new(big.Int).Div(rWeth, big.NewInt(10))
	if maxInput.Sign() <= 0 {
		return sweepBest{}, "", false
	}

	var best sweepBest
	var bestDirection domain.Direction
	found := false

	consider := func(x *big.Int, direction domain.Direction) {
		if x.Sign() <= 0 {
			return
		}
		profit, ok := directionalProfit(feeNum, feeDen, rWeth, rQuote, pCex, x, direction)
		if !ok {
			return
		}
		if !found || profit.Cmp(best.GrossProfit) > 0 {
			found = true
			best = sweepBest{OptimalInput: x, GrossProfit: profit}
			bestDirection = direction
		}
	}

	for k := 0; k < gridExponentSteps; k++ {
		x := new(big.Int).Rsh(maxInput, uint(k))
		consider(x, domain.DirectionSellOnDex)
		consider(x, domain.DirectionBuyOnDex)
	}
	for k := 1; k <= gridLinearSteps; k++ {
		x := new(big.Int).Mul(maxInput, big.NewInt(int64(k)))
		x.Div(x, big.NewInt(gridLinearSteps))
		consider(x, domain.DirectionSellOnDex)
		consider(x, domain.DirectionBuyOnDex)
	}

	return best, bestDirection, found
}

// directionalProfit computes the profit, in WETH wei, of routing x WETH
// wei through the DEX leg and closing out at the CEX reference price (or
// the reverse), in integer arithmetic throughout.
func directionalProfit(feeNum, feeDen, rWeth, rQuote, pCex, x *big.Int, direction domain.Direction) (*big.Int, bool) {
	switch direction {
	case domain.DirectionSellOnDex:
		quoteOut, err := intmath.AmountOut(x, rWeth, rQuote, feeNum, feeDen)
		if err != nil {
			return nil, false
		}
		wethBack := new(big.Int).Mul(quoteOut, weiPerEther)
		wethBack.Div(wethBack, pCex)
		return new(big.Int).Sub(wethBack, x), true

	case domain.DirectionBuyOnDex:
		quoteIn := new(big.Int).Mul(x, pCex)
		quoteIn.Div(quoteIn, weiPerEther)
		wethOut, err := intmath.AmountOut(quoteIn, rQuote, rWeth, feeNum, feeDen)
		if err != nil {
			return nil, false
		}
		return new(big.Int).Sub(wethOut, x), true

	default:
		return nil, false
	}
}
