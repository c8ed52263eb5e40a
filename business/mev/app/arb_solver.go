// Package app holds the MEV detection state machines: ArbSolver,
// CexDexEvaluator, IntraBlockEngine, and TransferGraphClassifier. Every
// type here is synchronous and pure — no I/O, no context.Context, no
// process-wide state — so each can be called concurrently from any
// goroutine, per the concurrency model that confines suspension points to
// the fetcher and the store.
package app

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mevbacktest/backtester/business/mev/domain"
	"github.com/mevbacktest/backtester/internal/intmath"
)

var one = big.NewInt(1)
var sixteen = big.NewInt(16)

// Config carries the tunables named in the configuration surface: the
// prefilter noise floor, the gas-unit heuristic (an explicit parameter, not
// a hardcoded constant — see the gas-estimate open question), and the
// staleness/candidate-trigger thresholds used by the other scanners.
type Config struct {
	MinDiscrepancyBps int64
	GasUnitsEstimate  uint64
	MaxStaleSeconds   int64
	IntraCandidateBps int64
}

// DefaultConfig returns the documented defaults from the configuration
// surface.
func DefaultConfig() Config {
	return Config{
		MinDiscrepancyBps: 10,
		GasUnitsEstimate:  200_000,
		MaxStaleSeconds:   60,
		IntraCandidateBps: 30,
	}
}

// ArbSolver detects profitable two-pool routes over a fixed token pair. It
// holds only configuration — no mutable state — so a single instance may be
// shared across goroutines.
type ArbSolver struct {
	cfg Config
}

// NewArbSolver constructs an ArbSolver bound to cfg.
func NewArbSolver(cfg Config) *ArbSolver {
	return &ArbSolver{cfg: cfg}
}

// Detect runs the linear state machine Preconditions -> Prefilter -> SizeAB
// -> SizeBA -> Select -> GasConvert -> Decide over two pool snapshots
// sharing a token pair. wethAddress identifies the wrapped-ETH token so the
// gas-conversion step can tell whether the route's input token already is
// WETH; wethReferencePool, if non-nil, must pair wethAddress with the
// route's input token at the same block number and is used only when
// conversion is required.
func (s *ArbSolver) Detect(poolA, poolB *domain.PoolSnapshot, baseFee *big.Int, wethAddress common.Address, wethReferencePool *domain.PoolSnapshot) domain.ArbOutcome {
	// Preconditions.
	if poolA.BlockNumber != poolB.BlockNumber {
		return domain.StateInconsistency()
	}
	if !poolA.SameTokenPair(poolB) {
		return domain.StateInconsistency()
	}

	// Prefilter: cheap noise filter, not a fee-coverage proof.
	spread, err := intmath.SpreadBpsInteger(poolA.Reserve0, poolA.Reserve1, poolB.Reserve0, poolB.Reserve1)
	if err != nil {
		return domain.Overflow()
	}
	if spread.Cmp(big.NewInt(s.cfg.MinDiscrepancyBps)) <= 0 {
		return domain.NoOpportunity(domain.ReasonLowDiscrepancy)
	}

	// Route convention: the input token is always poolA.Token0 (== poolB.Token0,
	// guaranteed by the precondition above). Direction A->B routes the first
	// leg through pool A and the second through pool B; B->A reverses the
	// pool order. This fixes which of the two tokens in the pair plays the
	// role of "source-token wei" in the opportunity record.
	xAB, profitAB, okAB := s.sizeRoute(poolA, poolB)
	xBA, profitBA, okBA := s.sizeRoute(poolB, poolA)

	if !okAB && !okBA {
		return domain.NoOpportunity(domain.ReasonInfeasibleClosedForm)
	}

	var (
		direction    domain.Direction
		optimalInput *big.Int
		grossProfit  *big.Int
		srcPool      common.Address
		dstPool      common.Address
	)

	switch {
	case okAB && !okBA:
		direction, optimalInput, grossProfit = domain.DirectionAToB, xAB, profitAB
		srcPool, dstPool = poolA.Address, poolB.Address
	case okBA && !okAB:
		direction, optimalInput, grossProfit = domain.DirectionBToA, xBA, profitBA
		srcPool, dstPool = poolB.Address, poolA.Address
	default:
		cmp := profitAB.Cmp(profitBA)
		switch {
		case cmp > 0:
			direction, optimalInput, grossProfit = domain.DirectionAToB, xAB, profitAB
			srcPool, dstPool = poolA.Address, poolB.Address
		case cmp < 0:
			direction, optimalInput, grossProfit = domain.DirectionBToA, xBA, profitBA
			srcPool, dstPool = poolB.Address, poolA.Address
		default:
			// Exact tie: economic preference for the smaller input.
			if xAB.Cmp(xBA) <= 0 {
				direction, optimalInput, grossProfit = domain.DirectionAToB, xAB, profitAB
				srcPool, dstPool = poolA.Address, poolB.Address
			} else {
				direction, optimalInput, grossProfit = domain.DirectionBToA, xBA, profitBA
				srcPool, dstPool = poolB.Address, poolA.Address
			}
		}
	}

	// Gas conversion.
	gasCostWei := new(big.Int).Mul(big.NewInt(int64(s.cfg.GasUnitsEstimate)), baseFee)
	var gasInInputUnits *big.Int
	if poolA.Token0 == wethAddress {
		gasInInputUnits = gasCostWei
	} else {
		if wethReferencePool == nil {
			return domain.MissingReferencePrice()
		}
		wethReserve, tokenReserve, ok := wethReferencePool.ReservesFor(wethAddress)
		if !ok || wethReferencePool.BlockNumber != poolA.BlockNumber {
			return domain.MissingReferencePrice()
		}
		converted, err := intmath.AmountOut(gasCostWei, wethReserve, tokenReserve, wethReferencePool.FeeNumerator, wethReferencePool.FeeDenominator)
		if err != nil {
			return domain.Overflow()
		}
		gasInInputUnits = converted
	}

	// grossProfit is strictly positive here (sizeRoute only returns ok=true
	// for a strictly positive profit), so a non-positive net means gas alone
	// consumed it.
	netProfit := new(big.Int).Sub(grossProfit, gasInInputUnits)
	if netProfit.Sign() <= 0 {
		return domain.NoOpportunity(domain.ReasonBelowGasFloor)
	}

	return domain.Opportunity(&domain.ArbOpportunity{
		BlockNumber:  poolA.BlockNumber,
		SourcePool:   srcPool,
		DestPool:     dstPool,
		Direction:    direction,
		OptimalInput: optimalInput,
		GrossProfit:  grossProfit,
		NetProfit:    netProfit,
		Token0:       poolA.Token0,
		Token1:       poolA.Token1,
	})
}

// sizeRoute sizes a route that swaps token0->token1 on `first` then
// token1->token0 on `second`, by closed form when feasible, ternary search
// otherwise, followed by neighborhood refinement. Returns ok=false if
// neither path finds a strictly positive profit.
func (s *ArbSolver) sizeRoute(first, second *domain.PoolSnapshot) (x, profit *big.Int, ok bool) {
	rInA, rOutA := first.Reserve0, first.Reserve1
	rInB, rOutB := second.Reserve1, second.Reserve0
	feeNum, feeDen := first.FeeNumerator, first.FeeDenominator

	var x0 *big.Int
	if first.FeeNumerator.Cmp(second.FeeNumerator) == 0 && first.FeeDenominator.Cmp(second.FeeDenominator) == 0 {
		if cx, feasible := closedFormOptimalInput(feeNum, feeDen, rInA, rOutA, rInB, rOutB); feasible {
			x0 = cx
		}
	}
	if x0 == nil {
		cx, _, feasible := ternarySearchOptimalInput(feeNum, feeDen, rInA, rOutA, rInB, rOutB)
		if !feasible {
			return nil, nil, false
		}
		x0 = cx
	}

	bestX, bestProfit, err := refineNeighborhood(x0, feeNum, feeDen, rInA, rOutA, rInB, rOutB)
	if err != nil || bestProfit.Sign() <= 0 {
		return nil, nil, false
	}
	return bestX, bestProfit, true
}

// closedFormOptimalInput implements spec's closed-form optimal-input
// formula. presqrt = fee_num^2 * r_out_a * r_out_b / (r_in_a * r_in_b) is
// used only as the feasibility gate isqrt(presqrt) >= fee_den; the actual
// numerator uses the full product's square root directly.
func closedFormOptimalInput(feeNum, feeDen, rInA, rOutA, rInB, rOutB *big.Int) (*big.Int, bool) {
	denomPre := new(big.Int).Mul(rInA, rInB)
	if denomPre.Sign() == 0 {
		return nil, false
	}
	numPre := new(big.Int).Mul(feeNum, feeNum)
	numPre.Mul(numPre, rOutA)
	numPre.Mul(numPre, rOutB)
	presqrt := new(big.Int).Div(numPre, denomPre)

	if intmath.Isqrt(presqrt).Cmp(feeDen) < 0 {
		return nil, false
	}

	product := new(big.Int).Mul(rInA, rOutA)
	product.Mul(product, rInB)
	product.Mul(product, rOutB)
	sqrtProduct := intmath.Isqrt(product)

	numerator := new(big.Int).Mul(feeNum, sqrtProduct)
	sub := new(big.Int).Mul(feeDen, rInA)
	sub.Mul(sub, rInB)
	numerator.Sub(numerator, sub)
	if numerator.Sign() <= 0 {
		return nil, false
	}

	denomT1 := new(big.Int).Mul(feeNum, rInB)
	denomT1.Mul(denomT1, feeDen)
	denomT2 := new(big.Int).Mul(feeNum, feeNum)
	denomT2.Mul(denomT2, rOutA)
	denominator := new(big.Int).Add(denomT1, denomT2)
	if denominator.Sign() == 0 {
		return nil, false
	}

	x := new(big.Int).Div(numerator, denominator)
	if x.Sign() <= 0 {
		return nil, false
	}
	return x, true
}

// routeProfit evaluates profit(x) = amount_out(amount_out(x, leg1), leg2) - x
// for a two-leg route, in integer arithmetic throughout.
func routeProfit(x, feeNum, feeDen, rInA, rOutA, rInB, rOutB *big.Int) (*big.Int, error) {
	leg1, err := intmath.AmountOut(x, rInA, rOutA, feeNum, feeDen)
	if err != nil {
		return nil, err
	}
	leg2, err := intmath.AmountOut(leg1, rInB, rOutB, feeNum, feeDen)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(leg2, x), nil
}

// ternarySearchOptimalInput searches [1, reserveIn/10] for the input that
// maximizes profit, relying on the profit curve being unimodal with an
// interior peak (a tested property of the constant-product formula family
// used here).
func ternarySearchOptimalInput(feeNum, feeDen, rInA, rOutA, rInB, rOutB *big.Int) (x, profit *big.Int, ok bool) {
	hi := new(big.Int).Div(rInA, big.NewInt(10))
	if hi.Sign() <= 0 {
		return nil, nil, false
	}
	lo := big.NewInt(1)

	for new(big.Int).Sub(hi, lo).Cmp(big.NewInt(2)) > 0 {
		diff := new(big.Int).Sub(hi, lo)
		third := new(big.Int).Div(diff, big.NewInt(3))
		m1 := new(big.Int).Add(lo, third)
		m2 := new(big.Int).Sub(hi, third)

		p1, err1 := routeProfit(m1, feeNum, feeDen, rInA, rOutA, rInB, rOutB)
		p2, err2 := routeProfit(m2, feeNum, feeDen, rInA, rOutA, rInB, rOutB)
		if err1 != nil || err2 != nil {
			break
		}
		if p1.Cmp(p2) < 0 {
			lo = m1
		} else {
			hi = m2
		}
	}

	var bestX, bestProfit *big.Int
	for cursor := new(big.Int).Set(lo); cursor.Cmp(hi) <= 0; cursor.Add(cursor, one) {
		p, err := routeProfit(cursor, feeNum, feeDen, rInA, rOutA, rInB, rOutB)
		if err != nil {
			continue
		}
		if bestProfit == nil || p.Cmp(bestProfit) > 0 {
			bestProfit = p
			bestX = new(big.Int).Set(cursor)
		}
	}
	if bestProfit == nil || bestProfit.Sign() <= 0 {
		return nil, nil, false
	}
	return bestX, bestProfit, true
}

// refineNeighborhood evaluates profit at every integer in [x0-16, x0+16]
// (clamped to >= 1) and returns the argmax. This corrects the integer
// truncation bias either sizing path can leave in x0.
func refineNeighborhood(x0, feeNum, feeDen, rInA, rOutA, rInB, rOutB *big.Int) (*big.Int, *big.Int, error) {
	lo := new(big.Int).Sub(x0, sixteen)
	if lo.Cmp(one) < 0 {
		lo = one
	}
	hi := new(big.Int).Add(x0, sixteen)

	bestX := new(big.Int).Set(x0)
	bestProfit, err := routeProfit(x0, feeNum, feeDen, rInA, rOutA, rInB, rOutB)
	if err != nil {
		return nil, nil, err
	}

	for cursor := new(big.Int).Set(lo); cursor.Cmp(hi) <= 0; cursor.Add(cursor, one) {
		if cursor.Cmp(x0) == 0 {
			continue
		}
		p, err := routeProfit(cursor, feeNum, feeDen, rInA, rOutA, rInB, rOutB)
		if err != nil {
			continue
		}
		if p.Cmp(bestProfit) > 0 {
			bestProfit = p
			bestX = new(big.Int).Set(cursor)
		}
	}
	return bestX, bestProfit, nil
}
