// Package intmath implements the pure, float-free integer arithmetic shared
// by every arbitrage scanner: integer square root, fee-adjusted
// constant-product swap output, and basis-point spread comparison by
// cross-multiplication. Every operation here is synchronous, holds no
// state, and performs no I/O — it is safe to call concurrently from any
// goroutine.
//
// No function in this package accepts or returns a float32/float64 or a
// github.com/shopspring/decimal value. That is a deliberate boundary: the
// conversion from floating-point CEX feed data into integers happens one
// layer up, in the CEX ingestion adapter, never here.
package intmath

import (
	"math/big"

	"github.com/mevbacktest/backtester/internal/apperror"
)

// maxUint256 is the largest value a 256-bit unsigned register can hold.
// Every intermediate product below is checked against this bound; the
// domain containment is Solidity's, not Go's — math/big never overflows on
// its own, so the check has to be explicit.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func checkFits256(x *big.Int) error {
	if x.Sign() < 0 || x.Cmp(maxUint256) > 0 {
		return apperror.New(apperror.CodeOverflow,
			apperror.WithContext("intermediate value exceeds the 256-bit domain"))
	}
	return nil
}

func mul256(a, b *big.Int) (*big.Int, error) {
	r := new(big.Int).Mul(a, b)
	if err := checkFits256(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Isqrt returns floor(sqrt(n)) for n >= 0, by Newton's method. The contract
// is isqrt(n)^2 <= n < (isqrt(n)+1)^2 for every n >= 0, with isqrt(0) = 0
// and isqrt(1) = 1. Newton's iteration on integers can oscillate between
// two adjacent values near the true root (e.g. n=3 oscillates 1<->2, n=8
// oscillates 2<->3); the loop below always keeps and returns the smaller of
// the two oscillating candidates, which is the floor root in both cases.
func Isqrt(n *big.Int) *big.Int {
	if n.Sign() <= 0 {
		return big.NewInt(0)
	}
	if n.Cmp(big.NewInt(3)) <= 0 {
		return big.NewInt(1)
	}

	two := big.NewInt(2)
	// Initial guess at or above the true root so the iteration decreases
	// monotonically; a guess below the root makes Newton's method increase
	// first, which the convergence check below cannot distinguish from
	// oscillation.
	y := new(big.Int).Lsh(big.NewInt(1), uint((n.BitLen()+1)/2))

	for {
		// y_next = (y + n/y) / 2
		next := new(big.Int).Div(n, y)
		next.Add(next, y)
		next.Div(next, two)

		if next.Cmp(y) >= 0 {
			// Converged or started oscillating; y is the smaller of the
			// two candidates that bracket the true root from below.
			break
		}
		y = next
	}

	// Final adjustment: Newton's iteration above can still leave y one too
	// high in rare integer-division cases. Walk down until y^2 <= n.
	for new(big.Int).Mul(y, y).Cmp(n) > 0 {
		y.Sub(y, big.NewInt(1))
	}
	// And walk up while (y+1)^2 <= n, covering the symmetric case.
	for {
		next := new(big.Int).Add(y, big.NewInt(1))
		if new(big.Int).Mul(next, next).Cmp(n) > 0 {
			break
		}
		y = next
	}
	return y
}

// AmountOut computes the fee-on-input constant-product swap output:
//
//	floor( amountIn * feeNum * reserveOut / (reserveIn * feeDen + amountIn * feeNum) )
//
// Returns 0 if amountIn is 0 or reserveOut is 0, matching the constant
// product formula's natural behavior. Every intermediate multiplication is
// checked against the 256-bit domain before use.
func AmountOut(amountIn, reserveIn, reserveOut, feeNum, feeDen *big.Int) (*big.Int, error) {
	if amountIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return big.NewInt(0), nil
	}

	amountInWithFee, err := mul256(amountIn, feeNum)
	if err != nil {
		return nil, err
	}
	numerator, err := mul256(amountInWithFee, reserveOut)
	if err != nil {
		return nil, err
	}
	reserveInScaled, err := mul256(reserveIn, feeDen)
	if err != nil {
		return nil, err
	}
	denominator := new(big.Int).Add(reserveInScaled, amountInWithFee)
	if err := checkFits256(denominator); err != nil {
		return nil, err
	}
	if denominator.Sign() == 0 {
		return big.NewInt(0), nil
	}

	out := new(big.Int).Div(numerator, denominator)
	return out, nil
}

// SpreadBpsInteger computes the basis-point spread between two pools
// quoting the same token pair, via cross-multiplication:
//
//	PA = rA1*rB0, PB = rB1*rA0
//	spread_bps = floor( |PA - PB| * 10000 / min(PA, PB) )
//
// Symmetric: SpreadBpsInteger(A, B) == SpreadBpsInteger(B, A), since the
// roles of PA/PB swap but |PA-PB| and min(PA,PB) do not change.
func SpreadBpsInteger(rA0, rA1, rB0, rB1 *big.Int) (*big.Int, error) {
	pa, err := mul256(rA1, rB0)
	if err != nil {
		return nil, err
	}
	pb, err := mul256(rB1, rA0)
	if err != nil {
		return nil, err
	}

	diff := new(big.Int).Sub(pa, pb)
	diff.Abs(diff)

	minP := pa
	if pb.Cmp(pa) < 0 {
		minP = pb
	}
	if minP.Sign() == 0 {
		return big.NewInt(0), nil
	}

	scaled, err := mul256(diff, big.NewInt(10000))
	if err != nil {
		return nil, err
	}
	return new(big.Int).Div(scaled, minP), nil
}

// CexFeeBelow reports whether the DEX/CEX price discrepancy fails to clear
// the combined taker-fee floor, expressed in basis points, via
// cross-multiplication (no division):
//
//	|pDex - pCex| * 10000 <= pDex * feeBps
func CexFeeBelow(pDex, pCex *big.Int, feeBps int64) (bool, error) {
	diff := new(big.Int).Sub(pDex, pCex)
	diff.Abs(diff)

	lhs, err := mul256(diff, big.NewInt(10000))
	if err != nil {
		return false, err
	}
	rhs, err := mul256(pDex, big.NewInt(feeBps))
	if err != nil {
		return false, err
	}
	return lhs.Cmp(rhs) <= 0, nil
}
