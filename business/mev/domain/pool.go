package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mevbacktest/backtester/internal/apperror"
)

// maxReserve is 2^112 - 1, the Uniswap V2 reserve domain. Closed-form
// optimal-input sizing depends on both reserves staying inside this bound.
var maxReserve = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 112), big.NewInt(1))

// Direction is which way a swap route runs through a pair of pools.
type Direction string

const (
	DirectionAToB Direction = "A_TO_B"
	DirectionBToA Direction = "B_TO_A"

	// CEX-DEX directions: which venue the route sells its base token on.
	DirectionSellOnDex Direction = "SELL_ON_DEX"
	DirectionBuyOnDex  Direction = "BUY_ON_DEX"
)

// PoolSnapshot is an immutable, point-in-time read of a Uniswap-V2-shaped
// pool. Two snapshots from different blocks must never be composed; callers
// that need to compare snapshots across pools are responsible for checking
// BlockNumber equality themselves (ArbSolver does this as its first
// precondition).
type PoolSnapshot struct {
	Address       common.Address
	Token0        common.Address // token0 < token1 by address, enforced at construction
	Token1        common.Address
	Reserve0      *big.Int
	Reserve1      *big.Int
	FeeNumerator  *big.Int
	FeeDenominator *big.Int
	BlockNumber   uint64
	ReserveTimestamp int64 // unix seconds of the last reserve-mutating event
}

// NewPoolSnapshot validates and constructs a PoolSnapshot. It rejects
// reserves outside the V2 domain and a fee numerator that is not strictly
// less than its denominator, and it reorders (tokenA, tokenB) so that
// Token0 < Token1 by address — callers do not need to know the on-chain
// ordering ahead of time, only the two token addresses and which reserve
// belongs to which.
func NewPoolSnapshot(
	address, tokenA, tokenB common.Address,
	reserveA, reserveB *big.Int,
	feeNumerator, feeDenominator *big.Int,
	blockNumber uint64,
	reserveTimestamp int64,
) (*PoolSnapshot, error) {
	if reserveA.Sign() < 0 || reserveB.Sign() < 0 {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("reserves must be non-negative"))
	}
	if reserveA.Cmp(maxReserve) > 0 || reserveB.Cmp(maxReserve) > 0 {
		return nil, apperror.New(apperror.CodeOverflow, apperror.WithContext("reserve exceeds the V2 domain (2^112 - 1)"))
	}
	if feeNumerator.Cmp(feeDenominator) >= 0 {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("fee_numerator must be < fee_denominator"))
	}

	snap := &PoolSnapshot{
		Address:          address,
		FeeNumerator:     new(big.Int).Set(feeNumerator),
		FeeDenominator:   new(big.Int).Set(feeDenominator),
		BlockNumber:      blockNumber,
		ReserveTimestamp: reserveTimestamp,
	}

	if tokenA.Cmp(tokenB) < 0 {
		snap.Token0, snap.Token1 = tokenA, tokenB
		snap.Reserve0, snap.Reserve1 = new(big.Int).Set(reserveA), new(big.Int).Set(reserveB)
	} else {
		snap.Token0, snap.Token1 = tokenB, tokenA
		snap.Reserve0, snap.Reserve1 = new(big.Int).Set(reserveB), new(big.Int).Set(reserveA)
	}

	return snap, nil
}

// ReservesFor returns (reserveIn, reserveOut) for a swap of tokenIn -> the
// other token in the pair.
func (p *PoolSnapshot) ReservesFor(tokenIn common.Address) (reserveIn, reserveOut *big.Int, ok bool) {
	switch tokenIn {
	case p.Token0:
		return p.Reserve0, p.Reserve1, true
	case p.Token1:
		return p.Reserve1, p.Reserve0, true
	default:
		return nil, nil, false
	}
}

// SameTokenPair reports whether two snapshots quote the same ordered token
// pair — a precondition for ArbSolver.
func (p *PoolSnapshot) SameTokenPair(other *PoolSnapshot) bool {
	return p.Token0 == other.Token0 && p.Token1 == other.Token1
}

// ArbOpportunity is a profitable two-pool route: source/destination pools,
// direction, optimal input, and gross/net profit, all in source-token wei.
// Constructed only when net profit is strictly positive.
type ArbOpportunity struct {
	BlockNumber  uint64
	SourcePool   common.Address
	DestPool     common.Address
	Direction    Direction
	OptimalInput *big.Int
	GrossProfit  *big.Int
	NetProfit    *big.Int
	Token0       common.Address
	Token1       common.Address

	// V3ReferenceOutWei is an optional, advisory-only V3 QuoterV2 quote for
	// this opportunity's input amount, attached after construction for
	// human review. Nil unless explicitly annotated; never read by the
	// solver or by anything that computes a verdict.
	V3ReferenceOutWei *big.Int
}
