// Package domain holds the core value types of the MEV backtester: pool
// snapshots, CEX price points, the reserve timeline, the transfer graph, and
// the disjoint verdict unions every scanner returns. Every type here is
// immutable once constructed and float-free — display/decimal conversion
// belongs to the ingestion and reporting boundaries, not to this package.
package domain

import "math/big"

// BlockContext identifies the block all pool snapshots used together must
// share. Composing snapshots across two different BlockContexts is a
// StateInconsistency fault, not a silently wrong computation.
type BlockContext struct {
	Number    uint64
	Timestamp int64 // unix seconds
	BaseFee   *big.Int
}
