package domain

import "math/big"

// ReserveSnapshot is one element of a block's merged Sync-event timeline,
// decoded from a Sync(uint112,uint112) log. The timeline is the set of
// these events ordered by (TxIndex ascending, LogIndex ascending); insertion
// order otherwise carries no meaning.
type ReserveSnapshot struct {
	PoolAddress [20]byte
	TxIndex     uint
	LogIndex    uint
	Reserve0    *big.Int
	Reserve1    *big.Int
}

// Less orders two ReserveSnapshots by (TxIndex, LogIndex).
func (r ReserveSnapshot) Less(other ReserveSnapshot) bool {
	if r.TxIndex != other.TxIndex {
		return r.TxIndex < other.TxIndex
	}
	return r.LogIndex < other.LogIndex
}
