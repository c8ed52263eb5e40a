package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Transfer is a decoded ERC-20 Transfer(address,address,uint256) event,
// ordered within a transaction by LogIndex.
type Transfer struct {
	Token    common.Address
	From     common.Address
	To       common.Address
	Amount   *big.Int
	LogIndex uint
}

// TxTransferGraph is the directed multigraph of ERC-20 transfers within a
// single transaction: a vertex per distinct address appearing as either
// endpoint of any transfer, and one edge per transfer event. Built,
// consumed once by TransferGraphClassifier, and discarded.
type TxTransferGraph struct {
	TxHash    common.Hash
	From      common.Address
	To        common.Address
	Transfers []Transfer
}

// AddressClassification is the output of TransferGraphClassifier for one
// transaction: the profiteer address and the net positive token balances it
// accrued within the chosen cyclic SCC.
type AddressClassification struct {
	TxHash     common.Hash
	Profiteer  common.Address
	NetBalance map[common.Address]*big.Int // token -> net positive amount
}
