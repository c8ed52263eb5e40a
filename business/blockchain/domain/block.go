// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Block represents an Ethereum block header, plus the beneficiary (the
// address credited with the block's fee tips) the MEV context needs to
// distinguish builder/validator payments from arbitrage profit.
type Block struct {
	Number      uint64
	Hash        common.Hash
	ParentHash  common.Hash
	Timestamp   time.Time
	GasLimit    uint64
	GasUsed     uint64
	BaseFee     *big.Int
	Beneficiary common.Address
}

// TxWithReceipt pairs a transaction with its receipt, the unit BlockFetcher
// returns per transaction in a fetched block: gas_used, status, and the
// effective gas price come from the receipt; the swap/transfer logs it
// carries are what the MEV context decodes.
type TxWithReceipt struct {
	Hash               common.Hash
	From               common.Address
	To                 *common.Address
	GasUsed            uint64
	Status             uint64
	EffectiveGasPrice  *big.Int
	MaxFeePerGas       *big.Int
	MaxPriorityFeePerGas *big.Int
	GasPrice           *big.Int
	IsLegacy           bool
	Logs               []*types.Log
	TxIndex            uint
}

// ConnectionState represents the state of a blockchain connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// ConnectionStatus contains detailed connection information.
type ConnectionStatus struct {
	State       ConnectionState
	Latency     time.Duration
	LastBlock   uint64
	LastUpdate  time.Time
	Reconnects  int
	UsingHTTP   bool // true if using HTTP fallback
}
