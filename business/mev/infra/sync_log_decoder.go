// Package infra holds the MEV bounded context's adapters: log decoding and
// the storage facade.
package infra

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mevbacktest/backtester/business/mev/domain"
	"github.com/mevbacktest/backtester/internal/apperror"
)

const syncEventABIJSON = `[{"anonymous":false,"inputs":[{"indexed":false,"name":"reserve0","type":"uint112"},{"indexed":false,"name":"reserve1","type":"uint112"}],"name":"Sync","type":"event"}]`

const transferEventABIJSON = `[{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}]`

var (
	syncTopic     = crypto.Keccak256Hash([]byte("Sync(uint112,uint112)"))
	transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
)

// SyncLogDecoder decodes V2 Sync and ERC-20 Transfer event logs into typed
// records. It holds only parsed ABI definitions, so a single instance may be
// shared across goroutines.
type SyncLogDecoder struct {
	syncEvent     abi.Event
	transferEvent abi.Event
}

// NewSyncLogDecoder parses the two event ABIs this decoder recognizes.
func NewSyncLogDecoder() (*SyncLogDecoder, error) {
	syncContract, err := abi.JSON(strings.NewReader(syncEventABIJSON))
	if err != nil {
		return nil, apperror.New(apperror.CodeDecodeError, apperror.WithCause(err), apperror.WithContext("parsing Sync event ABI"))
	}
	transferContract, err := abi.JSON(strings.NewReader(transferEventABIJSON))
	if err != nil {
		return nil, apperror.New(apperror.CodeDecodeError, apperror.WithCause(err), apperror.WithContext("parsing Transfer event ABI"))
	}
	return &SyncLogDecoder{
		syncEvent:     syncContract.Events["Sync"],
		transferEvent: transferContract.Events["Transfer"],
	}, nil
}

// DecodeSync decodes a single V2 Sync(uint112,uint112) log. Returns a typed
// decode error for wrong topic arity/signature or a short data field.
func (d *SyncLogDecoder) DecodeSync(log *types.Log) (domain.ReserveSnapshot, error) {
	if len(log.Topics) != 1 || log.Topics[0] != syncTopic {
		return domain.ReserveSnapshot{}, apperror.New(apperror.CodeDecodeError,
			apperror.WithContext("log is not a Sync event"))
	}

	values, err := d.syncEvent.Inputs.Unpack(log.Data)
	if err != nil {
		return domain.ReserveSnapshot{}, apperror.New(apperror.CodeDecodeError,
			apperror.WithCause(err), apperror.WithContext("unpacking Sync data"))
	}
	if len(values) != 2 {
		return domain.ReserveSnapshot{}, apperror.New(apperror.CodeDecodeError,
			apperror.WithContext("Sync event produced an unexpected field count"))
	}

	reserve0, ok0 := values[0].(*big.Int)
	reserve1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return domain.ReserveSnapshot{}, apperror.New(apperror.CodeDecodeError,
			apperror.WithContext("Sync event fields had an unexpected type"))
	}

	return domain.ReserveSnapshot{
		PoolAddress: [20]byte(log.Address),
		TxIndex:     log.TxIndex,
		LogIndex:    log.Index,
		Reserve0:    reserve0,
		Reserve1:    reserve1,
	}, nil
}

// DecodeTransfer decodes a single ERC-20 Transfer(address,address,uint256)
// log. from/to are read from indexed topics; value from the non-indexed
// data field.
func (d *SyncLogDecoder) DecodeTransfer(log *types.Log) (domain.Transfer, error) {
	if len(log.Topics) != 3 || log.Topics[0] != transferTopic {
		return domain.Transfer{}, apperror.New(apperror.CodeDecodeError,
			apperror.WithContext("log is not a Transfer event"))
	}

	from := topicToAddress(log.Topics[1])
	to := topicToAddress(log.Topics[2])

	values, err := d.transferEvent.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return domain.Transfer{}, apperror.New(apperror.CodeDecodeError,
			apperror.WithCause(err), apperror.WithContext("unpacking Transfer data"))
	}
	if len(values) != 1 {
		return domain.Transfer{}, apperror.New(apperror.CodeDecodeError,
			apperror.WithContext("Transfer event produced an unexpected field count"))
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return domain.Transfer{}, apperror.New(apperror.CodeDecodeError,
			apperror.WithContext("Transfer value field had an unexpected type"))
	}

	return domain.Transfer{
		Token:    log.Address,
		From:     from,
		To:       to,
		Amount:   amount,
		LogIndex: log.Index,
	}, nil
}

func topicToAddress(topic [32]byte) (addr [20]byte) {
	copy(addr[:], topic[12:])
	return addr
}

// DecodeBlockLogs classifies and decodes every log in a block by its first
// topic, skipping and recording any log that fails to decode rather than
// failing the whole block for one bad log.
func (d *SyncLogDecoder) DecodeBlockLogs(logs []*types.Log) (snapshots []domain.ReserveSnapshot, transfers []domain.Transfer, decodeErrors []error) {
	for _, log := range logs {
		if len(log.Topics) == 0 {
			continue
		}
		switch log.Topics[0] {
		case syncTopic:
			snap, err := d.DecodeSync(log)
			if err != nil {
				decodeErrors = append(decodeErrors, err)
				continue
			}
			snapshots = append(snapshots, snap)
		case transferTopic:
			tr, err := d.DecodeTransfer(log)
			if err != nil {
				decodeErrors = append(decodeErrors, err)
				continue
			}
			transfers = append(transfers, tr)
		}
	}
	return snapshots, transfers, decodeErrors
}
