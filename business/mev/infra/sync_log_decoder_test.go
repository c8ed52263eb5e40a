package infra

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func packSync(t *testing.T, decoder *SyncLogDecoder, reserve0, reserve1 *big.Int) []byte {
	t.Helper()
	data, err := decoder.syncEvent.Inputs.Pack(reserve0, reserve1)
	if err != nil {
		t.Fatalf("packing Sync data: %v", err)
	}
	return data
}

func packTransferValue(t *testing.T, decoder *SyncLogDecoder, amount *big.Int) []byte {
	t.Helper()
	data, err := decoder.transferEvent.Inputs.NonIndexed().Pack(amount)
	if err != nil {
		t.Fatalf("packing Transfer data: %v", err)
	}
	return data
}

func addressToTopic(addr common.Address) common.Hash {
	var h common.Hash
	copy(h[12:], addr[:])
	return h
}

func TestDecodeSync_roundTripsReserves(t *testing.T) {
	decoder, err := NewSyncLogDecoder()
	if err != nil {
		t.Fatalf("NewSyncLogDecoder: %v", err)
	}
	pool := common.HexToAddress("0x01")
	data := packSync(t, decoder, big.NewInt(1_000_000), big.NewInt(2_000_000))

	log := &types.Log{
		Address:  pool,
		Topics:   []common.Hash{syncTopic},
		Data:     data,
		TxIndex:  3,
		Index:    7,
	}

	snap, err := decoder.DecodeSync(log)
	if err != nil {
		t.Fatalf("DecodeSync: %v", err)
	}
	if snap.Reserve0.Cmp(big.NewInt(1_000_000)) != 0 || snap.Reserve1.Cmp(big.NewInt(2_000_000)) != 0 {
		t.Fatalf("unexpected reserves: %s / %s", snap.Reserve0, snap.Reserve1)
	}
	if snap.TxIndex != 3 || snap.LogIndex != 7 {
		t.Fatalf("unexpected ordering key: tx=%d log=%d", snap.TxIndex, snap.LogIndex)
	}
}

func TestDecodeSync_wrongTopicIsDecodeError(t *testing.T) {
	decoder, err := NewSyncLogDecoder()
	if err != nil {
		t.Fatalf("NewSyncLogDecoder: %v", err)
	}
	log := &types.Log{
		Address: common.HexToAddress("0x01"),
		Topics:  []common.Hash{transferTopic},
		Data:    []byte{},
	}
	if _, err := decoder.DecodeSync(log); err == nil {
		t.Fatalf("expected a decode error for a mismatched topic")
	}
}

func TestDecodeTransfer_roundTripsFields(t *testing.T) {
	decoder, err := NewSyncLogDecoder()
	if err != nil {
		t.Fatalf("NewSyncLogDecoder: %v", err)
	}
	token := common.HexToAddress("0xaaaa")
	from := common.HexToAddress("0xbbbb")
	to := common.HexToAddress("0xcccc")
	data := packTransferValue(t, decoder, big.NewInt(42))

	log := &types.Log{
		Address: token,
		Topics:  []common.Hash{transferTopic, addressToTopic(from), addressToTopic(to)},
		Data:    data,
		Index:   5,
	}

	tr, err := decoder.DecodeTransfer(log)
	if err != nil {
		t.Fatalf("DecodeTransfer: %v", err)
	}
	if tr.From != from || tr.To != to || tr.Token != token {
		t.Fatalf("unexpected endpoints: from=%s to=%s token=%s", tr.From.Hex(), tr.To.Hex(), tr.Token.Hex())
	}
	if tr.Amount.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("unexpected amount: %s", tr.Amount)
	}
	if tr.LogIndex != 5 {
		t.Fatalf("unexpected log index: %d", tr.LogIndex)
	}
}

func TestDecodeBlockLogs_skipsMalformedLogsAndContinues(t *testing.T) {
	decoder, err := NewSyncLogDecoder()
	if err != nil {
		t.Fatalf("NewSyncLogDecoder: %v", err)
	}
	goodPool := common.HexToAddress("0x01")
	goodData := packSync(t, decoder, big.NewInt(1), big.NewInt(2))

	logs := []*types.Log{
		{Address: goodPool, Topics: []common.Hash{syncTopic}, Data: goodData},
		{Address: goodPool, Topics: []common.Hash{syncTopic}, Data: []byte{0x01}}, // short data
	}

	snapshots, transfers, errs := decoder.DecodeBlockLogs(logs)
	if len(snapshots) != 1 {
		t.Fatalf("expected one successfully decoded snapshot, got %d", len(snapshots))
	}
	if len(transfers) != 0 {
		t.Fatalf("expected no transfers, got %d", len(transfers))
	}
	if len(errs) != 1 {
		t.Fatalf("expected exactly one decode error, got %d", len(errs))
	}
}
