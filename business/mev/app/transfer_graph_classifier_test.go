package app

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mevbacktest/backtester/business/mev/domain"
)

func TestClassify_threeHopCycleYieldsProfiteerClosestToSender(t *testing.T) {
	addrA := common.HexToAddress("0xaaaa")
	addrB := common.HexToAddress("0xbbbb")
	addrC := common.HexToAddress("0xcccc")
	tokenX := common.HexToAddress("0x01")
	tokenY := common.HexToAddress("0x02")

	g := &domain.TxTransferGraph{
		TxHash: common.HexToHash("0xdeadbeef"),
		From:   addrA,
		To:     addrB,
		Transfers: []domain.Transfer{
			{Token: tokenX, From: addrA, To: addrB, Amount: big.NewInt(100), LogIndex: 0},
			{Token: tokenY, From: addrB, To: addrC, Amount: big.NewInt(100), LogIndex: 1},
			{Token: tokenX, From: addrC, To: addrA, Amount: big.NewInt(101), LogIndex: 2},
		},
	}

	classifier := NewTransferGraphClassifier()
	classification, ok := classifier.Classify(g)
	if !ok {
		t.Fatalf("expected a cyclic classification")
	}
	if classification.Profiteer != addrA {
		t.Fatalf("expected profiteer A, got %s", classification.Profiteer.Hex())
	}
	amt, ok := classification.NetBalance[tokenX]
	if !ok {
		t.Fatalf("expected a net balance entry for token X")
	}
	if amt.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected net balance of 1 for token X, got %s", amt)
	}
	if _, ok := classification.NetBalance[tokenY]; ok {
		t.Fatalf("profiteer A should carry no token Y balance")
	}
}

func TestClassify_acyclicGraphYieldsNoClassification(t *testing.T) {
	addrA := common.HexToAddress("0xaaaa")
	addrB := common.HexToAddress("0xbbbb")
	addrC := common.HexToAddress("0xcccc")
	tokenX := common.HexToAddress("0x01")

	g := &domain.TxTransferGraph{
		TxHash: common.HexToHash("0xfeed"),
		From:   addrA,
		To:     addrC,
		Transfers: []domain.Transfer{
			{Token: tokenX, From: addrA, To: addrB, Amount: big.NewInt(100), LogIndex: 0},
			{Token: tokenX, From: addrB, To: addrC, Amount: big.NewInt(100), LogIndex: 1},
		},
	}

	classifier := NewTransferGraphClassifier()
	_, ok := classifier.Classify(g)
	if ok {
		t.Fatalf("expected no classification for a purely linear transfer chain")
	}
}

func TestIsCyclic_selfLoopCountsAsCyclicEvenAsSingleton(t *testing.T) {
	addrA := common.HexToAddress("0xaaaa")
	tokenX := common.HexToAddress("0x01")

	g := &domain.TxTransferGraph{
		TxHash: common.HexToHash("0xcafe"),
		From:   addrA,
		To:     addrA,
		Transfers: []domain.Transfer{
			{Token: tokenX, From: addrA, To: addrA, Amount: big.NewInt(1), LogIndex: 0},
		},
	}

	tg := buildTxGraph(g)
	sccs := tarjanSCC(tg.adj)
	if len(sccs) != 1 {
		t.Fatalf("expected exactly one SCC, got %d", len(sccs))
	}
	if !isCyclic(tg.adj, sccs[0]) {
		t.Fatalf("expected a self-loop singleton to be classified as cyclic")
	}
}
