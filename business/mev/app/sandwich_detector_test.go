package app

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestDetectSandwiches_fullMatchScoresHighestConfidence(t *testing.T) {
	attacker := common.HexToAddress("0xa11ce")
	victim := common.HexToAddress("0xb0b")
	tokenX := common.HexToAddress("0x01")

	txs := []TxGasSummary{
		{Hash: common.HexToHash("0x1"), From: attacker, EGP: big.NewInt(100), Swap: &SwapLeg{Token: tokenX, Sold: false}},
		{Hash: common.HexToHash("0x2"), From: victim, EGP: big.NewInt(50), Swap: &SwapLeg{Token: tokenX, Sold: false}},
		{Hash: common.HexToHash("0x3"), From: attacker, EGP: big.NewInt(100), Swap: &SwapLeg{Token: tokenX, Sold: true}},
	}

	matches := DetectSandwiches(txs)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one match, got %d", len(matches))
	}
	if matches[0].Confidence != 0.95 {
		t.Fatalf("expected full-match confidence 0.95, got %v", matches[0].Confidence)
	}
	if matches[0].TokenX != tokenX {
		t.Fatalf("expected matched token to be tokenX")
	}
}

func TestDetectSandwiches_differentSendersScoreThreeOfFour(t *testing.T) {
	a := common.HexToAddress("0xa")
	b := common.HexToAddress("0xb")
	c := common.HexToAddress("0xc")
	tokenX := common.HexToAddress("0x01")

	txs := []TxGasSummary{
		{Hash: common.HexToHash("0x1"), From: a, EGP: big.NewInt(100), Swap: &SwapLeg{Token: tokenX, Sold: false}},
		{Hash: common.HexToHash("0x2"), From: b, EGP: big.NewInt(50), Swap: &SwapLeg{Token: tokenX, Sold: false}},
		{Hash: common.HexToHash("0x3"), From: c, EGP: big.NewInt(100), Swap: &SwapLeg{Token: tokenX, Sold: true}},
	}

	// Only the same-sender bracket fails; the direction, shared-token and
	// gas-price conditions all hold, so the window scores three of four.
	matches := DetectSandwiches(txs)
	if len(matches) != 1 {
		t.Fatalf("expected one match when only the tx0/tx2 sender condition fails, got %d", len(matches))
	}
	if matches[0].Confidence != 0.8 {
		t.Fatalf("expected three-of-four confidence 0.8, got %v", matches[0].Confidence)
	}
}

func TestDetectSandwiches_overlappingTriplesAreDeduplicated(t *testing.T) {
	attacker := common.HexToAddress("0xa11ce")
	victim := common.HexToAddress("0xb0b")
	tokenX := common.HexToAddress("0x01")

	// Two overlapping windows that both clear the bar (the first at 0.95,
	// the second at 0.5) share tx index 1..2; only the first (greedily, in
	// scan order) should be reported.
	txs := []TxGasSummary{
		{Hash: common.HexToHash("0x1"), From: attacker, EGP: big.NewInt(100), Swap: &SwapLeg{Token: tokenX, Sold: false}},
		{Hash: common.HexToHash("0x2"), From: victim, EGP: big.NewInt(50), Swap: &SwapLeg{Token: tokenX, Sold: false}},
		{Hash: common.HexToHash("0x3"), From: attacker, EGP: big.NewInt(100), Swap: &SwapLeg{Token: tokenX, Sold: true}},
		{Hash: common.HexToHash("0x4"), From: attacker, EGP: big.NewInt(100), Swap: &SwapLeg{Token: tokenX, Sold: true}},
	}

	matches := DetectSandwiches(txs)
	if len(matches) != 1 {
		t.Fatalf("expected overlapping windows to dedupe to one match, got %d", len(matches))
	}
}

func TestEffectiveGasPrice_legacyReturnsGasPriceUnchanged(t *testing.T) {
	gp := big.NewInt(42)
	got := EffectiveGasPrice(big.NewInt(1), big.NewInt(2), big.NewInt(3), gp, true)
	if got.Cmp(gp) != 0 {
		t.Fatalf("expected legacy gas price unchanged, got %s", got)
	}
}

func TestEffectiveGasPrice_feeMarketCapsAtMaxFeePerGas(t *testing.T) {
	baseFee := big.NewInt(100)
	maxFee := big.NewInt(120)
	maxPriority := big.NewInt(50)
	got := EffectiveGasPrice(baseFee, maxFee, maxPriority, nil, false)
	if got.Cmp(maxFee) != 0 {
		t.Fatalf("expected cap at maxFeePerGas (120), got %s", got)
	}
}
