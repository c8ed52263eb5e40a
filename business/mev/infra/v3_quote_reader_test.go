package infra

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestNewV3QuoteReader_parses_the_quoter_v2_abi(t *testing.T) {
	reader, err := NewV3QuoteReader(nil, common.Address{}, 3000, nil)
	if err != nil {
		t.Fatalf("unexpected error parsing the QuoterV2 ABI: %v", err)
	}
	if _, ok := reader.quoterABI.Methods["quoteExactInputSingle"]; !ok {
		t.Errorf("expected quoterABI to expose method %q", "quoteExactInputSingle")
	}
	if reader.defaultFee != 3000 {
		t.Errorf("expected default fee tier 3000, got %d", reader.defaultFee)
	}
}
