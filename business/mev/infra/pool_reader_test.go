package infra

import "testing"

func TestNewPoolReader_parses_the_v2_pair_abi(t *testing.T) {
	reader, err := NewPoolReader(nil)
	if err != nil {
		t.Fatalf("unexpected error parsing the V2 pair ABI: %v", err)
	}

	for _, method := range []string{"token0", "token1", "getReserves"} {
		if _, ok := reader.pairABI.Methods[method]; !ok {
			t.Errorf("expected pairABI to expose method %q", method)
		}
	}
}

func TestV2Fee_is_the_fixed_997_1000_swap_fee(t *testing.T) {
	if v2FeeNumerator.Int64() != 997 {
		t.Errorf("expected fee numerator 997, got %d", v2FeeNumerator.Int64())
	}
	if v2FeeDenominator.Int64() != 1000 {
		t.Errorf("expected fee denominator 1000, got %d", v2FeeDenominator.Int64())
	}
}
