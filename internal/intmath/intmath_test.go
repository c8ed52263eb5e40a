package intmath

import (
	"math/big"
	"testing"
)

func bi(s int64) *big.Int { return big.NewInt(s) }

// bs parses a decimal literal (underscores allowed) too large for an int64.
func bs(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		panic("bad integer literal: " + s)
	}
	return v
}

func TestIsqrt_namedValues(t *testing.T) {
	cases := []struct {
		name string
		n    int64
		want int64
	}{
		{"zero", 0, 0},
		{"one", 1, 1},
		{"oscillation_3", 3, 1},
		{"oscillation_8", 8, 2},
		{"ten", 10, 3},
		{"perfect_square_144", 144, 12},
		{"one_below_perfect_square", 143, 11},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Isqrt(bi(c.n))
			if got.Cmp(bi(c.want)) != 0 {
				t.Fatalf("Isqrt(%d) = %s, want %d", c.n, got, c.want)
			}
		})
	}
}

func TestIsqrt_boundsHoldForRange(t *testing.T) {
	for n := int64(0); n < 5000; n++ {
		root := Isqrt(bi(n))
		sq := new(big.Int).Mul(root, root)
		if sq.Cmp(bi(n)) > 0 {
			t.Fatalf("isqrt(%d)=%s violates isqrt(n)^2 <= n", n, root)
		}
		next := new(big.Int).Add(root, bi(1))
		nextSq := new(big.Int).Mul(next, next)
		if nextSq.Cmp(bi(n)) <= 0 {
			t.Fatalf("isqrt(%d)=%s violates n < (isqrt(n)+1)^2", n, root)
		}
	}
}

func TestAmountOut_zeroInputsYieldZero(t *testing.T) {
	rIn, rOut := bi(1_000_000), bi(2_000_000)
	feeNum, feeDen := bi(997), bi(1000)

	out, err := AmountOut(bi(0), rIn, rOut, feeNum, feeDen)
	if err != nil {
		t.Fatal(err)
	}
	if out.Sign() != 0 {
		t.Fatalf("amount_out(0, ...) = %s, want 0", out)
	}

	out, err = AmountOut(bi(100), rIn, bi(0), feeNum, feeDen)
	if err != nil {
		t.Fatal(err)
	}
	if out.Sign() != 0 {
		t.Fatalf("amount_out(..., reserveOut=0) = %s, want 0", out)
	}
}

func TestAmountOut_neverExceedsReserveOut(t *testing.T) {
	rIn, rOut := bi(1_000_000), bi(2_000_000)
	feeNum, feeDen := bi(997), bi(1000)

	for _, amountIn := range []int64{1, 100, 10_000, 500_000, 50_000_000} {
		out, err := AmountOut(bi(amountIn), rIn, rOut, feeNum, feeDen)
		if err != nil {
			t.Fatal(err)
		}
		if out.Cmp(rOut) >= 0 {
			t.Fatalf("amount_out(%d) = %s, want < reserveOut (%s)", amountIn, out, rOut)
		}
	}
}

func TestSpreadBpsInteger_symmetricUnderSwap(t *testing.T) {
	rA0, rA1 := bi(1_000_000_000000), bs("500_000000000000000000")
	rB0, rB1 := bi(2_050_000_000000), bs("1_000_000000000000000000")

	ab, err := SpreadBpsInteger(rA0, rA1, rB0, rB1)
	if err != nil {
		t.Fatal(err)
	}
	ba, err := SpreadBpsInteger(rB0, rB1, rA0, rA1)
	if err != nil {
		t.Fatal(err)
	}
	if ab.Cmp(ba) != 0 {
		t.Fatalf("spread_bps_integer(A,B)=%s != spread_bps_integer(B,A)=%s", ab, ba)
	}
}

func TestSpreadBpsInteger_identicalPoolsYieldZero(t *testing.T) {
	r0, r1 := bi(1_000_000), bi(2_000_000)
	got, err := SpreadBpsInteger(r0, r1, r0, r1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Sign() != 0 {
		t.Fatalf("identical pools: spread = %s, want 0", got)
	}
}

func TestCexFeeBelow_gatesWithinFee(t *testing.T) {
	pDex := bs("1_000_000000000000000000") // 1000 in 18-dec fixed point
	// Price 5 bps away from pDex, fee floor 10 bps: should be gated (true).
	pCexClose := new(big.Int).Sub(pDex, bi(500_000000000000000)) // 0.05% below
	below, err := CexFeeBelow(pDex, pCexClose, 10)
	if err != nil {
		t.Fatal(err)
	}
	if !below {
		t.Fatalf("expected spread within fee floor to be gated")
	}

	// Price 50 bps away, fee floor 10 bps: should NOT be gated.
	pCexFar := new(big.Int).Sub(pDex, bi(5_000_000000000000000)) // 0.5% below
	below, err = CexFeeBelow(pDex, pCexFar, 10)
	if err != nil {
		t.Fatal(err)
	}
	if below {
		t.Fatalf("expected spread beyond fee floor to clear the gate")
	}
}
