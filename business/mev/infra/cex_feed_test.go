package infra

import (
	"context"
	"testing"

	"github.com/mevbacktest/backtester/business/pricing/domain"
)

type stubKlines struct {
	klines []domain.Kline
	err    error
}

func (s stubKlines) GetKlines(_ context.Context, _ string, _ string, _ int) ([]domain.Kline, error) {
	return s.klines, s.err
}

func TestCloseToFixedPoint_exactValueScalesCorrectly(t *testing.T) {
	got := closeToFixedPoint(3400.50)
	want := int64(340_050_000_000)
	if got != want {
		t.Fatalf("closeToFixedPoint(3400.50) = %d, want %d", got, want)
	}
}

func TestBankersRound_tiesGoToEvenNeighbor(t *testing.T) {
	cases := []struct {
		in   float64
		want int64
	}{
		{0.5, 0},
		{1.5, 2},
		{2.5, 2},
		{3.5, 4},
		{1.4, 1},
		{1.6, 2},
	}
	for _, tc := range cases {
		if got := bankersRound(tc.in); got != tc.want {
			t.Fatalf("bankersRound(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCexFeed_fetchConvertsKlinesToPricePoints(t *testing.T) {
	stub := stubKlines{klines: []domain.Kline{
		{OpenTimeMs: 1_700_000_000_000, ClosePrice: 3400.0},
		{OpenTimeMs: 1_700_000_060_000, ClosePrice: 3401.5},
	}}
	feed := NewCexFeed(stub)

	points, err := feed.Fetch(context.Background(), "ETHUSDC", "1m", 2, 6)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].TimestampS != 1_700_000_000 {
		t.Fatalf("unexpected timestamp: %d", points[0].TimestampS)
	}
	if points[0].QuoteDecimals != 6 {
		t.Fatalf("unexpected quote decimals: %d", points[0].QuoteDecimals)
	}
	if points[0].ClosePriceFP != 340000000000 {
		t.Fatalf("unexpected fixed point price: %d", points[0].ClosePriceFP)
	}
}
