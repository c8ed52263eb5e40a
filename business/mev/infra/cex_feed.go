package infra

import (
	"context"
	"math"

	"github.com/mevbacktest/backtester/business/mev/domain"
	pricingapp "github.com/mevbacktest/backtester/business/pricing/app"
)

// CexFeed adapts a pricing-context KlinesProvider into the stream of
// domain.CexPricePoint the MEV context consumes. This is the one place a
// float crosses into the system: close_price_float is converted to
// micro-USD by multiplying by 10^6 with round-half-to-even (banker's)
// rounding, then scaled to an 8-decimal fixed-point integer.
type CexFeed struct {
	klines pricingapp.KlinesProvider
}

// NewCexFeed constructs a CexFeed over the given klines provider.
func NewCexFeed(klines pricingapp.KlinesProvider) *CexFeed {
	return &CexFeed{klines: klines}
}

// Fetch retrieves up to limit historical candles for symbol at interval and
// converts each to a CexPricePoint denominated at quoteDecimals.
func (f *CexFeed) Fetch(ctx context.Context, symbol, interval string, limit int, quoteDecimals uint8) ([]domain.CexPricePoint, error) {
	klines, err := f.klines.GetKlines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}

	points := make([]domain.CexPricePoint, 0, len(klines))
	for _, k := range klines {
		points = append(points, domain.CexPricePoint{
			TimestampS:    k.OpenTimeMs / 1000,
			ClosePriceFP:  closeToFixedPoint(k.ClosePrice),
			QuoteDecimals: quoteDecimals,
		})
	}
	return points, nil
}

// closeToFixedPoint converts a close price float to an 8-decimal
// fixed-point integer: micro-USD (price * 10^6, banker's-rounded) scaled up
// by 100.
func closeToFixedPoint(closePrice float64) int64 {
	microUSD := bankersRound(closePrice * 1_000_000)
	return microUSD * 100
}

// bankersRound rounds x to the nearest integer, breaking exact .5 ties
// toward the even neighbor rather than always away from zero.
func bankersRound(x float64) int64 {
	floor := math.Floor(x)
	diff := x - floor
	switch {
	case diff < 0.5:
		return int64(floor)
	case diff > 0.5:
		return int64(floor) + 1
	default:
		if int64(floor)%2 == 0 {
			return int64(floor)
		}
		return int64(floor) + 1
	}
}
