package domain

// CexPricePoint is an immutable CEX reference price, constructed once from
// a Binance-kline-shaped intake row and never mutated. ClosePriceFP is
// USD * 10^8 (8-decimal fixed point); QuoteDecimals is the on-chain decimal
// exponent of the quote token this price is denominated against. No float
// value participates past construction — see internal/intmath's package
// doc for the float boundary this type sits on.
type CexPricePoint struct {
	TimestampS    int64
	ClosePriceFP  int64
	QuoteDecimals uint8
}
