package domain

// Kline is a single historical candle as returned by a REST klines
// endpoint: open time and close price are the only fields the backtester's
// CEX reference price needs.
type Kline struct {
	OpenTimeMs int64
	ClosePrice float64
}
