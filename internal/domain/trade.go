package domain

import "time"

// Trade represents a single trade tick received from the live stream.
type Trade struct {
	Symbol string    // Exchange symbol (e.g. "BTCUSDT")
	Price  float64   // Traded price
	Time   time.Time // Trade time reported by the exchange
}
