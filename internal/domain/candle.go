package domain

import "time"

// Candle represents a single OHLC bucket of the chart series.
type Candle struct {
	BucketStart time.Time `json:"bucketStart"` // Start of the bucket, aligned to the bucket width
	Open        float64   `json:"open"`        // First traded price of the bucket
	High        float64   `json:"high"`        // Highest traded price of the bucket
	Low         float64   `json:"low"`         // Lowest traded price of the bucket
	Close       float64   `json:"close"`       // Last traded price of the bucket
}

// BucketStart floors t to the start of its bucket for the given width.
func BucketStart(t time.Time, width time.Duration) time.Time {
	return t.Truncate(width)
}

// NewCandle opens a fresh bucket from a single trade price.
func NewCandle(bucketStart time.Time, price float64) Candle {
	return Candle{
		BucketStart: bucketStart,
		Open:        price,
		High:        price,
		Low:         price,
		Close:       price,
	}
}

// Merge folds a trade price into the candle. Open is never touched.
func (c *Candle) Merge(price float64) {
	if price > c.High {
		c.High = price
	}
	if price < c.Low {
		c.Low = price
	}
	c.Close = price
}
