package chart

import (
	"fmt"
	"time"

	"cryptoSignalDash/internal/domain"
)

// Series is one logical, strictly time-ordered OHLC series. It is seeded from
// a historical fetch and kept current by live trade ticks. At most one bucket
// (the newest) is ever mutable; all earlier buckets are immutable once closed.
//
// Series is not safe for concurrent use; the Session serializes access.
type Series struct {
	width   time.Duration
	candles []domain.Candle
}

// NewSeries creates an empty series with the given bucket width.
func NewSeries(width time.Duration) *Series {
	return &Series{
		width:   width,
		candles: make([]domain.Candle, 0, 128),
	}
}

// Bootstrap replaces the series with the authoritative historical base,
// ordered ascending by bucket start time.
func (s *Series) Bootstrap(candles []domain.Candle) {
	s.candles = make([]domain.Candle, len(candles))
	copy(s.candles, candles)
}

// ApplyTick folds a trade tick into the series and reports the resulting
// candle state. appended is true when the tick opened a new bucket, false
// when it updated the currently-open one in place.
func (s *Series) ApplyTick(price float64, at time.Time) (candle domain.Candle, appended bool) {
	bucket := domain.BucketStart(at, s.width)

	if len(s.candles) == 0 || !bucket.Equal(s.candles[len(s.candles)-1].BucketStart) {
		// Close the current bucket (if any) and open a new one.
		fresh := domain.NewCandle(bucket, price)
		s.candles = append(s.candles, fresh)
		return fresh, true
	}

	// Same bucket: locate it by bucket start time, not slice position.
	idx := s.indexOf(bucket)
	s.candles[idx].Merge(price)
	return s.candles[idx], false
}

// indexOf finds the position of the bucket with the given start time.
// The open bucket is the last element, so the backwards scan is O(1) in the
// common case.
func (s *Series) indexOf(bucket time.Time) int {
	for i := len(s.candles) - 1; i >= 0; i-- {
		if s.candles[i].BucketStart.Equal(bucket) {
			return i
		}
	}
	panic(fmt.Sprintf("chart: bucket %s not found in series", bucket))
}

// Snapshot returns a copy of the series. Mutating the result does not affect
// the series.
func (s *Series) Snapshot() []domain.Candle {
	out := make([]domain.Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// Len returns the number of buckets in the series.
func (s *Series) Len() int {
	return len(s.candles)
}

// Width returns the fixed bucket width.
func (s *Series) Width() time.Duration {
	return s.width
}

// IntervalToken formats a bucket width as an exchange interval token,
// e.g. 15m, 1h.
func IntervalToken(width time.Duration) string {
	if width >= time.Hour && width%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(width.Hours()))
	}
	return fmt.Sprintf("%dm", int(width.Minutes()))
}
