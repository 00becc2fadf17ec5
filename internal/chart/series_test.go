package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalDash/internal/domain"
)

func TestSeries_ApplyTick_MergesWithinBucket(t *testing.T) {
	s := NewSeries(15 * time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Bootstrap([]domain.Candle{domain.NewCandle(base, 100)})

	candle, appended := s.ApplyTick(110, base.Add(5*time.Minute))
	assert.False(t, appended)
	assert.Equal(t, 100.0, candle.Open)
	assert.Equal(t, 110.0, candle.High)
	assert.Equal(t, 110.0, candle.Close)

	candle, appended = s.ApplyTick(90, base.Add(14*time.Minute))
	assert.False(t, appended)
	assert.Equal(t, 110.0, candle.High)
	assert.Equal(t, 90.0, candle.Low)
	assert.Equal(t, 90.0, candle.Close)

	assert.Equal(t, 1, s.Len())
}

func TestSeries_ApplyTick_OpensNewBucket(t *testing.T) {
	s := NewSeries(15 * time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Bootstrap([]domain.Candle{domain.NewCandle(base, 100)})

	candle, appended := s.ApplyTick(101, base.Add(15*time.Minute))
	require.True(t, appended)
	assert.True(t, candle.BucketStart.Equal(base.Add(15*time.Minute)))
	assert.Equal(t, 101.0, candle.Open)
	assert.Equal(t, 101.0, candle.Close)
	assert.Equal(t, 2, s.Len())

	// The previous bucket closed untouched.
	snapshot := s.Snapshot()
	assert.Equal(t, 100.0, snapshot[0].Close)
}

func TestSeries_ApplyTick_EmptySeries(t *testing.T) {
	s := NewSeries(15 * time.Minute)

	candle, appended := s.ApplyTick(42, time.Date(2025, 6, 1, 12, 7, 0, 0, time.UTC))
	assert.True(t, appended)
	assert.True(t, candle.BucketStart.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, s.Len())
}

func TestSeries_Snapshot_IsACopy(t *testing.T) {
	s := NewSeries(15 * time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Bootstrap([]domain.Candle{domain.NewCandle(base, 100)})

	snapshot := s.Snapshot()
	snapshot[0].Close = 999

	fresh := s.Snapshot()
	assert.Equal(t, 100.0, fresh[0].Close)
}

func TestSeries_Bootstrap_ReplacesExisting(t *testing.T) {
	s := NewSeries(15 * time.Minute)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.Bootstrap([]domain.Candle{domain.NewCandle(base, 100), domain.NewCandle(base.Add(15*time.Minute), 101)})
	require.Equal(t, 2, s.Len())

	s.Bootstrap([]domain.Candle{domain.NewCandle(base, 50)})
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 50.0, s.Snapshot()[0].Open)
}

func TestIntervalToken(t *testing.T) {
	tests := []struct {
		width time.Duration
		want  string
	}{
		{15 * time.Minute, "15m"},
		{1 * time.Minute, "1m"},
		{time.Hour, "1h"},
		{4 * time.Hour, "4h"},
		{90 * time.Minute, "90m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IntervalToken(tt.width))
	}
}
