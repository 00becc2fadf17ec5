package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrediction(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	report := &AnalysisReport{
		Asset:                  "bitcoin",
		Signal:                 "STRONG BUY",
		CurrentPrice:           50000,
		ProjectedChangePercent: 5,
		SentimentScore:         3,
		AnalysisText:           "momentum looks solid",
	}

	pred := NewPrediction(report, now)

	require.NotEmpty(t, pred.ID)
	assert.Equal(t, "bitcoin", pred.Asset)
	assert.Equal(t, now, pred.CreatedAt)
	assert.Equal(t, 50000.0, pred.InitialPrice)
	assert.Equal(t, 5.0, pred.PredictedChangePercent)
	assert.InDelta(t, 52500.0, pred.TargetPrice, 1e-9)
	assert.Equal(t, "STRONG BUY", pred.Signal)
	assert.Equal(t, 3, pred.SentimentScore)
	assert.Equal(t, "momentum looks solid", pred.AnalysisText)
}

func TestNewPrediction_NegativeProjection(t *testing.T) {
	report := &AnalysisReport{
		Asset:                  "ethereum",
		CurrentPrice:           2000,
		ProjectedChangePercent: -10,
	}

	pred := NewPrediction(report, time.Now())

	assert.InDelta(t, 1800.0, pred.TargetPrice, 1e-9)
}

func TestNewPrediction_UniqueIDs(t *testing.T) {
	report := &AnalysisReport{Asset: "bitcoin", CurrentPrice: 1}
	now := time.Now()

	a := NewPrediction(report, now)
	b := NewPrediction(report, now)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestAgeHours(t *testing.T) {
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	pred := &Prediction{CreatedAt: created}

	tests := []struct {
		name string
		now  time.Time
		want float64
	}{
		{name: "just created", now: created, want: 0},
		{name: "half a day", now: created.Add(12 * time.Hour), want: 12},
		{name: "exactly a day", now: created.Add(24 * time.Hour), want: 24},
		{name: "thirty minutes", now: created.Add(30 * time.Minute), want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, pred.AgeHours(tt.now), 1e-9)
		})
	}
}
