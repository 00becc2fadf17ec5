package domain

import (
	"time"

	"github.com/google/uuid"
)

// Prediction is one stored analysis outcome awaiting verification.
// TargetPrice is derived once at creation and never recomputed, so later
// price data cannot silently change it.
type Prediction struct {
	ID                     string    `json:"id"`                     // Stable unique identifier assigned at creation
	Asset                  string    `json:"asset"`                  // Logical asset key (e.g. "bitcoin")
	CreatedAt              time.Time `json:"createdAt"`              // Creation time of the prediction
	InitialPrice           float64   `json:"initialPrice"`           // Asset price (USD) at creation time
	PredictedChangePercent float64   `json:"predictedChangePercent"` // Signed percentage projected over the horizon
	TargetPrice            float64   `json:"targetPrice"`            // InitialPrice * (1 + PredictedChangePercent/100)
	Signal                 string    `json:"signal"`                 // Opaque textual trading signal
	SentimentScore         int       `json:"sentimentScore"`         // Signed sentiment indicator
	AnalysisText           string    `json:"analysisText"`           // Free-text rationale
}

// NewPrediction builds a prediction record from a normalized analysis report.
func NewPrediction(report *AnalysisReport, now time.Time) *Prediction {
	return &Prediction{
		ID:                     uuid.NewString(),
		Asset:                  report.Asset,
		CreatedAt:              now,
		InitialPrice:           report.CurrentPrice,
		PredictedChangePercent: report.ProjectedChangePercent,
		TargetPrice:            report.CurrentPrice * (1 + report.ProjectedChangePercent/100),
		Signal:                 report.Signal,
		SentimentScore:         report.SentimentScore,
		AnalysisText:           report.AnalysisText,
	}
}

// AgeHours returns the prediction's age at the given instant, in hours.
func (p *Prediction) AgeHours(now time.Time) float64 {
	return now.Sub(p.CreatedAt).Hours()
}

// VerifiedPrediction is the ephemeral result of scoring a prediction against
// the realized price. It is computed fresh each verification pass and never
// persisted.
type VerifiedPrediction struct {
	PredictionID           string    `json:"predictionId"`
	Asset                  string    `json:"asset"`
	InitialPrice           float64   `json:"initialPrice"`
	PredictedChangePercent float64   `json:"predictedChangePercent"`
	ActualChangePercent    float64   `json:"actualChangePercent"`
	AccuracyScore          float64   `json:"accuracyScore"`
	Signal                 string    `json:"signal"`
	CreatedAt              time.Time `json:"createdAt"`
}
