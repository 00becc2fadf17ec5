package domain

// AnalysisReport is the normalized payload returned by the remote analysis
// webhook. Missing upstream fields are defaulted to neutral values during
// decoding; the report itself is always complete.
type AnalysisReport struct {
	Asset                  string  `json:"asset"`
	Signal                 string  `json:"signal"`
	CurrentPrice           float64 `json:"currentPrice"`
	Movement24h            float64 `json:"movement24h"`
	ProjectedChangePercent float64 `json:"projectedChangePercent"`
	ProjectedMovement      string  `json:"projectedMovement"` // Display text only
	SentimentScore         int     `json:"sentimentScore"`
	RecentNews             int     `json:"recentNews"`
	AnalysisText           string  `json:"analysis"`
}
