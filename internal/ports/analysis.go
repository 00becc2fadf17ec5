package ports

import (
	"context"

	"cryptoSignalDash/internal/domain"
)

// AnalysisClient defines the interface for the remote analysis webhook.
// The returned report is always fully populated; missing upstream fields are
// defaulted to neutral values by the adapter rather than failing the request.
type AnalysisClient interface {
	RequestAnalysis(ctx context.Context, asset string) (*domain.AnalysisReport, error)
}
