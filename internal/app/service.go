package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cryptoSignalDash/config"
	"cryptoSignalDash/internal/chart"
	"cryptoSignalDash/internal/domain"
	"cryptoSignalDash/internal/metrics"
	"cryptoSignalDash/internal/ports"
)

// Service coordinates the analysis workflow: it requests reports from the
// remote webhook, persists the resulting predictions, and keeps the live
// candle session pointed at the asset under analysis.
type Service struct {
	cfg      *config.Config
	logger   ports.Logger
	analysis ports.AnalysisClient
	repo     ports.PredictionRepository
	session  *chart.Session
	events   ports.EventPublisher
	metrics  *metrics.Registry
	now      func() time.Time
}

// Config holds the dependencies required by the service.
type Config struct {
	Cfg            *config.Config
	Logger         ports.Logger
	AnalysisClient ports.AnalysisClient
	Repository     ports.PredictionRepository
	Session        *chart.Session
	Events         ports.EventPublisher
	Metrics        *metrics.Registry
}

// NewService creates a new service instance with the given dependencies.
func NewService(cfg Config) (*Service, error) {
	if cfg.Cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.AnalysisClient == nil {
		return nil, fmt.Errorf("analysis client is required")
	}
	if cfg.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if cfg.Session == nil {
		return nil, fmt.Errorf("chart session is required")
	}
	events := cfg.Events
	if events == nil {
		events = ports.NopPublisher{}
	}

	return &Service{
		cfg:      cfg.Cfg,
		logger:   cfg.Logger,
		analysis: cfg.AnalysisClient,
		repo:     cfg.Repository,
		session:  cfg.Session,
		events:   events,
		metrics:  cfg.Metrics,
		now:      time.Now,
	}, nil
}

// ChartAnnotations carries the overlay markers drawn alongside the candle
// series: where the analysis happened and where the projection lands.
type ChartAnnotations struct {
	AnalysisTime           time.Time `json:"analysisTime"`
	AnalysisPrice          float64   `json:"analysisPrice"`
	ProjectionTime         time.Time `json:"projectionTime"`
	ProjectedPrice         float64   `json:"projectedPrice"`
	ProjectedChangePercent float64   `json:"projectedChangePercent"`
}

// AnalysisResult is the full outcome of an analysis run or a replay.
type AnalysisResult struct {
	Report      *domain.AnalysisReport `json:"report"`
	Prediction  *domain.Prediction     `json:"prediction"`
	Annotations ChartAnnotations       `json:"annotations"`
}

// projectionHorizon is how far ahead a prediction projects; verification
// happens once the record reaches this age.
const projectionHorizon = 24 * time.Hour

// Analyze runs the full analysis workflow for an asset: request a report from
// the webhook, persist a prediction built from it, and point the live candle
// session at the asset. A chart failure does not void the analysis result;
// a webhook failure produces no prediction at all.
func (s *Service) Analyze(ctx context.Context, asset string) (*AnalysisResult, error) {
	symbol, ok := s.cfg.Symbol(asset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnknownAsset, asset)
	}

	report, err := s.analysis.RequestAnalysis(ctx, asset)
	if err != nil {
		if s.metrics != nil {
			s.metrics.AnalysisRequests.WithLabelValues("error").Inc()
		}
		s.logger.Error(ctx, err, "Analysis request failed", map[string]interface{}{"asset": asset})
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.AnalysisRequests.WithLabelValues("ok").Inc()
	}

	pred := domain.NewPrediction(report, s.now())
	if err := s.repo.Append(ctx, pred); err != nil {
		// The user still gets the report; only history is degraded.
		s.logger.Error(ctx, err, "Failed to persist prediction", map[string]interface{}{
			"asset":        asset,
			"predictionID": pred.ID,
		})
	}

	if err := s.session.Start(ctx, asset, symbol); err != nil {
		s.logger.Error(ctx, err, "Failed to start candle session", map[string]interface{}{
			"asset":  asset,
			"symbol": symbol,
		})
		s.events.Publish(domain.NotificationEvent("Chart data is unavailable right now."))
	}

	s.events.Publish(domain.NotificationEvent("Prediction saved. You can verify the result in 24 hours."))

	return s.result(report, pred), nil
}

// History returns stored predictions, most recent first. A storage error is
// logged and surfaces as an empty history rather than a failed request.
func (s *Service) History(ctx context.Context) []*domain.Prediction {
	preds, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load prediction history", nil)
		return []*domain.Prediction{}
	}
	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].CreatedAt.After(preds[j].CreatedAt)
	})
	return preds
}

// Replay reconstructs the analysis view of a stored prediction and points the
// candle session back at its asset. The prediction itself is not re-scored or
// modified.
func (s *Service) Replay(ctx context.Context, id string) (*AnalysisResult, error) {
	preds, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load predictions: %w", err)
	}

	var pred *domain.Prediction
	for _, p := range preds {
		if p.ID == id {
			pred = p
			break
		}
	}
	if pred == nil {
		return nil, fmt.Errorf("%w: prediction %s", ports.ErrNotFound, id)
	}

	report := &domain.AnalysisReport{
		Asset:                  pred.Asset,
		Signal:                 pred.Signal,
		CurrentPrice:           pred.InitialPrice,
		ProjectedChangePercent: pred.PredictedChangePercent,
		SentimentScore:         pred.SentimentScore,
		AnalysisText:           pred.AnalysisText,
	}

	if symbol, ok := s.cfg.Symbol(pred.Asset); ok {
		if err := s.session.Start(ctx, pred.Asset, symbol); err != nil {
			s.logger.Error(ctx, err, "Failed to start candle session for replay", map[string]interface{}{
				"asset": pred.Asset,
			})
		}
	}

	s.events.Publish(domain.NotificationEvent(fmt.Sprintf(
		"Showing prediction from %s.", pred.CreatedAt.Format("2006-01-02 15:04"))))

	return s.result(report, pred), nil
}

// Delete removes a single prediction by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.events.Publish(domain.NotificationEvent("Prediction deleted."))
	return nil
}

// Clear removes all stored predictions.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	s.events.Publish(domain.NotificationEvent("Prediction history cleared."))
	return nil
}

// Candles returns the current candle series snapshot.
func (s *Service) Candles() chart.SeriesSnapshot {
	return s.session.Snapshot()
}

// Assets returns the configured asset keys in stable order.
func (s *Service) Assets() []string {
	assets := make([]string, 0, len(s.cfg.Assets))
	for asset := range s.cfg.Assets {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// Stop tears down the live candle session.
func (s *Service) Stop() {
	s.session.Stop()
}

func (s *Service) result(report *domain.AnalysisReport, pred *domain.Prediction) *AnalysisResult {
	return &AnalysisResult{
		Report:     report,
		Prediction: pred,
		Annotations: ChartAnnotations{
			AnalysisTime:           pred.CreatedAt,
			AnalysisPrice:          pred.InitialPrice,
			ProjectionTime:         pred.CreatedAt.Add(projectionHorizon),
			ProjectedPrice:         pred.TargetPrice,
			ProjectedChangePercent: pred.PredictedChangePercent,
		},
	}
}
