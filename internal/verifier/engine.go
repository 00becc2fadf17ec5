package verifier

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"cryptoSignalDash/internal/domain"
	"cryptoSignalDash/internal/metrics"
	"cryptoSignalDash/internal/ports"
)

const (
	// Verification window around the 24-hour horizon. The 2-hour tolerance
	// accommodates timer drift: a record is scoreable between 23h and 25h of
	// age and is dropped once it passes 25h, verified or not.
	windowMinHours = 23.0
	windowMaxHours = 25.0
)

// Engine scans the prediction store, scores predictions inside their
// verification window against the realized price, and prunes records that
// have outlived the window. One pass runs at a time; overlapping triggers are
// dropped rather than queued.
type Engine struct {
	logger  ports.Logger
	repo    ports.PredictionRepository
	market  ports.MarketDataClient
	events  ports.EventPublisher
	resolve func(asset string) (string, bool) // asset key -> exchange symbol
	metrics *metrics.Registry

	inFlight atomic.Bool
	now      func() time.Time

	mu        sync.Mutex
	lastBatch []domain.VerifiedPrediction
}

// Config holds dependencies for the verification engine.
type Config struct {
	Logger        ports.Logger
	Repository    ports.PredictionRepository
	Market        ports.MarketDataClient
	Events        ports.EventPublisher
	ResolveSymbol func(asset string) (string, bool)
	Metrics       *metrics.Registry
}

// New creates a verification engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Logger == nil || cfg.Repository == nil || cfg.Market == nil || cfg.Events == nil || cfg.ResolveSymbol == nil {
		return nil, fmt.Errorf("missing required dependencies for verification engine")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewRegistry()
	}
	return &Engine{
		logger:  cfg.Logger,
		repo:    cfg.Repository,
		market:  cfg.Market,
		events:  cfg.Events,
		resolve: cfg.ResolveSymbol,
		metrics: cfg.Metrics,
		now:     time.Now,
	}, nil
}

// RunOnce executes one full verification pass. It is safe to call from the
// scheduler and from startup concurrently: a trigger arriving while a pass is
// in flight is dropped.
func (e *Engine) RunOnce(ctx context.Context) ([]domain.VerifiedPrediction, error) {
	op := "RunOnce"

	if !e.inFlight.CompareAndSwap(false, true) {
		e.logger.Debug(ctx, op+": Verification pass already in flight, dropping trigger")
		e.metrics.VerificationOverlaps.Inc()
		return nil, nil
	}
	defer e.inFlight.Store(false)

	started := e.now()
	defer func() {
		e.metrics.PassDuration.Observe(e.now().Sub(started).Seconds())
		e.metrics.VerificationPasses.Inc()
	}()

	preds, err := e.repo.List(ctx)
	if err != nil {
		e.logger.Error(ctx, err, op+": Failed to read prediction store, skipping pass")
		return nil, nil
	}

	now := e.now()
	batch := make([]domain.VerifiedPrediction, 0)
	expired := make([]string, 0)

	for _, pred := range preds {
		age := pred.AgeHours(now)

		if age > windowMaxHours {
			// Expired: dropped regardless of whether it was ever scored.
			e.logger.Info(ctx, op+": Pruning expired prediction", map[string]interface{}{
				"predictionID": pred.ID,
				"asset":        pred.Asset,
				"ageHours":     age,
			})
			expired = append(expired, pred.ID)
			continue
		}

		if age < windowMinHours {
			continue // Too new; never pruned for that.
		}

		symbol, ok := e.resolve(pred.Asset)
		if !ok {
			e.logger.Warn(ctx, op+": No symbol configured for asset, skipping", map[string]interface{}{"asset": pred.Asset})
			continue
		}

		currentPrice, err := e.market.GetCurrentPrice(ctx, symbol)
		if err != nil {
			// Record stays untouched and remains eligible on the next pass
			// within the window.
			e.logger.Error(ctx, err, op+": Failed to fetch realized price, skipping prediction", map[string]interface{}{
				"predictionID": pred.ID,
				"asset":        pred.Asset,
			})
			continue
		}

		batch = append(batch, Score(pred, currentPrice))
		e.metrics.PredictionsScored.Inc()
	}

	// Prune only the records this pass decided to drop. A targeted delete
	// leaves predictions appended or removed while prices were being
	// fetched untouched.
	if len(expired) > 0 {
		if err := e.repo.DeleteByIDs(ctx, expired); err != nil {
			e.logger.Error(ctx, err, op+": Failed to prune expired predictions")
		} else {
			e.metrics.PredictionsPruned.Add(float64(len(expired)))
		}
	}

	// Results are surfaced as one batch; a pass with zero scoreable records
	// produces no display update.
	if len(batch) > 0 {
		e.mu.Lock()
		e.lastBatch = batch
		e.mu.Unlock()
		e.events.Publish(domain.Event{Type: domain.EventVerificationBatch, Payload: batch})
	}

	e.logger.Debug(ctx, op+": Verification pass complete", map[string]interface{}{
		"stored": len(preds),
		"pruned": len(expired),
		"scored": len(batch),
	})
	return batch, nil
}

// LatestBatch returns the most recent non-empty verification batch.
func (e *Engine) LatestBatch() []domain.VerifiedPrediction {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.VerifiedPrediction, len(e.lastBatch))
	copy(out, e.lastBatch)
	return out
}

// Score computes the verified result for a prediction against the realized
// price. The accuracy score is a symmetric closeness measure capped at 100
// and deliberately not floored at 0: an error above 100 percentage points
// yields a negative score.
func Score(pred *domain.Prediction, currentPrice float64) domain.VerifiedPrediction {
	actualChange := (currentPrice - pred.InitialPrice) / pred.InitialPrice * 100
	accuracy := math.Min(100-math.Abs(actualChange-pred.PredictedChangePercent), 100)

	return domain.VerifiedPrediction{
		PredictionID:           pred.ID,
		Asset:                  pred.Asset,
		InitialPrice:           pred.InitialPrice,
		PredictedChangePercent: pred.PredictedChangePercent,
		ActualChangePercent:    actualChange,
		AccuracyScore:          accuracy,
		Signal:                 pred.Signal,
		CreatedAt:              pred.CreatedAt,
	}
}
