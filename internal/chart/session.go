package chart

import (
	"context"
	"fmt"
	"sync"

	"cryptoSignalDash/internal/domain"
	"cryptoSignalDash/internal/ports"
)

const tickBufferSize = 1000 // Buffered so the WebSocket callback never blocks

// Session owns the single active chart series and its live stream. Switching
// assets tears down the previous subscription first, and a generation counter
// discards responses that arrive for an already-superseded asset.
type Session struct {
	logger       ports.Logger
	market       ports.MarketDataClient
	events       ports.EventPublisher
	historyLimit int

	mu         sync.Mutex
	generation uint64
	asset      string
	symbol     string
	series     *Series
	cancel     context.CancelFunc // Cancels the stream + consumer of the current generation
	stopStream chan<- struct{}
}

// NewSession creates an idle chart session.
func NewSession(logger ports.Logger, market ports.MarketDataClient, events ports.EventPublisher, series *Series, historyLimit int) (*Session, error) {
	if logger == nil || market == nil || events == nil || series == nil {
		return nil, fmt.Errorf("missing required dependencies for chart session")
	}
	if historyLimit <= 0 {
		return nil, fmt.Errorf("history limit must be positive")
	}
	return &Session{
		logger:       logger,
		market:       market,
		events:       events,
		series:       series,
		historyLimit: historyLimit,
	}, nil
}

// Start switches the session to the given asset: the previous stream is torn
// down, the historical base is fetched and the live stream subscribed. If the
// session is switched again while the historical fetch is in flight, the
// stale response is discarded when it arrives.
func (s *Session) Start(ctx context.Context, asset, symbol string) error {
	op := "Session.Start"

	s.mu.Lock()
	s.generation++
	myGen := s.generation
	s.teardownLocked()
	s.mu.Unlock()

	candles, err := s.market.GetCandles(ctx, symbol, IntervalToken(s.series.Width()), s.historyLimit)
	if err != nil {
		return fmt.Errorf("failed to load historical candles for %s: %w", symbol, err)
	}

	s.mu.Lock()
	if s.generation != myGen {
		s.mu.Unlock()
		s.logger.Info(ctx, op+": Discarding stale historical response", map[string]interface{}{"asset": asset, "generation": myGen})
		return nil
	}
	s.asset = asset
	s.symbol = symbol
	s.series.Bootstrap(candles)
	snapshot := s.series.Snapshot()

	streamCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	ticks := make(chan domain.Trade, tickBufferSize)
	handler := func(trade domain.Trade) {
		select {
		case ticks <- trade:
		default:
			// Dropping is preferable to blocking the stream callback; the
			// next tick in the bucket restores close/high/low anyway.
			s.logger.Warn(streamCtx, op+": Tick buffer full, dropping trade", map[string]interface{}{"symbol": trade.Symbol})
		}
	}
	errHandler := func(err error) {
		// Stream errors never tear down the series; the historical base
		// stays valid and the adapter reconnects on its own.
		s.logger.Error(streamCtx, err, op+": Live stream error", map[string]interface{}{"asset": asset})
	}

	_, stopCh, err := s.market.StreamTrades(streamCtx, symbol, handler, errHandler)
	if err != nil {
		// Bootstrap data remains valid and displayed even without a live feed.
		s.logger.Error(ctx, err, op+": Failed to subscribe live stream, serving historical data only", map[string]interface{}{"asset": asset})
		s.stopStream = nil
	} else {
		s.stopStream = stopCh
	}
	s.mu.Unlock()

	s.events.Publish(domain.Event{Type: domain.EventSeriesReset, Payload: SeriesSnapshot{Asset: asset, Candles: snapshot}})

	// Single consumption point per stream: ticks are applied in arrival order.
	go s.consume(streamCtx, myGen, ticks)

	s.logger.Info(ctx, op+": Chart session started", map[string]interface{}{"asset": asset, "symbol": symbol, "candles": len(snapshot)})
	return nil
}

// consume applies ticks serially until the session generation is superseded.
func (s *Session) consume(ctx context.Context, gen uint64, ticks <-chan domain.Trade) {
	for {
		select {
		case <-ctx.Done():
			return
		case trade := <-ticks:
			s.mu.Lock()
			if s.generation != gen {
				s.mu.Unlock()
				return
			}
			candle, appended := s.series.ApplyTick(trade.Price, trade.Time)
			s.mu.Unlock()

			eventType := domain.EventCandleUpdate
			if appended {
				eventType = domain.EventCandleAppend
			}
			s.events.Publish(domain.Event{Type: eventType, Payload: candle})
		}
	}
}

// Snapshot returns the active asset and a copy of the current series.
func (s *Session) Snapshot() SeriesSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SeriesSnapshot{Asset: s.asset, Candles: s.series.Snapshot()}
}

// Stop tears down the active stream. Safe to call on an idle session.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.teardownLocked()
}

// teardownLocked stops the current stream and consumer. Caller holds s.mu.
func (s *Session) teardownLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.stopStream != nil {
		select {
		case s.stopStream <- struct{}{}:
		default:
		}
		s.stopStream = nil
	}
}

// SeriesSnapshot is the payload handed to the rendering collaborator.
type SeriesSnapshot struct {
	Asset   string          `json:"asset"`
	Candles []domain.Candle `json:"candles"`
}
