package chart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalDash/internal/domain"
)

// Mock implementations

type mockLogger struct{}

func (mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockMarket struct {
	mu             sync.Mutex
	candles        map[string][]domain.Candle
	candlesErr     error
	candlesGate    chan struct{} // When set, GetCandles blocks until the gate closes
	candlesEntered chan struct{} // Closed when the gated call is reached
	streamErr      error
	handler        func(domain.Trade)
	stops          int
}

func (m *mockMarket) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error) {
	m.mu.Lock()
	gate := m.candlesGate
	entered := m.candlesEntered
	m.candlesGate = nil
	m.candlesEntered = nil
	m.mu.Unlock()
	if gate != nil {
		if entered != nil {
			close(entered)
		}
		<-gate
	}
	if m.candlesErr != nil {
		return nil, m.candlesErr
	}
	return m.candles[symbol], nil
}

func (m *mockMarket) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, errors.New("not used")
}

func (m *mockMarket) StreamTrades(ctx context.Context, symbol string, handler func(domain.Trade), errHandler func(error)) (chan struct{}, chan struct{}, error) {
	if m.streamErr != nil {
		return nil, nil, m.streamErr
	}
	m.mu.Lock()
	m.handler = handler
	m.mu.Unlock()
	doneCh := make(chan struct{})
	stopCh := make(chan struct{}, 1)
	go func() {
		select {
		case <-ctx.Done():
		case <-stopCh:
			m.mu.Lock()
			m.stops++
			m.mu.Unlock()
		}
		close(doneCh)
	}()
	return doneCh, stopCh, nil
}

func (m *mockMarket) emit(trade domain.Trade) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h != nil {
		h(trade)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) byType(t domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func testCandles(base time.Time, n int) []domain.Candle {
	out := make([]domain.Candle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.NewCandle(base.Add(time.Duration(i)*15*time.Minute), 100+float64(i)))
	}
	return out
}

func TestSession_Start_BootstrapsAndPublishesReset(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	market := &mockMarket{candles: map[string][]domain.Candle{"BTCUSDT": testCandles(base, 3)}}
	pub := &recordingPublisher{}

	session, err := NewSession(mockLogger{}, market, pub, NewSeries(15*time.Minute), 100)
	require.NoError(t, err)
	defer session.Stop()

	require.NoError(t, session.Start(context.Background(), "bitcoin", "BTCUSDT"))

	snap := session.Snapshot()
	assert.Equal(t, "bitcoin", snap.Asset)
	assert.Len(t, snap.Candles, 3)

	resets := pub.byType(domain.EventSeriesReset)
	require.Len(t, resets, 1)
	payload, ok := resets[0].Payload.(SeriesSnapshot)
	require.True(t, ok)
	assert.Equal(t, "bitcoin", payload.Asset)
	assert.Len(t, payload.Candles, 3)
}

func TestSession_Start_HistoricalFetchFails(t *testing.T) {
	market := &mockMarket{candlesErr: errors.New("api down")}
	pub := &recordingPublisher{}

	session, err := NewSession(mockLogger{}, market, pub, NewSeries(15*time.Minute), 100)
	require.NoError(t, err)

	err = session.Start(context.Background(), "bitcoin", "BTCUSDT")
	assert.Error(t, err)
	assert.Empty(t, pub.byType(domain.EventSeriesReset))
}

func TestSession_Start_StreamFailureKeepsHistoricalData(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	market := &mockMarket{
		candles:   map[string][]domain.Candle{"BTCUSDT": testCandles(base, 2)},
		streamErr: errors.New("ws unavailable"),
	}
	pub := &recordingPublisher{}

	session, err := NewSession(mockLogger{}, market, pub, NewSeries(15*time.Minute), 100)
	require.NoError(t, err)
	defer session.Stop()

	// Subscribe failure is not fatal: the historical base is still served.
	require.NoError(t, session.Start(context.Background(), "bitcoin", "BTCUSDT"))
	assert.Len(t, session.Snapshot().Candles, 2)
	assert.Len(t, pub.byType(domain.EventSeriesReset), 1)
}

func TestSession_TicksUpdateSeries(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	market := &mockMarket{candles: map[string][]domain.Candle{"BTCUSDT": testCandles(base, 1)}}
	pub := &recordingPublisher{}

	session, err := NewSession(mockLogger{}, market, pub, NewSeries(15*time.Minute), 100)
	require.NoError(t, err)
	defer session.Stop()
	require.NoError(t, session.Start(context.Background(), "bitcoin", "BTCUSDT"))

	// Tick inside the open bucket updates it in place.
	market.emit(domain.Trade{Symbol: "BTCUSDT", Price: 150, Time: base.Add(10 * time.Minute)})
	require.Eventually(t, func() bool {
		return len(pub.byType(domain.EventCandleUpdate)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 150.0, session.Snapshot().Candles[0].Close)

	// Tick in the next bucket appends a fresh candle.
	market.emit(domain.Trade{Symbol: "BTCUSDT", Price: 151, Time: base.Add(16 * time.Minute)})
	require.Eventually(t, func() bool {
		return len(pub.byType(domain.EventCandleAppend)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, session.Snapshot().Candles, 2)
}

func TestSession_StaleHistoricalResponseDiscarded(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gate := make(chan struct{})
	entered := make(chan struct{})
	market := &mockMarket{
		candles: map[string][]domain.Candle{
			"BTCUSDT": testCandles(base, 5),
			"ETHUSDT": testCandles(base, 2),
		},
		candlesGate:    gate,
		candlesEntered: entered,
	}
	pub := &recordingPublisher{}

	session, err := NewSession(mockLogger{}, market, pub, NewSeries(15*time.Minute), 100)
	require.NoError(t, err)
	defer session.Stop()

	// First switch blocks on the historical fetch.
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- session.Start(context.Background(), "bitcoin", "BTCUSDT")
	}()

	// Second switch supersedes it before the fetch returns.
	<-entered
	require.NoError(t, session.Start(context.Background(), "ethereum", "ETHUSDT"))

	close(gate)
	require.NoError(t, <-firstDone)

	// The stale bitcoin response never replaced the ethereum series.
	snap := session.Snapshot()
	assert.Equal(t, "ethereum", snap.Asset)
	assert.Len(t, snap.Candles, 2)
}

func TestSession_Stop_IsIdempotent(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	market := &mockMarket{candles: map[string][]domain.Candle{"BTCUSDT": testCandles(base, 1)}}

	session, err := NewSession(mockLogger{}, market, &recordingPublisher{}, NewSeries(15*time.Minute), 100)
	require.NoError(t, err)
	require.NoError(t, session.Start(context.Background(), "bitcoin", "BTCUSDT"))

	session.Stop()
	session.Stop() // No panic, no double teardown effects.
}
