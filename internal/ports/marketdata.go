package ports

import (
	"context"

	"cryptoSignalDash/internal/domain"
)

// MarketDataClient defines the interface for the price/streaming data
// provider. This abstraction decouples the chart merger and the verification
// engine from the concrete exchange implementation.
type MarketDataClient interface {
	// GetCandles retrieves up to limit historical OHLC buckets for the symbol,
	// ordered ascending by bucket start time with regular spacing.
	GetCandles(ctx context.Context, symbol, interval string, limit int) ([]domain.Candle, error)

	// GetCurrentPrice retrieves the current realized price for the symbol.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)

	// StreamTrades starts a WebSocket stream of trade ticks for the symbol.
	// The handler receives ticks in arrival order; reconnection is handled
	// inside the adapter and surfaced through errHandler, never by tearing
	// down the returned channels prematurely.
	// doneCh closes when the stream is finished for good; sending on stopCh
	// requests teardown.
	StreamTrades(ctx context.Context, symbol string, handler func(trade domain.Trade), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error)
}
