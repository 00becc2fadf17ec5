package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"cryptoSignalDash/config"
	"cryptoSignalDash/internal/adapters/binanceclient"
	"cryptoSignalDash/internal/adapters/logger"
	"cryptoSignalDash/internal/chart"
	"cryptoSignalDash/internal/utils"
)

// export_candles fetches the historical candle series for one configured
// asset and writes it to a CSV file for offline inspection.
func main() {
	asset := flag.String("asset", "bitcoin", "configured asset key to export")
	limit := flag.Int("limit", 100, "number of candle buckets to fetch")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	symbol, ok := cfg.Symbol(*asset)
	if !ok {
		log.Fatalf("FATAL: Asset %q is not configured", *asset)
	}

	// 3. Initialize Market Data Client (Binance Adapter)
	marketClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized")

	interval := chart.IntervalToken(cfg.CandleInterval)
	fmt.Printf("Fetching %d %s candles for %s (%s)...\n", *limit, interval, *asset, symbol)

	candles, err := marketClient.GetCandles(context.Background(), symbol, interval, *limit)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error fetching candles")
		log.Fatalf("Error fetching candles: %v", err)
	}
	appLogger.Info(context.Background(), "Fetched candles", map[string]interface{}{"count": len(candles)})

	filename := fmt.Sprintf("data/%s_%s_%s.csv", symbol, interval, time.Now().Format("20060102_150405"))
	if err := utils.WriteCandlesToCSV(candles, symbol, interval, filename); err != nil {
		appLogger.Error(context.Background(), err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(context.Background(), "Saved to", map[string]interface{}{"filename": filename})
}
