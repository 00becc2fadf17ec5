package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os/signal"
	"syscall"
	"time"

	"cryptoSignalDash/config"
	"cryptoSignalDash/internal/adapters/analysisclient"
	"cryptoSignalDash/internal/adapters/binanceclient"
	"cryptoSignalDash/internal/adapters/logger"
	"cryptoSignalDash/internal/adapters/sqlite"
	"cryptoSignalDash/internal/api"
	"cryptoSignalDash/internal/app"
	"cryptoSignalDash/internal/chart"
	"cryptoSignalDash/internal/metrics"
	"cryptoSignalDash/internal/scheduler"
	"cryptoSignalDash/internal/verifier"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Metrics Registry
	reg := metrics.NewRegistry()

	// 4. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(ctx, "Database repository initialized")

	// 5. Initialize Market Data Client (Binance Adapter)
	marketClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(ctx, "Binance client initialized")

	// 6. Initialize Analysis Webhook Client
	analysisClient, err := analysisclient.New(analysisclient.Config{
		URL:        cfg.WebhookURL,
		Timeout:    cfg.WebhookTimeout,
		MaxElapsed: cfg.WebhookMaxElapsed,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize analysis client")
		log.Fatalf("FATAL: Failed to initialize analysis client: %v", err)
	}
	appLogger.Info(ctx, "Analysis client initialized")

	// 7. Initialize WebSocket Hub (event fan-out)
	hub := api.NewHub(appLogger, reg)
	go hub.Run(ctx)

	// 8. Initialize Live Candle Session
	session, err := chart.NewSession(appLogger, marketClient, hub, chart.NewSeries(cfg.CandleInterval), cfg.CandleHistoryLimit)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize candle session")
		log.Fatalf("FATAL: Failed to initialize candle session: %v", err)
	}
	defer session.Stop()

	// 9. Initialize Verification Engine and Scheduler
	engine, err := verifier.New(verifier.Config{
		Logger:        appLogger,
		Repository:    repo,
		Market:        marketClient,
		Events:        hub,
		ResolveSymbol: cfg.Symbol,
		Metrics:       reg,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize verification engine")
		log.Fatalf("FATAL: Failed to initialize verification engine: %v", err)
	}
	sched, err := scheduler.New(ctx, engine, appLogger, cfg.VerifyInterval)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize verification scheduler")
		log.Fatalf("FATAL: Failed to initialize verification scheduler: %v", err)
	}
	if err := sched.Start(); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to start verification scheduler")
		log.Fatalf("FATAL: Failed to start verification scheduler: %v", err)
	}
	defer sched.Stop()

	// 10. Initialize Application Service
	service, err := app.NewService(app.Config{
		Cfg:            cfg,
		Logger:         appLogger,
		AnalysisClient: analysisClient,
		Repository:     repo,
		Session:        session,
		Events:         hub,
		Metrics:        reg,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize application service")
		log.Fatalf("FATAL: Failed to initialize application service: %v", err)
	}
	appLogger.Info(ctx, "Application service initialized")

	// 11. Start HTTP Server
	handlers := api.NewHandlers(appLogger, service, engine)
	server := api.NewServer(api.ServerConfig{
		Host: cfg.HTTPHost,
		Port: cfg.HTTPPort,
	}, appLogger, handlers, hub, reg.Handler())

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		appLogger.Info(context.Background(), "Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			appLogger.Error(context.Background(), err, "HTTP server exited with error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, err, "HTTP server shutdown failed")
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
