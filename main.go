package main

import (
	"context"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"

	"candleloader/config"
	"candleloader/internal/adapters/bybitclient"
	"candleloader/internal/adapters/csvstore"
	"candleloader/internal/adapters/logger"
	"candleloader/internal/backfill"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// Ctrl-C stops after the current request; partial data is still written.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Exchange Client (Bybit Adapter)
	client, err := bybitclient.New(bybitclient.Config{
		BaseURL:  cfg.BaseURL,
		Category: cfg.Category,
		Interval: cfg.Interval,
		Limit:    cfg.Limit,
		Timeout:  cfg.RequestTimeout,
		Logger:   appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Bybit client")
		log.Fatalf("FATAL: Failed to initialize Bybit client: %v", err)
	}

	// 4. Resolve Symbols
	symbols := cfg.Symbols
	if cfg.WantAllSymbols() {
		symbols, err = client.FetchLinearSymbols(ctx)
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to list linear symbols")
			log.Fatalf("FATAL: Failed to list linear symbols: %v", err)
		}
		appLogger.Info(ctx, "Resolved full symbol list", map[string]interface{}{"count": len(symbols)})
	}

	// 5. Initialize CSV Store
	store, err := csvstore.New(csvstore.Config{
		Dir:           cfg.DataDir,
		IntervalLabel: cfg.IntervalLabel(),
		Logger:        appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize CSV store")
		log.Fatalf("FATAL: Failed to initialize CSV store: %v", err)
	}

	// 6. Initialize Backfill Service
	service, err := backfill.New(backfill.Config{
		Symbols:       symbols,
		Years:         cfg.Years,
		CourtesyDelay: cfg.CourtesyDelay,
	}, client, store, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize backfill service")
		log.Fatalf("FATAL: Failed to initialize backfill service: %v", err)
	}

	// 7. Run and summarize
	reports := service.Run(ctx)

	failures := 0
	fmt.Printf("\n%-12s %10s %10s %10s  %s\n", "SYMBOL", "CANDLES", "REQUESTS", "SIZE", "FILE")
	for _, r := range reports {
		size := "-"
		if r.Path != "" {
			if info, statErr := os.Stat(r.Path); statErr == nil {
				size = fmt.Sprintf("%.1f KB", float64(info.Size())/1024)
			}
		}
		fmt.Printf("%-12s %10d %10d %10s  %s\n", r.Symbol, r.Candles, r.Requests, size, r.Path)
		if r.Err != nil {
			failures++
			fmt.Printf("%-12s            error: %v\n", "", r.Err)
		}
	}

	if failures > 0 {
		appLogger.Warn(ctx, "Backfill finished with failures", map[string]interface{}{"failed": failures, "total": len(reports)})
		os.Exit(1)
	}
	appLogger.Info(ctx, "Backfill finished", map[string]interface{}{"symbols": len(reports)})
}
