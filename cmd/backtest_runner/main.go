package main

import (
	"context"
	"fmt"
	"log"
	"math"

	"candleloader/config"
	"candleloader/internal/adapters/csvstore"
	"candleloader/internal/adapters/logger"
	"candleloader/internal/domain"
	"candleloader/internal/strategy/backtesting"
	"candleloader/internal/strategy/fvg"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	if cfg.WantAllSymbols() {
		log.Fatalf("FATAL: SYMBOLS=all is not supported for backtests, list the symbols explicitly")
	}

	store, err := csvstore.New(csvstore.Config{
		Dir:           cfg.DataDir,
		IntervalLabel: cfg.IntervalLabel(),
		Logger:        appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize CSV store")
		log.Fatalf("FATAL: Failed to initialize CSV store: %v", err)
	}

	btCfg := backtesting.DefaultConfig()
	totalTrades, totalWins := 0, 0
	totalProfit := 0.0
	failures := 0

	// 2. Run the FVG strategy over each symbol's downloaded series.
	for _, symbol := range cfg.Symbols {
		path := store.FilePath(symbol)
		candles, err := csvstore.ReadSeries(path)
		if err != nil {
			appLogger.Error(ctx, err, "Error loading series", map[string]interface{}{"symbol": symbol, "path": path})
			failures++
			continue
		}

		bars, err := domain.BarsFromCandles(candles)
		if err != nil {
			appLogger.Error(ctx, err, "Error parsing series", map[string]interface{}{"symbol": symbol, "path": path})
			failures++
			continue
		}

		params := fvg.ParamsFor(symbol)
		result, err := backtesting.Backtest(ctx, symbol, bars, params, btCfg)
		if err != nil {
			appLogger.Error(ctx, err, "Backtest error", map[string]interface{}{"symbol": symbol})
			failures++
			continue
		}

		appLogger.Info(ctx, "Backtest result", map[string]interface{}{
			"Symbol":       symbol,
			"Bars":         len(bars),
			"Trades":       result.TotalTrades,
			"WinRate":      fmt.Sprintf("%.1f%%", result.WinRate),
			"PnL":          fmt.Sprintf("%.2f", result.TotalProfit),
			"ProfitFactor": formatProfitFactor(result.ProfitFactor),
			"MaxDD":        fmt.Sprintf("%.2f%%", result.MaxDrawdown),
			"AvgWin":       fmt.Sprintf("%.2f", result.AverageWin),
			"AvgLoss":      fmt.Sprintf("%.2f", result.AverageLoss),
			"FinalBalance": fmt.Sprintf("%.2f", result.FinalBalance),
		})

		totalTrades += result.TotalTrades
		totalWins += result.WinningTrades
		totalProfit += result.TotalProfit
	}

	// 3. Aggregate across symbols
	winRate := 0.0
	if totalTrades > 0 {
		winRate = float64(totalWins) / float64(totalTrades) * 100
	}
	appLogger.Info(ctx, "Aggregate result", map[string]interface{}{
		"Symbols": len(cfg.Symbols) - failures,
		"Failed":  failures,
		"Trades":  totalTrades,
		"WinRate": fmt.Sprintf("%.1f%%", winRate),
		"PnL":     fmt.Sprintf("%.2f", totalProfit),
	})
	if failures > 0 {
		log.Fatalf("FATAL: %d of %d symbols failed", failures, len(cfg.Symbols))
	}
}

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}
