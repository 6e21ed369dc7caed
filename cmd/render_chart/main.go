package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"candleloader/config"
	"candleloader/internal/adapters/csvstore"
	"candleloader/internal/adapters/logger"
	"candleloader/internal/chart"
	"candleloader/internal/domain"
)

func main() {
	symbolFlag := flag.String("symbol", "BTCUSDT", "symbol whose downloaded series to render")
	outFlag := flag.String("out", "", "output HTML file (default <DATA_DIR>/<SYMBOL>_<INTERVAL>.html)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	store, err := csvstore.New(csvstore.Config{
		Dir:           cfg.DataDir,
		IntervalLabel: cfg.IntervalLabel(),
		Logger:        appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize CSV store")
		log.Fatalf("FATAL: Failed to initialize CSV store: %v", err)
	}

	symbol := strings.ToUpper(strings.TrimSpace(*symbolFlag))
	path := store.FilePath(symbol)
	candles, err := csvstore.ReadSeries(path)
	if err != nil {
		appLogger.Error(ctx, err, "Error loading series", map[string]interface{}{"symbol": symbol, "path": path})
		log.Fatalf("Error loading series: %v", err)
	}

	bars, err := domain.BarsFromCandles(candles)
	if err != nil {
		appLogger.Error(ctx, err, "Error parsing series", map[string]interface{}{"symbol": symbol})
		log.Fatalf("Error parsing series: %v", err)
	}

	out := *outFlag
	if out == "" {
		out = strings.TrimSuffix(path, ".csv") + ".html"
	}
	f, err := os.Create(out)
	if err != nil {
		appLogger.Error(ctx, err, "Error creating output file", map[string]interface{}{"path": out})
		log.Fatalf("Error creating output file: %v", err)
	}
	defer f.Close()

	if err := chart.Render(f, symbol, cfg.IntervalLabel(), bars); err != nil {
		appLogger.Error(ctx, err, "Error rendering chart", map[string]interface{}{"symbol": symbol})
		log.Fatalf("Error rendering chart: %v", err)
	}
	appLogger.Info(ctx, "Chart written", map[string]interface{}{"symbol": symbol, "bars": len(bars), "path": out})
}
