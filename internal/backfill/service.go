package backfill

import (
	"context"
	"fmt"
	"sort"
	"time"

	"candleloader/internal/domain"
	"candleloader/internal/ports"
)

const defaultYears = 4

// Config holds the parameters driving one run of the backfill controller.
type Config struct {
	Symbols       []string
	Years         int           // Lookback window length in years (365-day years)
	CourtesyDelay time.Duration // Pause between pagination steps of one symbol
}

// Report summarizes the download of one symbol.
type Report struct {
	Symbol   string
	Requests int    // Pagination round-trips issued
	Candles  int    // Rows in the final, filtered series
	Path     string // Written file, empty if the write itself failed
	Err      error  // Terminal failure, nil for a clean run
}

// Service walks each configured symbol backward in time from "now" to the
// target start boundary, merging paginated fetches into one ordered,
// deduplicated series and persisting it. Strictly sequential: one symbol is
// fully backfilled before the next begins.
type Service struct {
	cfg      Config
	provider ports.KlineProvider
	store    ports.SeriesStore
	logger   ports.Logger

	// Injectable for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// New creates the backfill service.
func New(cfg Config, provider ports.KlineProvider, store ports.SeriesStore, log ports.Logger) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: kline provider is required", ports.ErrConfigurationError)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: series store is required", ports.ErrConfigurationError)
	}
	if log == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol is required", ports.ErrConfigurationError)
	}
	if cfg.Years <= 0 {
		cfg.Years = defaultYears
	}
	return &Service{
		cfg:      cfg,
		provider: provider,
		store:    store,
		logger:   log,
		now:      time.Now,
		sleep:    time.Sleep,
	}, nil
}

// Run downloads every configured symbol sequentially. A failure on one
// symbol never aborts the remaining symbols.
func (s *Service) Run(ctx context.Context) []Report {
	reports := make([]Report, 0, len(s.cfg.Symbols))
	for _, symbol := range s.cfg.Symbols {
		reports = append(reports, s.downloadSymbol(ctx, symbol))
	}
	return reports
}

// downloadSymbol pages backward from now until the start boundary is
// reached, the provider runs out of history, or a fetch fails. Whatever was
// accumulated is always filtered to the requested window and written.
func (s *Service) downloadSymbol(ctx context.Context, symbol string) Report {
	endMs := s.now().UTC().UnixMilli()
	startMs := endMs - int64(s.cfg.Years)*365*millisPerDay

	report := Report{Symbol: symbol}
	var series []*domain.Candle
	cursorEnd := endMs

	s.logger.Info(ctx, "Backfill started", map[string]interface{}{
		"symbol": symbol, "from": fmtMs(startMs), "to": fmtMs(endMs),
	})

	for cursorEnd > startMs {
		// Interruption is honored between requests only.
		if err := ctx.Err(); err != nil {
			report.Err = err
			break
		}

		batch, err := s.provider.FetchKlines(ctx, symbol, startMs, cursorEnd)
		report.Requests++
		if err != nil {
			// Provider and transport failures both end this symbol's
			// pagination; the partial series is still written.
			s.logger.Warn(ctx, "Fetch failed, keeping partial series", map[string]interface{}{
				"symbol": symbol, "requests": report.Requests, "error": err.Error(),
			})
			report.Err = err
			break
		}
		if len(batch) == 0 {
			s.logger.Debug(ctx, "History exhausted", map[string]interface{}{
				"symbol": symbol, "requests": report.Requests,
			})
			break
		}

		sortAscending(batch)
		// Every batch is strictly older than the accumulated series because
		// the cursor shrinks below the oldest seen timestamp, so prepending
		// keeps the series ordered with no duplicates.
		series = append(batch, series...)
		oldest := batch[0].Timestamp

		s.logger.Debug(ctx, "Fetched page", map[string]interface{}{
			"symbol": symbol, "count": len(batch), "oldest": fmtMs(oldest), "total": len(series),
		})

		if oldest <= startMs {
			break
		}
		// Strictly older than the oldest candle just seen: guarantees
		// progress and avoids refetching the boundary candle.
		cursorEnd = oldest - 1
		s.sleep(s.cfg.CourtesyDelay)
	}

	// Defensive trim in case a batch overshot the requested range.
	series = filterRange(series, startMs, endMs)
	report.Candles = len(series)

	path, err := s.store.WriteSeries(ctx, symbol, series)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to write series", map[string]interface{}{"symbol": symbol})
		if report.Err == nil {
			report.Err = err
		}
		return report
	}
	report.Path = path

	s.logger.Info(ctx, "Backfill finished", map[string]interface{}{
		"symbol": symbol, "candles": report.Candles, "requests": report.Requests, "path": path,
	})
	return report
}

const millisPerDay = 24 * 60 * 60 * 1000

func sortAscending(candles []*domain.Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})
}

// filterRange keeps candles with startMs <= ts <= endMs. Idempotent.
func filterRange(candles []*domain.Candle, startMs, endMs int64) []*domain.Candle {
	filtered := make([]*domain.Candle, 0, len(candles))
	for _, c := range candles {
		if c.Timestamp >= startMs && c.Timestamp <= endMs {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func fmtMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
