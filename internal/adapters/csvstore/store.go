package csvstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"candleloader/internal/domain"
	"candleloader/internal/ports"
)

// datetimeLayout is the human-readable UTC format of the second column.
const datetimeLayout = "2006-01-02 15:04"

var header = []string{"timestamp_ms", "datetime_utc", "open", "high", "low", "close", "volume", "turnover"}

// Store implements the ports.SeriesStore interface writing one CSV file per
// symbol into a fixed output directory.
type Store struct {
	dir    string
	label  string
	logger ports.Logger
}

// Config holds configuration specific to the CSV store adapter.
type Config struct {
	Dir           string // Output directory, created on first write
	IntervalLabel string // File name suffix, e.g. "4H"
	Logger        ports.Logger
}

// New creates a new CSV store adapter.
func New(cfg Config) (*Store, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for CSV store", ports.ErrConfigurationError)
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: output directory is required", ports.ErrConfigurationError)
	}
	if cfg.IntervalLabel == "" {
		return nil, fmt.Errorf("%w: interval label is required", ports.ErrConfigurationError)
	}
	return &Store{dir: cfg.Dir, label: cfg.IntervalLabel, logger: cfg.Logger}, nil
}

// FilePath returns the output path for one symbol's series.
func (s *Store) FilePath(symbol string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", symbol, s.label))
}

// WriteSeries writes the full series for one symbol, replacing any previous
// file. The header row is always written, even for an empty series. Numeric
// fields are emitted exactly as received from the provider.
func (s *Store) WriteSeries(ctx context.Context, symbol string, candles []*domain.Candle) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", ports.ErrStoreFailed, s.dir, err)
	}

	path := s.FilePath(symbol)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", ports.ErrStoreFailed, path, err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		file.Close()
		return "", fmt.Errorf("%w: writing header: %v", ports.ErrStoreFailed, err)
	}
	for _, c := range candles {
		record := []string{
			strconv.FormatInt(c.Timestamp, 10),
			c.Time().Format(datetimeLayout),
			c.Open,
			c.High,
			c.Low,
			c.Close,
			c.Volume,
			c.Turnover,
		}
		if err := writer.Write(record); err != nil {
			file.Close()
			return "", fmt.Errorf("%w: writing row: %v", ports.ErrStoreFailed, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return "", fmt.Errorf("%w: flushing %s: %v", ports.ErrStoreFailed, path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("%w: closing %s: %v", ports.ErrStoreFailed, path, err)
	}

	s.logger.Debug(ctx, "Series written", map[string]interface{}{"symbol": symbol, "rows": len(candles), "path": path})
	return path, nil
}

// ReadSeries loads a CSV written by WriteSeries back into candles. Rows keep
// their on-disk string values; the datetime column is ignored since it is
// derived from the timestamp.
func ReadSeries(path string) ([]*domain.Candle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("reading %s: missing header row", path)
	}

	candles := make([]*domain.Candle, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < len(header) {
			return nil, fmt.Errorf("reading %s: row %d has %d fields", path, i+2, len(rec))
		}
		ts, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("reading %s: row %d timestamp %q: %w", path, i+2, rec[0], err)
		}
		candles = append(candles, &domain.Candle{
			Timestamp: ts,
			Open:      rec[2],
			High:      rec[3],
			Low:       rec[4],
			Close:     rec[5],
			Volume:    rec[6],
			Turnover:  rec[7],
		})
	}
	return candles, nil
}
