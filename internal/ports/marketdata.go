package ports

import (
	"context"

	"candleloader/internal/domain"
)

// KlineProvider is the range fetcher the backfill controller drives.
// One call issues exactly one bounded request; retry policy, if any,
// belongs to the caller.
//
// The (batch, error) pair is a discriminated result:
//   - (batch, nil) with len(batch) > 0: progress, batch carries candles in
//     provider order (callers must not assume any ordering);
//   - (empty, nil): clean end of history, not an error;
//   - (nil, err): provider-reported or transport-level failure.
type KlineProvider interface {
	// FetchKlines returns the provider's candles for the closed window
	// [startMs, endMs] on one symbol, capped at the provider's page limit.
	FetchKlines(ctx context.Context, symbol string, startMs, endMs int64) ([]*domain.Candle, error)
}

// SeriesStore persists one symbol's completed candle series and returns the
// path of the written artifact.
type SeriesStore interface {
	WriteSeries(ctx context.Context, symbol string, candles []*domain.Candle) (string, error)
}
