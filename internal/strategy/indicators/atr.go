package indicators

import (
	"context"
	"fmt"
	"math"

	"candleloader/internal/domain"
)

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
}

// ATRConfig holds configuration for the Average True Range indicator
type ATRConfig struct {
	IndicatorConfig
}

// ATR implements the Average True Range indicator
type ATR struct {
	config ATRConfig
}

// NewATR creates a new Average True Range indicator instance
func NewATR(config ATRConfig) *ATR {
	return &ATR{
		config: config,
	}
}

// RequiredDataPoints returns the minimum number of bars needed for calculation
func (a *ATR) RequiredDataPoints() int {
	return a.config.Period + 1
}

// Name returns the name of the indicator
func (a *ATR) Name() string {
	return "ATR"
}

// Calculate computes the Average True Range value for the given bars
func (a *ATR) Calculate(ctx context.Context, bars []domain.Bar) (float64, error) {
	period := a.config.Period
	if period <= 0 {
		return 0, fmt.Errorf("ATR period must be positive, got %d", period)
	}
	if len(bars) < period+1 {
		return 0, fmt.Errorf("not enough data points for ATR calculation: need %d, got %d", period+1, len(bars))
	}

	trueRanges := make([]float64, len(bars))

	// First TR is just the high-low range
	trueRanges[0] = bars[0].High - bars[0].Low

	for i := 1; i < len(bars); i++ {
		high := bars[i].High
		low := bars[i].Low
		prevClose := bars[i-1].Close

		// True Range is the greatest of:
		// 1. Current High - Current Low
		// 2. |Current High - Previous Close|
		// 3. |Current Low - Previous Close|
		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)

		trueRanges[i] = math.Max(tr1, math.Max(tr2, tr3))
	}

	// Wilder's smoothing: simple average of the first 'period' true ranges,
	// then smoothed over the rest.
	atr := 0.0
	for i := 0; i < period; i++ {
		atr += trueRanges[i]
	}
	atr /= float64(period)

	for i := period; i < len(bars); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}

	return atr, nil
}

// AverageVolume returns the mean volume of the trailing window, using at
// most period bars.
func AverageVolume(bars []domain.Bar, period int) float64 {
	n := len(bars)
	if n == 0 || period <= 0 {
		return 0
	}
	if n > period {
		n = period
	}
	sum := 0.0
	for _, b := range bars[len(bars)-n:] {
		sum += b.Volume
	}
	return sum / float64(n)
}
