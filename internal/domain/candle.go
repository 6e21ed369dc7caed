package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Candle represents a single time-bucketed price record as returned by the
// provider. Price and volume fields keep the provider's exact string
// representation so that serialized output never reformats the numbers.
type Candle struct {
	Timestamp int64  // Bucket start, milliseconds since epoch, UTC
	Open      string // Opening price
	High      string // Highest price
	Low       string // Lowest price
	Close     string // Closing price
	Volume    string // Traded base volume
	Turnover  string // Traded quote turnover
}

// Time returns the candle's bucket start as a UTC time.
func (c *Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// Bar is the parsed numeric view of a Candle used by analysis code.
// Turnover is not carried; no analysis consumer needs it.
type Bar struct {
	Ts     int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Time returns the bar's bucket start as a UTC time.
func (b Bar) Time() time.Time {
	return time.UnixMilli(b.Ts).UTC()
}

// Bar parses the candle's numeric fields into a Bar.
func (c *Candle) Bar() (Bar, error) {
	bar := Bar{Ts: c.Timestamp}
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", c.Open, &bar.Open},
		{"high", c.High, &bar.High},
		{"low", c.Low, &bar.Low},
		{"close", c.Close, &bar.Close},
		{"volume", c.Volume, &bar.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return Bar{}, fmt.Errorf("candle at %d: invalid %s %q: %w", c.Timestamp, f.name, f.raw, err)
		}
		*f.dst = v
	}
	return bar, nil
}

// BarsFromCandles converts a candle series into bars, failing on the first
// candle with malformed numeric fields.
func BarsFromCandles(candles []*Candle) ([]Bar, error) {
	bars := make([]Bar, 0, len(candles))
	for _, c := range candles {
		b, err := c.Bar()
		if err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, nil
}
