// Package fvg implements three-candle fair-value-gap detection over a
// candle series. A fair value gap is the price void left behind by a strong
// impulse candle; the strategy enters when price has retested the zone and
// then closed beyond it on convincing volume.
package fvg

import (
	"candleloader/internal/domain"
	"candleloader/internal/strategy/indicators"
)

// volAvgPeriod is the trailing window used for the volume filters.
const volAvgPeriod = 20

// Params tunes detection and trade management per symbol.
type Params struct {
	MinGapPct  float64 // Minimum gap size as a fraction of the impulse close
	MinVolMult float64 // Impulse/confirmation volume vs the trailing average
	Lookback   int     // How many candles back to search for gaps
	SLATRMult  float64 // Stop distance beyond the zone, in ATR multiples
	TPMult     float64 // Take-profit distance, in risk-unit multiples
	TimeStop   int     // Maximum candles a position may stay open
}

// ParamsFor returns the tuned parameters for a symbol, falling back to
// conservative defaults for anything outside the tuned set.
func ParamsFor(symbol string) Params {
	switch symbol {
	case "BTCUSDT":
		return Params{MinGapPct: 0.001, MinVolMult: 1.5, Lookback: 12, SLATRMult: 0.5, TPMult: 5.0, TimeStop: 7}
	case "ETHUSDT":
		return Params{MinGapPct: 0.001, MinVolMult: 1.5, Lookback: 8, SLATRMult: 1.0, TPMult: 3.0, TimeStop: 7}
	case "BNBUSDT":
		return Params{MinGapPct: 0.003, MinVolMult: 1.0, Lookback: 12, SLATRMult: 2.0, TPMult: 2.5, TimeStop: 35}
	case "XRPUSDT":
		return Params{MinGapPct: 0.008, MinVolMult: 1.0, Lookback: 8, SLATRMult: 2.0, TPMult: 1.5, TimeStop: 14}
	case "SOLUSDT":
		return Params{MinGapPct: 0.008, MinVolMult: 1.2, Lookback: 12, SLATRMult: 1.5, TPMult: 4.0, TimeStop: 7}
	default:
		return Params{MinGapPct: 0.003, MinVolMult: 1.2, Lookback: 8, SLATRMult: 1.0, TPMult: 2.0, TimeStop: 7}
	}
}

// Signal is a fair value gap whose zone has been retested and broken away
// from by the current candle.
type Signal struct {
	Side     domain.Side
	ZoneLow  float64
	ZoneHigh float64
}

// Detect scans the lookback window ending at index i for a qualifying gap.
// Returns nil when no valid signal exists at i.
//
// Bullish: c1.High < c3.Low leaves the zone [c1.High, c3.Low] below an
// upward impulse c2; price must have dipped back into the upper half of the
// zone and the current candle must close above it.
// Bearish is the mirror image.
func Detect(bars []domain.Bar, i int, p Params) *Signal {
	if i < 3 || i >= len(bars) {
		return nil
	}
	current := bars[i]
	avgVol := indicators.AverageVolume(bars[:i+1], volAvgPeriod)

	searchStart := i - p.Lookback - 2
	if searchStart < 0 {
		searchStart = 0
	}

	for j := searchStart; j+2 < i; j++ {
		c1, c2, c3 := bars[j], bars[j+1], bars[j+2]
		impVol := indicators.AverageVolume(bars[:j+2], volAvgPeriod)

		if c3.Low > c1.High {
			gap := c3.Low - c1.High
			if gap > c2.Close*p.MinGapPct && c2.Close > c2.Open && c2.Volume > impVol*p.MinVolMult {
				zoneLow, zoneHigh := c1.High, c3.Low
				if retestedFromAbove(bars[j+3:i+1], zoneLow, zoneHigh) &&
					current.Close > zoneHigh && current.Volume > avgVol*p.MinVolMult {
					return &Signal{Side: domain.SideLong, ZoneLow: zoneLow, ZoneHigh: zoneHigh}
				}
			}
		}

		if c1.Low > c3.High {
			gap := c1.Low - c3.High
			if gap > c2.Close*p.MinGapPct && c2.Close < c2.Open && c2.Volume > impVol*p.MinVolMult {
				zoneLow, zoneHigh := c3.High, c1.Low
				if retestedFromBelow(bars[j+3:i+1], zoneLow, zoneHigh) &&
					current.Close < zoneLow && current.Volume > avgVol*p.MinVolMult {
					return &Signal{Side: domain.SideShort, ZoneLow: zoneLow, ZoneHigh: zoneHigh}
				}
			}
		}
	}
	return nil
}

// retestedFromAbove reports whether any bar dipped into the upper half of a
// bullish zone.
func retestedFromAbove(bars []domain.Bar, zoneLow, zoneHigh float64) bool {
	threshold := zoneHigh + (zoneHigh-zoneLow)*0.5
	for _, b := range bars {
		if b.Low <= threshold {
			return true
		}
	}
	return false
}

// retestedFromBelow reports whether any bar rose into the lower half of a
// bearish zone.
func retestedFromBelow(bars []domain.Bar, zoneLow, zoneHigh float64) bool {
	threshold := zoneLow - (zoneHigh-zoneLow)*0.5
	for _, b := range bars {
		if b.High >= threshold {
			return true
		}
	}
	return false
}
