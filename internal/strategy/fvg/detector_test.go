package fvg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candleloader/internal/domain"
)

var testParams = Params{MinGapPct: 0.001, MinVolMult: 1.0, Lookback: 8}

// bullishScenario builds a five-bar series with a gap between bar 0's high
// (100) and bar 2's low (105), a retest at bar 3 and a breakout at bar 4.
func bullishScenario() []domain.Bar {
	return []domain.Bar{
		{Ts: 0, Open: 99, High: 100, Low: 98, Close: 99.5, Volume: 10},
		{Ts: 1, Open: 100, High: 110.5, Low: 99.5, Close: 110, Volume: 30}, // impulse
		{Ts: 2, Open: 105.5, High: 106, Low: 105, Close: 105.8, Volume: 10},
		{Ts: 3, Open: 105, High: 106, Low: 104, Close: 105, Volume: 10}, // retest
		{Ts: 4, Open: 106, High: 108.5, Low: 105.9, Close: 108, Volume: 40},
	}
}

func TestDetect_BullishSignal(t *testing.T) {
	bars := bullishScenario()

	signal := Detect(bars, 4, testParams)
	require.NotNil(t, signal)
	assert.Equal(t, domain.SideLong, signal.Side)
	assert.Equal(t, 100.0, signal.ZoneLow)
	assert.Equal(t, 105.0, signal.ZoneHigh)
}

func TestDetect_BearishSignal(t *testing.T) {
	bars := []domain.Bar{
		{Ts: 0, Open: 100.5, High: 102, Low: 100, Close: 101, Volume: 10},
		{Ts: 1, Open: 100, High: 100.5, Low: 89.5, Close: 90, Volume: 30}, // impulse down
		{Ts: 2, Open: 94.8, High: 95, Low: 94, Close: 94.5, Volume: 10},
		{Ts: 3, Open: 92, High: 93, Low: 91, Close: 92, Volume: 10}, // retest
		{Ts: 4, Open: 93, High: 93.5, Low: 90.5, Close: 91, Volume: 40},
	}

	signal := Detect(bars, 4, testParams)
	require.NotNil(t, signal)
	assert.Equal(t, domain.SideShort, signal.Side)
	assert.Equal(t, 95.0, signal.ZoneLow)
	assert.Equal(t, 100.0, signal.ZoneHigh)
}

func TestDetect_NoRetestNoSignal(t *testing.T) {
	bars := bullishScenario()
	// Keep every post-gap low above the retest threshold (107.5).
	bars[3].Low = 110
	bars[3].High = 112
	bars[3].Close = 111
	bars[4].Low = 109
	bars[4].High = 112.5
	bars[4].Close = 112

	assert.Nil(t, Detect(bars, 4, testParams))
}

func TestDetect_WeakBreakoutVolumeNoSignal(t *testing.T) {
	bars := bullishScenario()
	bars[4].Volume = 5 // below the trailing average

	assert.Nil(t, Detect(bars, 4, testParams))
}

func TestDetect_GapTooSmallNoSignal(t *testing.T) {
	bars := bullishScenario()

	// Demand a gap larger than ~5% of the impulse close; the 5-point gap
	// against a 110 close is below that.
	p := testParams
	p.MinGapPct = 0.05

	assert.Nil(t, Detect(bars, 4, p))
}

func TestDetect_TooEarlyIndex(t *testing.T) {
	bars := bullishScenario()
	assert.Nil(t, Detect(bars, 2, testParams))
	assert.Nil(t, Detect(bars, 12, testParams))
}

func TestParamsFor(t *testing.T) {
	btc := ParamsFor("BTCUSDT")
	assert.Equal(t, 0.001, btc.MinGapPct)
	assert.Equal(t, 12, btc.Lookback)

	other := ParamsFor("DOGEUSDT")
	assert.Equal(t, 0.003, other.MinGapPct)
	assert.Equal(t, 7, other.TimeStop)
}
