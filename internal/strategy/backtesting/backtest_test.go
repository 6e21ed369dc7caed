package backtesting

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candleloader/internal/domain"
	"candleloader/internal/strategy/fvg"
)

var testParams = fvg.Params{
	MinGapPct:  0.001,
	MinVolMult: 1.0,
	Lookback:   8,
	SLATRMult:  0.5,
	TPMult:     2.0,
	TimeStop:   7,
}

const barInterval = 4 * time.Hour

func flatBar(i int) domain.Bar {
	return domain.Bar{
		Ts:     int64(i) * barInterval.Milliseconds(),
		Open:   100, High: 101, Low: 99, Close: 100,
		Volume: 10,
	}
}

// gapScenario returns 45 bars ending with a completed bullish FVG entry:
// flat warmup, then a gap candle sequence with zone [100, 105], a retest
// down to 104 and a breakout close at 108 on elevated volume. The entry
// fires on the last bar.
func gapScenario() []domain.Bar {
	bars := make([]domain.Bar, 0, 52)
	for i := 0; i < 40; i++ {
		bars = append(bars, flatBar(i))
	}
	tail := []domain.Bar{
		{Open: 99, High: 100, Low: 98, Close: 99.5, Volume: 10},
		{Open: 100, High: 110.5, Low: 99.5, Close: 110, Volume: 50},
		{Open: 105.5, High: 106, Low: 105, Close: 105.8, Volume: 10},
		{Open: 105, High: 106, Low: 104, Close: 105, Volume: 10},
		{Open: 106, High: 108.5, Low: 105.9, Close: 108, Volume: 50},
	}
	for j, b := range tail {
		b.Ts = int64(40+j) * barInterval.Milliseconds()
		bars = append(bars, b)
	}
	return bars
}

func appendBar(bars []domain.Bar, b domain.Bar) []domain.Bar {
	b.Ts = int64(len(bars)) * barInterval.Milliseconds()
	return append(bars, b)
}

func TestBacktest_TakeProfitExit(t *testing.T) {
	bars := gapScenario()
	bars = appendBar(bars, domain.Bar{Open: 108, High: 127, Low: 107, Close: 126, Volume: 10})

	result, err := Backtest(context.Background(), "BTCUSDT", bars, testParams, DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, 1, result.TotalTrades)
	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]

	assert.Equal(t, "BTCUSDT", trade.Symbol)
	assert.Equal(t, domain.SideLong, trade.Side)
	assert.Equal(t, domain.CloseReasonTakeProfit, trade.CloseReason)
	assert.Equal(t, 108.0, trade.EntryPrice)
	assert.Equal(t, trade.TakeProfit, trade.ExitPrice)
	assert.Equal(t, 31.0, trade.Quantity)
	assert.Greater(t, trade.PNL, 0.0)

	assert.Equal(t, 1, result.WinningTrades)
	assert.Equal(t, 0, result.LosingTrades)
	assert.Equal(t, 100.0, result.WinRate)
	assert.InDelta(t, 10_000+trade.PNL, result.FinalBalance, 1e-9)
	assert.True(t, math.IsInf(result.ProfitFactor, 1))
	assert.Zero(t, result.MaxDrawdown)
}

func TestBacktest_StopLossExit(t *testing.T) {
	bars := gapScenario()
	bars = appendBar(bars, domain.Bar{Open: 107, High: 107.5, Low: 95, Close: 96, Volume: 10})

	result, err := Backtest(context.Background(), "BTCUSDT", bars, testParams, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]

	assert.Equal(t, domain.CloseReasonStopLoss, trade.CloseReason)
	assert.Equal(t, trade.StopLoss, trade.ExitPrice)
	assert.Less(t, trade.PNL, 0.0)

	assert.Equal(t, 0, result.WinningTrades)
	assert.Equal(t, 1, result.LosingTrades)
	assert.Less(t, result.FinalBalance, 10_000.0)
	assert.Zero(t, result.ProfitFactor)
	assert.Greater(t, result.MaxDrawdown, 0.0)
	assert.InDelta(t, -trade.PNL, result.AverageLoss, 1e-9)
}

func TestBacktest_TimeStopExit(t *testing.T) {
	bars := gapScenario()
	// Seven bars that touch neither the stop nor the target.
	for i := 0; i < 7; i++ {
		bars = appendBar(bars, domain.Bar{Open: 107, High: 109, Low: 104, Close: 107, Volume: 10})
	}

	result, err := Backtest(context.Background(), "BTCUSDT", bars, testParams, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, result.Trades, 1)
	trade := result.Trades[0]

	assert.Equal(t, domain.CloseReasonTimeStop, trade.CloseReason)
	assert.Equal(t, 107.0, trade.ExitPrice)
	assert.InDelta(t, (107.0-108.0)*trade.Quantity, trade.PNL, 1e-9)
}

func TestBacktest_NoSignalsNoTrades(t *testing.T) {
	bars := make([]domain.Bar, 0, 50)
	for i := 0; i < 50; i++ {
		bars = append(bars, flatBar(i))
	}

	result, err := Backtest(context.Background(), "ETHUSDT", bars, testParams, DefaultConfig())
	require.NoError(t, err)

	assert.Zero(t, result.TotalTrades)
	assert.Empty(t, result.Trades)
	assert.Equal(t, 10_000.0, result.FinalBalance)
	assert.Zero(t, result.TotalProfit)
}

func TestBacktest_InsufficientData(t *testing.T) {
	bars := make([]domain.Bar, warmup)
	for i := range bars {
		bars[i] = flatBar(i)
	}

	_, err := Backtest(context.Background(), "BTCUSDT", bars, testParams, DefaultConfig())
	assert.Error(t, err)
}

func TestBacktest_InvalidInitialFunds(t *testing.T) {
	bars := gapScenario()

	_, err := Backtest(context.Background(), "BTCUSDT", bars, testParams, Config{})
	assert.Error(t, err)
}
