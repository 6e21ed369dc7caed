package backtesting

import (
	"context"
	"fmt"
	"math"

	"candleloader/internal/domain"
	"candleloader/internal/strategy/fvg"
	"candleloader/internal/strategy/indicators"
)

const (
	atrPeriod    = 14
	volAvgPeriod = 20
	millisPerDay = 24 * 60 * 60 * 1000

	// warmup bars before the first signal may fire: ATR seed, volume
	// average window and the three gap candles.
	warmup = atrPeriod + volAvgPeriod + 3
)

// Config holds configuration for backtesting
type Config struct {
	InitialFunds    float64
	MaxRiskPct      float64 // Risk per trade as a fraction of balance
	MaxDailyLossPct float64 // Daily loss budget as a fraction of balance
	EquityFloorPct  float64 // Trading halts below this fraction of initial funds
}

// DefaultConfig returns the account limits used for strategy evaluation.
func DefaultConfig() Config {
	return Config{
		InitialFunds:    10_000,
		MaxRiskPct:      0.03,
		MaxDailyLossPct: 0.05,
		EquityFloorPct:  0.90,
	}
}

// Result holds the results of a backtest
type Result struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // Percentage of winning trades
	TotalProfit   float64
	MaxDrawdown   float64 // Largest peak-to-trough equity drop, in percent
	ProfitFactor  float64 // Gross wins over gross losses; +Inf with no losses
	AverageWin    float64
	AverageLoss   float64 // Reported as a positive magnitude
	FinalBalance  float64
	BestTrade     float64
	WorstTrade    float64
	Trades        []*domain.Trade
}

// position is the simulator's open-position state.
type position struct {
	side       domain.Side
	entry      float64
	stopLoss   float64
	takeProfit float64
	qty        float64
	entryIndex int
}

// Backtest simulates the FVG strategy candle by candle over one symbol's
// bars. Bars must be in ascending timestamp order.
func Backtest(ctx context.Context, symbol string, bars []domain.Bar, params fvg.Params, cfg Config) (*Result, error) {
	if len(bars) <= warmup {
		return nil, fmt.Errorf("not enough data points: need more than %d bars, got %d", warmup, len(bars))
	}
	if cfg.InitialFunds <= 0 {
		return nil, fmt.Errorf("initial funds must be positive")
	}

	atr := indicators.NewATR(indicators.ATRConfig{IndicatorConfig: indicators.IndicatorConfig{Period: atrPeriod}})

	balance := cfg.InitialFunds
	var trades []*domain.Trade
	var pos *position

	currentDay := int64(-1)
	dailyPnL := 0.0
	tradingOn := true

	for i := warmup; i < len(bars); i++ {
		bar := bars[i]

		// Daily reset and equity-floor halt.
		day := bar.Ts / millisPerDay
		if day != currentDay {
			currentDay = day
			dailyPnL = 0
			tradingOn = balance >= cfg.InitialFunds*cfg.EquityFloorPct
		}

		curATR, err := atr.Calculate(ctx, bars[:i+1])
		if err != nil {
			return nil, err
		}

		// Manage the open position first: SL beats TP beats the time stop.
		if pos != nil {
			slHit := (pos.side == domain.SideLong && bar.Low <= pos.stopLoss) ||
				(pos.side == domain.SideShort && bar.High >= pos.stopLoss)
			tpHit := (pos.side == domain.SideLong && bar.High >= pos.takeProfit) ||
				(pos.side == domain.SideShort && bar.Low <= pos.takeProfit)
			timeStop := i-pos.entryIndex >= params.TimeStop

			var closePrice float64
			var reason domain.CloseReason
			switch {
			case slHit:
				closePrice, reason = pos.stopLoss, domain.CloseReasonStopLoss
			case tpHit:
				closePrice, reason = pos.takeProfit, domain.CloseReasonTakeProfit
			case timeStop:
				closePrice, reason = bar.Close, domain.CloseReasonTimeStop
			default:
				continue
			}

			direction := 1.0
			if pos.side == domain.SideShort {
				direction = -1.0
			}
			pnl := (closePrice - pos.entry) * pos.qty * direction
			balance += pnl
			dailyPnL += pnl

			trades = append(trades, &domain.Trade{
				Symbol:      symbol,
				Side:        pos.side,
				EntryPrice:  pos.entry,
				ExitPrice:   closePrice,
				Quantity:    pos.qty,
				StopLoss:    pos.stopLoss,
				TakeProfit:  pos.takeProfit,
				PNL:         pnl,
				EntryTime:   bars[pos.entryIndex].Time(),
				ExitTime:    bar.Time(),
				CloseReason: reason,
			})
			pos = nil

			if dailyPnL < -(math.Max(balance, cfg.InitialFunds) * cfg.MaxDailyLossPct) {
				tradingOn = false
			}
			continue
		}

		if !tradingOn || curATR == 0 {
			continue
		}

		signal := fvg.Detect(bars, i, params)
		if signal == nil {
			continue
		}

		entry := bar.Close
		var stopLoss float64
		if signal.Side == domain.SideLong {
			stopLoss = signal.ZoneLow - curATR*params.SLATRMult
		} else {
			stopLoss = signal.ZoneHigh + curATR*params.SLATRMult
		}

		riskUnit := math.Abs(entry - stopLoss)
		if riskUnit <= 0 || riskUnit > entry*0.10 {
			continue
		}

		var takeProfit float64
		if signal.Side == domain.SideLong {
			takeProfit = entry + riskUnit*params.TPMult
		} else {
			takeProfit = entry - riskUnit*params.TPMult
		}

		// Size off whichever is smaller: per-trade risk or what is left of
		// today's loss budget.
		maxRisk := balance * cfg.MaxRiskPct
		budget := math.Max(balance*cfg.MaxDailyLossPct+dailyPnL, 0)
		risk := math.Min(maxRisk, budget)
		if risk <= 0 {
			continue
		}
		qty := math.Floor(risk / riskUnit)
		if qty <= 0 {
			continue
		}

		pos = &position{
			side:       signal.Side,
			entry:      entry,
			stopLoss:   stopLoss,
			takeProfit: takeProfit,
			qty:        qty,
			entryIndex: i,
		}
	}

	return buildResult(cfg.InitialFunds, balance, trades), nil
}

// buildResult aggregates trade statistics.
func buildResult(initialFunds, finalBalance float64, trades []*domain.Trade) *Result {
	result := &Result{
		TotalTrades:  len(trades),
		FinalBalance: finalBalance,
		Trades:       trades,
	}
	if len(trades) == 0 {
		return result
	}

	grossWin, grossLoss := 0.0, 0.0
	result.BestTrade = math.Inf(-1)
	result.WorstTrade = math.Inf(1)

	for _, t := range trades {
		result.TotalProfit += t.PNL
		if t.PNL > 0 {
			result.WinningTrades++
			grossWin += t.PNL
		} else {
			result.LosingTrades++
			grossLoss += -t.PNL
		}
		result.BestTrade = math.Max(result.BestTrade, t.PNL)
		result.WorstTrade = math.Min(result.WorstTrade, t.PNL)
	}

	result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades) * 100
	if result.WinningTrades > 0 {
		result.AverageWin = grossWin / float64(result.WinningTrades)
	}
	if result.LosingTrades > 0 {
		result.AverageLoss = grossLoss / float64(result.LosingTrades)
	}
	if grossLoss == 0 {
		result.ProfitFactor = math.Inf(1)
	} else {
		result.ProfitFactor = grossWin / grossLoss
	}

	// Max drawdown over the equity curve implied by trade order.
	balance, peak := initialFunds, initialFunds
	for _, t := range trades {
		balance += t.PNL
		if balance > peak {
			peak = balance
		}
		if dd := (peak - balance) / peak * 100; dd > result.MaxDrawdown {
			result.MaxDrawdown = dd
		}
	}
	return result
}
