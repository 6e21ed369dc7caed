package domain

import "time"

// Side represents the direction of a simulated position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// CloseReason indicates why a simulated position was closed.
type CloseReason string

const (
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonTimeStop   CloseReason = "TIME_STOP"
)

// Trade represents a completed simulated trade.
type Trade struct {
	Symbol      string      // Trading symbol (e.g., "BTCUSDT")
	Side        Side        // Direction of the position
	EntryPrice  float64     // Price at which the position was entered
	ExitPrice   float64     // Price at which the position was exited
	Quantity    float64     // Size of the position
	StopLoss    float64     // Stop-loss level the position carried
	TakeProfit  float64     // Take-profit level the position carried
	PNL         float64     // Profit and loss for this trade
	EntryTime   time.Time   // Timestamp of the entry candle
	ExitTime    time.Time   // Timestamp of the exit candle
	CloseReason CloseReason // Why the position was closed
}
