package domain

import "time"

// Trade represents a single journaled trade.
// Nullable broker fields are pointers; a nil value means "not recorded".
type Trade struct {
	ID           int64        // Unique identifier for the trade (from DB)
	AccountID    string       // Trading account the trade belongs to
	TicketNumber string       // Broker ticket / deal number, unique per account
	Symbol       string       // Instrument, uppercase without separators (e.g. "EURUSD")
	Direction    Direction    // buy or sell
	EntryTime    time.Time    // When the position was opened
	ExitTime     *time.Time   // When the position was closed (nil while open)
	EntryPrice   float64      // Fill price on entry
	ExitPrice    *float64     // Fill price on exit (nil while open)
	PositionSize float64      // Lot size
	PNL          *float64     // Realized profit/loss in account currency
	PNLPips      *float64     // Realized move in pips, informational
	Commission   float64      // Entered separately, never derived
	Swap         float64      // Entered separately, never derived
	StopLoss     *float64     // Optional protective stop
	TakeProfit   *float64     // Optional target
	Status       TradeStatus  // open or closed
	Source       ImportSource // manual, csv or mt5
	SessionTag   string       // asian, london, overlap, newyork, late-ny; empty when unset
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsClosed checks if the trade status is closed.
func (t *Trade) IsClosed() bool {
	return t.Status == StatusClosed
}

// IsPriced reports whether the trade carries everything analytics needs:
// a realized P&L and an exit timestamp.
func (t *Trade) IsPriced() bool {
	return t.PNL != nil && t.ExitTime != nil
}

// Float64 returns a pointer to v. Handy for filling nullable fields.
func Float64(v float64) *float64 {
	return &v
}

// Time returns a pointer to t.
func Time(t time.Time) *time.Time {
	return &t
}
