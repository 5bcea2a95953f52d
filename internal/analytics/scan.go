package analytics

import (
	"time"

	"github.com/tahmidmalekzoha/rawjournal/internal/pricing"
)

// The trackers below consume one chronologically ascending pass over closed trades.
// Each keeps its own running state and is fed one realized P&L at a time.

// StreakTracker tracks consecutive winning and losing trades.
// A breakeven trade ends both kinds of streak.
type StreakTracker struct {
	wins, losses       int
	maxWins, maxLosses int
}

// Add feeds the next trade's P&L.
func (s *StreakTracker) Add(pnl float64) {
	switch {
	case pnl > 0:
		s.wins++
		s.losses = 0
	case pnl < 0:
		s.losses++
		s.wins = 0
	default:
		s.wins = 0
		s.losses = 0
	}
	if s.wins > s.maxWins {
		s.maxWins = s.wins
	}
	if s.losses > s.maxLosses {
		s.maxLosses = s.losses
	}
}

// MaxWins returns the longest winning streak seen so far.
func (s *StreakTracker) MaxWins() int { return s.maxWins }

// MaxLosses returns the longest losing streak seen so far.
func (s *StreakTracker) MaxLosses() int { return s.maxLosses }

// DrawdownTracker tracks the deepest decline of cumulative P&L from its running peak.
// The peak starts at zero (no trades yet); there is no notion of starting balance.
type DrawdownTracker struct {
	cumulative float64
	peak       float64
	maxDD      float64
	maxDDPct   float64
}

// Add feeds the next trade's P&L.
func (d *DrawdownTracker) Add(pnl float64) {
	d.cumulative += pnl
	if d.cumulative > d.peak {
		d.peak = d.cumulative
	}
	dd := d.peak - d.cumulative
	if dd > d.maxDD {
		d.maxDD = dd
		if d.peak > 0 {
			d.maxDDPct = dd / d.peak * 100
		} else {
			d.maxDDPct = 0
		}
	}
}

// Max returns the largest drawdown in account currency and as a percent of the peak it fell from.
func (d *DrawdownTracker) Max() (abs, pct float64) {
	return d.maxDD, d.maxDDPct
}

// EquityCurveBuilder emits one cumulative P&L point per trade.
// Trades, not wall-clock buckets, are the x-axis.
type EquityCurveBuilder struct {
	cumulative float64
	points     []EquityPoint
}

// NewEquityCurveBuilder returns a builder with room for n points.
func NewEquityCurveBuilder(n int) *EquityCurveBuilder {
	return &EquityCurveBuilder{points: make([]EquityPoint, 0, n)}
}

// Add appends the point for a trade closed at exitTime.
func (b *EquityCurveBuilder) Add(exitTime time.Time, pnl float64) {
	b.cumulative += pnl
	b.points = append(b.points, EquityPoint{
		Timestamp: exitTime,
		Equity:    pricing.Round(b.cumulative, 2),
	})
}

// Points returns a copy of the curve built so far.
func (b *EquityCurveBuilder) Points() []EquityPoint {
	out := make([]EquityPoint, len(b.points))
	copy(out, b.points)
	return out
}

// Total returns the unrounded cumulative P&L.
func (b *EquityCurveBuilder) Total() float64 {
	return b.cumulative
}
