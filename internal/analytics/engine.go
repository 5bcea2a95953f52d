// Package analytics turns a set of closed trades into a performance report.
// Everything here is a pure function of its input: no I/O, no shared state.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
	"github.com/tahmidmalekzoha/rawjournal/internal/pricing"
)

// Compute calculates the performance report for trades.
//
// Only closed trades with a realized P&L and an exit time are included; anything else is
// skipped without error. The input slice and its trades are never modified. Trades are
// scanned in exit-time order, ties keeping their input order.
func Compute(trades []*domain.Trade) *Report {
	closed := eligible(trades)
	if len(closed) == 0 {
		return emptyReport()
	}

	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].ExitTime.Before(*closed[j].ExitTime)
	})

	report := emptyReport()
	report.TotalTrades = len(closed)

	var (
		streaks  StreakTracker
		drawdown DrawdownTracker
		equity   = NewEquityCurveBuilder(len(closed))

		grossWin, grossLoss     float64
		largestWin, largestLoss float64
		avgHolding              float64 // running mean, nanoseconds
		held                    int
	)

	// Single forward pass for everything that depends on order.
	for _, t := range closed {
		pnl := *t.PNL
		switch {
		case pnl > 0:
			report.WinningTrades++
			grossWin += pnl
			largestWin = math.Max(largestWin, pnl)
		case pnl < 0:
			report.LosingTrades++
			grossLoss += -pnl
			largestLoss = math.Min(largestLoss, pnl)
		default:
			report.BreakevenTrades++
		}

		streaks.Add(pnl)
		drawdown.Add(pnl)
		equity.Add(*t.ExitTime, pnl)

		if !t.EntryTime.IsZero() && !t.ExitTime.Before(t.EntryTime) {
			held++
			avgHolding += (float64(t.ExitTime.Sub(t.EntryTime)) - avgHolding) / float64(held)
		}
	}

	report.WinRate = pricing.Round(float64(report.WinningTrades)/float64(report.TotalTrades)*100, 2)
	report.ProfitFactor = profitFactor(grossWin, grossLoss)
	if report.WinningTrades > 0 {
		report.AvgWin = pricing.Round(grossWin/float64(report.WinningTrades), 2)
	}
	if report.LosingTrades > 0 {
		report.AvgLoss = pricing.Round(grossLoss/float64(report.LosingTrades), 2)
	}
	report.LargestWin = pricing.Round(largestWin, 2)
	report.LargestLoss = pricing.Round(largestLoss, 2)
	report.TotalPnL = pricing.Round(equity.Total(), 2)
	if held > 0 {
		report.AvgHoldingTime = time.Duration(math.Round(avgHolding))
	}

	maxDD, maxDDPct := drawdown.Max()
	report.MaxDrawdown = pricing.Round(maxDD, 2)
	report.MaxDrawdownPct = pricing.Round(maxDDPct, 2)
	report.ConsecutiveWins = streaks.MaxWins()
	report.ConsecutiveLosses = streaks.MaxLosses()
	report.EquityCurve = equity.Points()

	// Grouping passes. Order of these does not affect totals.
	bySymbol := NewGroupAggregator(SymbolKey)
	bySession := NewGroupAggregator(SessionKey)
	byWeekday := NewGroupAggregator(WeekdayKey)
	byHour := NewGroupAggregator(HourKey)
	byDay := NewGroupAggregator(DayKey)
	byMonth := NewGroupAggregator(MonthKey)
	for _, t := range closed {
		bySymbol.Add(t)
		bySession.Add(t)
		byWeekday.Add(t)
		byHour.Add(t)
		byDay.Add(t)
		byMonth.Add(t)
	}

	report.BySymbol = bySymbol.Stats()
	report.BySession = bySession.Stats()
	report.ByWeekday = weekdayStats(byWeekday)
	report.ByHour = sortedStats(byHour, func(a, b int) bool { return a < b })
	report.DailyPnL = periodStats(byDay)
	report.MonthlyPnL = periodStats(byMonth)

	if best, worst, ok := rankByPnL(bySymbol); ok {
		report.BestSymbol, report.WorstSymbol = &best, &worst
	}
	if best, _, ok := rankByPnL(bySession); ok {
		worst := firstLowest(bySession)
		report.BestSession, report.WorstSession = &best, &worst
	}

	return report
}

// eligible copies the trades the engine can aggregate into a new slice.
func eligible(trades []*domain.Trade) []*domain.Trade {
	out := make([]*domain.Trade, 0, len(trades))
	for _, t := range trades {
		if t == nil || !t.IsPriced() || t.Status == domain.StatusOpen {
			continue
		}
		if math.IsNaN(*t.PNL) || math.IsInf(*t.PNL, 0) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// profitFactor applies, in order: losses present -> ratio; only wins -> unbounded; neither -> 0.
func profitFactor(grossWin, grossLoss float64) ProfitFactor {
	switch {
	case grossLoss > 0:
		return Bounded(pricing.Round(grossWin/grossLoss, 2))
	case grossWin > 0:
		return Unbounded()
	default:
		return Bounded(0)
	}
}

// weekdayStats names the weekday groups and orders them Sunday first.
func weekdayStats(g *GroupAggregator[time.Weekday]) []GroupStat[string] {
	stats := sortedStats(g, func(a, b time.Weekday) bool { return a < b })
	out := make([]GroupStat[string], 0, len(stats))
	for _, s := range stats {
		out = append(out, GroupStat[string]{
			Key:        s.Key.String(),
			PnL:        s.PnL,
			TradeCount: s.TradeCount,
			WinRate:    s.WinRate,
		})
	}
	return out
}

// periodStats orders calendar buckets ascending; keys are zero-padded so string order is date order.
func periodStats(g *GroupAggregator[string]) []PeriodPnL {
	stats := sortedStats(g, func(a, b string) bool { return a < b })
	out := make([]PeriodPnL, 0, len(stats))
	for _, s := range stats {
		out = append(out, PeriodPnL{Date: s.Key, PnL: s.PnL, TradeCount: s.TradeCount})
	}
	return out
}
