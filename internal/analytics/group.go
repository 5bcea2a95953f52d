package analytics

import (
	"sort"
	"time"

	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
	"github.com/tahmidmalekzoha/rawjournal/internal/pricing"
)

// unknownSession is the group key for trades without a session tag.
const unknownSession = "unknown"

type groupTotals struct {
	pnl    float64
	trades int
	wins   int
}

// GroupAggregator partitions trades by a key and totals each partition.
// Groups are reported in the order their key was first seen.
type GroupAggregator[K comparable] struct {
	key    func(*domain.Trade) K
	order  []K
	groups map[K]*groupTotals
}

// NewGroupAggregator creates an aggregator grouping by key.
func NewGroupAggregator[K comparable](key func(*domain.Trade) K) *GroupAggregator[K] {
	return &GroupAggregator[K]{
		key:    key,
		groups: make(map[K]*groupTotals),
	}
}

// Add folds a closed, priced trade into its group.
func (g *GroupAggregator[K]) Add(t *domain.Trade) {
	k := g.key(t)
	e, ok := g.groups[k]
	if !ok {
		e = &groupTotals{}
		g.groups[k] = e
		g.order = append(g.order, k)
	}
	e.pnl += *t.PNL
	e.trades++
	if *t.PNL > 0 {
		e.wins++
	}
}

// Stats returns one GroupStat per key in first-seen order.
func (g *GroupAggregator[K]) Stats() []GroupStat[K] {
	out := make([]GroupStat[K], 0, len(g.order))
	for _, k := range g.order {
		e := g.groups[k]
		winRate := 0.0
		if e.trades > 0 {
			winRate = float64(e.wins) / float64(e.trades) * 100
		}
		out = append(out, GroupStat[K]{
			Key:        k,
			PnL:        pricing.Round(e.pnl, 2),
			TradeCount: e.trades,
			WinRate:    pricing.Round(winRate, 2),
		})
	}
	return out
}

// rawPnL returns the unrounded total of a group, used for ranking.
func (g *GroupAggregator[K]) rawPnL(k K) float64 {
	if e, ok := g.groups[k]; ok {
		return e.pnl
	}
	return 0
}

// Key functions for the standard breakdowns.

// SymbolKey groups by the symbol verbatim.
func SymbolKey(t *domain.Trade) string { return t.Symbol }

// SessionKey groups by session tag, "unknown" when unset.
func SessionKey(t *domain.Trade) string {
	if t.SessionTag == "" {
		return unknownSession
	}
	return t.SessionTag
}

// WeekdayKey groups by the UTC weekday the trade closed on.
func WeekdayKey(t *domain.Trade) time.Weekday { return t.ExitTime.UTC().Weekday() }

// HourKey groups by the UTC hour the trade was opened in.
// Entry time reflects when the trader acted.
func HourKey(t *domain.Trade) int { return t.EntryTime.UTC().Hour() }

// DayKey groups by the UTC calendar day the trade closed on.
func DayKey(t *domain.Trade) string { return t.ExitTime.UTC().Format("2006-01-02") }

// MonthKey groups by the UTC calendar month the trade closed on.
func MonthKey(t *domain.Trade) string { return t.ExitTime.UTC().Format("2006-01") }

// rankByPnL returns the keys with the highest and lowest total P&L.
// Sorting is stable, so among equal totals the first-seen key leads.
func rankByPnL[K comparable](g *GroupAggregator[K]) (best, worst K, ok bool) {
	if len(g.order) == 0 {
		return best, worst, false
	}
	keys := make([]K, len(g.order))
	copy(keys, g.order)
	sort.SliceStable(keys, func(i, j int) bool {
		return g.rawPnL(keys[i]) > g.rawPnL(keys[j])
	})
	return keys[0], keys[len(keys)-1], true
}

// firstLowest returns the first-seen key among those with the lowest total P&L.
// Sessions rank their worst this way; symbols take the last of the descending order.
func firstLowest[K comparable](g *GroupAggregator[K]) K {
	var worst K
	for i, k := range g.order {
		if i == 0 || g.rawPnL(k) < g.rawPnL(worst) {
			worst = k
		}
	}
	return worst
}

// sortedStats returns the stats ordered by key using less.
func sortedStats[K comparable](g *GroupAggregator[K], less func(a, b K) bool) []GroupStat[K] {
	stats := g.Stats()
	sort.SliceStable(stats, func(i, j int) bool {
		return less(stats[i].Key, stats[j].Key)
	})
	return stats
}
