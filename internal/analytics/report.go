package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gopkg.in/yaml.v3"
)

// Report holds the performance summary of a set of closed trades.
// A Report is a plain value: it is rebuilt for every query and never mutated afterwards.
type Report struct {
	// Counts
	TotalTrades     int `json:"total_trades" yaml:"total_trades"`
	WinningTrades   int `json:"winning_trades" yaml:"winning_trades"`
	LosingTrades    int `json:"losing_trades" yaml:"losing_trades"`
	BreakevenTrades int `json:"breakeven_trades" yaml:"breakeven_trades"`

	// Ratios and money
	WinRate        float64       `json:"win_rate" yaml:"win_rate"` // Percent, 0-100
	ProfitFactor   ProfitFactor  `json:"profit_factor" yaml:"profit_factor"`
	AvgWin         float64       `json:"avg_win" yaml:"avg_win"`
	AvgLoss        float64       `json:"avg_loss" yaml:"avg_loss"` // Positive magnitude
	LargestWin     float64       `json:"largest_win" yaml:"largest_win"`
	LargestLoss    float64       `json:"largest_loss" yaml:"largest_loss"` // Most negative P&L, or 0
	TotalPnL       float64       `json:"total_pnl" yaml:"total_pnl"`
	MaxDrawdown    float64       `json:"max_drawdown" yaml:"max_drawdown"`
	MaxDrawdownPct float64       `json:"max_drawdown_pct" yaml:"max_drawdown_pct"`
	AvgHoldingTime time.Duration `json:"avg_holding_time_ns" yaml:"avg_holding_time"`

	// Streaks
	ConsecutiveWins   int `json:"consecutive_wins" yaml:"consecutive_wins"`
	ConsecutiveLosses int `json:"consecutive_losses" yaml:"consecutive_losses"`

	// Leaders, nil when there are no trades
	BestSymbol   *string `json:"best_symbol" yaml:"best_symbol"`
	WorstSymbol  *string `json:"worst_symbol" yaml:"worst_symbol"`
	BestSession  *string `json:"best_session" yaml:"best_session"`
	WorstSession *string `json:"worst_session" yaml:"worst_session"`

	// Series
	EquityCurve []EquityPoint       `json:"equity_curve" yaml:"equity_curve"`
	DailyPnL    []PeriodPnL         `json:"daily_pnl" yaml:"daily_pnl"`
	MonthlyPnL  []PeriodPnL         `json:"monthly_pnl" yaml:"monthly_pnl"`
	BySymbol    []GroupStat[string] `json:"by_symbol" yaml:"by_symbol"`
	BySession   []GroupStat[string] `json:"by_session" yaml:"by_session"`
	ByWeekday   []GroupStat[string] `json:"by_day_of_week" yaml:"by_day_of_week"`
	ByHour      []GroupStat[int]    `json:"by_hour" yaml:"by_hour"`
}

// EquityPoint is the cumulative realized P&L right after one trade closed.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Equity    float64   `json:"equity" yaml:"equity"`
}

// PeriodPnL is the realized P&L of one calendar bucket (a day or a month).
type PeriodPnL struct {
	Date       string  `json:"date" yaml:"date"`
	PnL        float64 `json:"pnl" yaml:"pnl"`
	TradeCount int     `json:"trades" yaml:"trades"`
}

// GroupStat is the aggregate of all trades sharing one key.
type GroupStat[K comparable] struct {
	Key        K       `json:"key" yaml:"key"`
	PnL        float64 `json:"pnl" yaml:"pnl"`
	TradeCount int     `json:"trades" yaml:"trades"`
	WinRate    float64 `json:"win_rate" yaml:"win_rate"`
}

// emptyReport returns the canonical report for a set with no closed, priced trades.
// Series are empty slices rather than nil so they serialize as [].
func emptyReport() *Report {
	return &Report{
		EquityCurve: []EquityPoint{},
		DailyPnL:    []PeriodPnL{},
		MonthlyPnL:  []PeriodPnL{},
		BySymbol:    []GroupStat[string]{},
		BySession:   []GroupStat[string]{},
		ByWeekday:   []GroupStat[string]{},
		ByHour:      []GroupStat[int]{},
	}
}

// unboundedJSON is how an unbounded profit factor appears in JSON.
const unboundedJSON = "inf"

// ProfitFactor is gross profit over gross loss.
// A set with wins and no losses has no finite profit factor; it is Unbounded
// rather than a float infinity so it cannot be silently mis-serialized.
type ProfitFactor struct {
	value     float64
	unbounded bool
}

// Bounded returns a finite profit factor.
func Bounded(v float64) ProfitFactor {
	return ProfitFactor{value: v}
}

// Unbounded returns the profit factor of a set with gains and no losses.
func Unbounded() ProfitFactor {
	return ProfitFactor{unbounded: true}
}

// Value returns the finite profit factor. ok is false when the factor is unbounded.
func (p ProfitFactor) Value() (v float64, ok bool) {
	if p.unbounded {
		return 0, false
	}
	return p.value, true
}

// IsUnbounded reports whether p has no finite value.
func (p ProfitFactor) IsUnbounded() bool {
	return p.unbounded
}

// Float64 returns p as a float, +Inf when unbounded. Use only for comparisons.
func (p ProfitFactor) Float64() float64 {
	if p.unbounded {
		return math.Inf(1)
	}
	return p.value
}

// String renders p for people: two decimals or the infinity symbol.
func (p ProfitFactor) String() string {
	if p.unbounded {
		return "∞"
	}
	return fmt.Sprintf("%.2f", p.value)
}

// MarshalJSON encodes a bounded factor as a number and an unbounded one as the string "inf".
func (p ProfitFactor) MarshalJSON() ([]byte, error) {
	if p.unbounded {
		return json.Marshal(unboundedJSON)
	}
	return json.Marshal(p.value)
}

// UnmarshalJSON accepts the forms produced by MarshalJSON.
func (p *ProfitFactor) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != unboundedJSON {
			return fmt.Errorf("invalid profit factor %q", s)
		}
		*p = Unbounded()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid profit factor: %w", err)
	}
	*p = Bounded(v)
	return nil
}

// MarshalYAML encodes an unbounded factor as YAML's native .inf.
func (p ProfitFactor) MarshalYAML() (interface{}, error) {
	if p.unbounded {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".inf"}, nil
	}
	return p.value, nil
}

// UnmarshalYAML accepts the forms produced by MarshalYAML.
func (p *ProfitFactor) UnmarshalYAML(node *yaml.Node) error {
	var v float64
	if err := node.Decode(&v); err != nil {
		return fmt.Errorf("invalid profit factor: %w", err)
	}
	if math.IsInf(v, 1) {
		*p = Unbounded()
		return nil
	}
	*p = Bounded(v)
	return nil
}
