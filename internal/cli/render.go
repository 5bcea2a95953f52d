package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tahmidmalekzoha/rawjournal/config"
	"github.com/tahmidmalekzoha/rawjournal/internal/analytics"
	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
)

// reportHeader describes the scope a report was computed for.
type reportHeader struct {
	Account    string
	Period     domain.Period
	Since      time.Time
	MarketOpen bool
}

func renderReport(w io.Writer, format string, h reportHeader, r *analytics.Report) error {
	switch format {
	case config.ReportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case config.ReportYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderText(w, h, r)
	}
}

func renderText(w io.Writer, h reportHeader, r *analytics.Report) error {
	account := h.Account
	if account == "" {
		account = "all accounts"
	}
	scope := string(h.Period)
	if !h.Since.IsZero() {
		scope += " since " + h.Since.Format("2006-01-02")
	}
	market := "closed"
	if h.MarketOpen {
		market = "open"
	}
	fmt.Fprintf(w, "Account: %s | Period: %s | Market: %s\n\n", account, scope, market)

	if r.TotalTrades == 0 {
		fmt.Fprintln(w, "No closed trades in this period.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Trades:\t%d (%d won, %d lost, %d breakeven)\n", r.TotalTrades, r.WinningTrades, r.LosingTrades, r.BreakevenTrades)
	fmt.Fprintf(tw, "Win rate:\t%.2f%%\n", r.WinRate)
	fmt.Fprintf(tw, "Profit factor:\t%s\n", r.ProfitFactor)
	fmt.Fprintf(tw, "Total P&L:\t%.2f\n", r.TotalPnL)
	fmt.Fprintf(tw, "Avg win / loss:\t%.2f / %.2f\n", r.AvgWin, r.AvgLoss)
	fmt.Fprintf(tw, "Largest win / loss:\t%.2f / %.2f\n", r.LargestWin, r.LargestLoss)
	fmt.Fprintf(tw, "Max drawdown:\t%.2f (%.2f%%)\n", r.MaxDrawdown, r.MaxDrawdownPct)
	fmt.Fprintf(tw, "Avg holding time:\t%s\n", r.AvgHoldingTime.Round(time.Second))
	fmt.Fprintf(tw, "Best streaks:\t%d wins, %d losses\n", r.ConsecutiveWins, r.ConsecutiveLosses)
	fmt.Fprintf(tw, "Best / worst symbol:\t%s / %s\n", deref(r.BestSymbol), deref(r.WorstSymbol))
	fmt.Fprintf(tw, "Best / worst session:\t%s / %s\n", deref(r.BestSession), deref(r.WorstSession))
	if err := tw.Flush(); err != nil {
		return err
	}

	if err := groupTable(w, "Symbol", r.BySymbol, func(k string) string { return k }); err != nil {
		return err
	}
	if err := groupTable(w, "Session", r.BySession, func(k string) string { return k }); err != nil {
		return err
	}
	if err := groupTable(w, "Weekday", r.ByWeekday, func(k string) string { return k }); err != nil {
		return err
	}
	if err := groupTable(w, "Hour (UTC)", r.ByHour, func(k int) string { return fmt.Sprintf("%02d:00", k) }); err != nil {
		return err
	}
	return periodTable(w, "Month", r.MonthlyPnL)
}

func groupTable[K comparable](w io.Writer, title string, stats []analytics.GroupStat[K], label func(K) string) error {
	if len(stats) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nBy %s\n", title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "KEY\tTRADES\tP&L\tWIN RATE\t")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.2f%%\t\n", label(s.Key), s.TradeCount, money(s.PnL), s.WinRate)
	}
	return tw.Flush()
}

func periodTable(w io.Writer, title string, rows []analytics.PeriodPnL) error {
	if len(rows) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nBy %s\n", title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tTRADES\tP&L\t")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t\n", row.Date, row.TradeCount, money(row.PnL))
	}
	return tw.Flush()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
