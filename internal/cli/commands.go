package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tahmidmalekzoha/rawjournal/config"
	"github.com/tahmidmalekzoha/rawjournal/internal/app"
	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
	"github.com/tahmidmalekzoha/rawjournal/internal/pricing"
	"github.com/tahmidmalekzoha/rawjournal/internal/utils"
)

func newReportCommand(cfg *config.Config, journal Journal) *cobra.Command {
	var (
		account     string
		allAccounts bool
		period      string
		symbol      string
		session     string
		direction   string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show performance analytics for closed trades",
		Example: `  rawjournal report --period week
  rawjournal report --symbol EURUSD --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if err := config.ValidateReportFormat(format); err != nil {
				return err
			}
			p, err := domain.ParsePeriod(period)
			if err != nil {
				return err
			}
			q := app.ReportQuery{
				AccountID: account,
				Period:    p,
				Symbol:    symbol,
				Session:   session,
			}
			if allAccounts {
				q.AccountID = ""
			}
			if direction != "" {
				d, err := domain.ParseDirection(direction)
				if err != nil {
					return err
				}
				q.Direction = d
			}

			report, err := journal.Report(cmd.Context(), q)
			if err != nil {
				return err
			}
			return renderReport(cmd.OutOrStdout(), format, reportHeader{
				Account:    q.AccountID,
				Period:     p,
				Since:      p.Range(journal.Now(), cfg.WeekStart),
				MarketOpen: domain.IsMarketOpen(journal.Now()),
			}, report)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&account, "account", "a", cfg.DefaultAccount, "account to report on")
	f.BoolVar(&allAccounts, "all-accounts", false, "report across every account")
	f.StringVarP(&period, "period", "p", string(cfg.DefaultPeriod), "today, week, month, year or all")
	f.StringVarP(&symbol, "symbol", "s", "", "only trades in this symbol")
	f.StringVar(&session, "session", "", "only trades opened in this session (asian, london, overlap, newyork, late-ny)")
	f.StringVar(&direction, "direction", "", "only buy or sell trades")
	f.StringVarP(&format, "format", "f", cfg.ReportFormat, "text, json or yaml")
	return cmd
}

func newAddCommand(cfg *config.Config, journal Journal) *cobra.Command {
	var (
		account, ticket, symbol, direction string
		entryTime, exitTime                string
		entry, exit, size, pnl             float64
		commission, swap, stopLoss, target float64
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Journal a single trade",
		Long: `Add records one trade. It is closed when --exit or --pnl is given.
A missing P&L is estimated from the prices, commission and swap excluded.`,
		Example: `  rawjournal add --symbol EURUSD --direction buy --entry 1.1000 --exit 1.1030 --size 0.1 \
    --entry-time "2024-03-11 09:00:00" --exit-time "2024-03-11 11:00:00"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := domain.ParseDirection(direction)
			if err != nil {
				return err
			}
			trade := &domain.Trade{
				AccountID:    account,
				TicketNumber: ticket,
				Symbol:       symbol,
				Direction:    d,
				EntryPrice:   entry,
				PositionSize: size,
				Commission:   commission,
				Swap:         swap,
				Source:       domain.SourceManual,
			}

			trade.EntryTime = journal.Now()
			if entryTime != "" {
				if trade.EntryTime, err = utils.ParseTime(entryTime); err != nil {
					return fmt.Errorf("--entry-time: %w", err)
				}
			}
			if exitTime != "" {
				t, err := utils.ParseTime(exitTime)
				if err != nil {
					return fmt.Errorf("--exit-time: %w", err)
				}
				trade.ExitTime = domain.Time(t)
			}

			flags := cmd.Flags()
			if flags.Changed("exit") {
				trade.ExitPrice = domain.Float64(exit)
			}
			if flags.Changed("pnl") {
				trade.PNL = domain.Float64(pnl)
			}
			if flags.Changed("sl") {
				trade.StopLoss = domain.Float64(stopLoss)
			}
			if flags.Changed("tp") {
				trade.TakeProfit = domain.Float64(target)
			}

			id, err := journal.AddTrade(cmd.Context(), trade)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added trade #%d (%s %s %s, %s)\n", id, trade.TicketNumber, strings.ToUpper(string(trade.Direction)), trade.Symbol, trade.Status)
			if trade.PNL != nil {
				fmt.Fprintf(out, "  P&L: %.2f", *trade.PNL)
				if trade.PNLPips != nil {
					fmt.Fprintf(out, " (%s)", pricing.FormatPips(*trade.PNLPips))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&account, "account", "a", cfg.DefaultAccount, "account to journal into")
	f.StringVar(&ticket, "ticket", "", "broker ticket number (generated when empty)")
	f.StringVarP(&symbol, "symbol", "s", "", "instrument, e.g. EURUSD (required)")
	f.StringVarP(&direction, "direction", "d", "", "buy or sell (required)")
	f.Float64Var(&entry, "entry", 0, "entry price (required)")
	f.Float64Var(&exit, "exit", 0, "exit price")
	f.Float64Var(&size, "size", cfg.DefaultLotSize, "position size in lots")
	f.Float64Var(&pnl, "pnl", 0, "realized P&L in account currency")
	f.Float64Var(&commission, "commission", 0, "commission charged")
	f.Float64Var(&swap, "swap", 0, "swap charged or earned")
	f.Float64Var(&stopLoss, "sl", 0, "stop loss price")
	f.Float64Var(&target, "tp", 0, "take profit price")
	f.StringVar(&entryTime, "entry-time", "", "entry time, RFC3339 or \"2006-01-02 15:04:05\" UTC (default now)")
	f.StringVar(&exitTime, "exit-time", "", "exit time (default now for closed trades)")
	_ = cmd.MarkFlagRequired("symbol")
	_ = cmd.MarkFlagRequired("direction")
	_ = cmd.MarkFlagRequired("entry")
	return cmd
}

func newImportCommand(cfg *config.Config, journal Journal) *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import trades from an MT5 or generic CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer file.Close()

			res, err := journal.ImportTrades(cmd.Context(), account, file)
			if err != nil && res.Total == 0 {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d of %d rows from %s (%s format): %d duplicates, %d invalid\n",
				res.Imported, res.Total, args[0], res.Format, res.Duplicates, res.Invalid)
			for _, rowErr := range res.Errors {
				fmt.Fprintf(out, "  %v\n", rowErr)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&account, "account", "a", cfg.DefaultAccount, "account to import into")
	return cmd
}

func newExportCommand(cfg *config.Config, journal Journal) *cobra.Command {
	var account, period string

	cmd := &cobra.Command{
		Use:   "export <file.csv|->",
		Short: "Export closed trades as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := app.ReportQuery{AccountID: account, Period: domain.Period(period)}

			if args[0] == "-" {
				_, err := journal.ExportTrades(cmd.Context(), q, cmd.OutOrStdout())
				return err
			}

			file, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			n, err := journal.ExportTrades(cmd.Context(), q, file)
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d trades to %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().StringVarP(&account, "account", "a", cfg.DefaultAccount, "account to export")
	cmd.Flags().StringVarP(&period, "period", "p", string(domain.PeriodAll), "today, week, month, year or all")
	return cmd
}

func newEstimateCommand(journal Journal) *cobra.Command {
	var (
		symbol, direction string
		entry, exit, size float64
	)

	cmd := &cobra.Command{
		Use:     "estimate",
		Short:   "Preview pips and P&L for a price move",
		Example: `  rawjournal estimate --symbol USDJPY --direction buy --entry 150.00 --exit 150.30 --size 1`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			d, err := domain.ParseDirection(direction)
			if err != nil {
				fmt.Fprintln(out, "no estimate")
				return nil
			}
			est, ok := journal.Estimate(d, entry, exit, size, symbol)
			if !ok {
				fmt.Fprintln(out, "no estimate")
				return nil
			}
			sym := utils.NormalizeSymbol(symbol)
			fmt.Fprintf(out, "%s %s %s -> %s\n", strings.ToUpper(string(d)), sym,
				pricing.FormatPrice(entry, sym), pricing.FormatPrice(exit, sym))
			fmt.Fprintf(out, "Pips: %s\n", pricing.FormatPips(est.Pips))
			fmt.Fprintf(out, "P&L:  %s\n", strconv.FormatFloat(est.PNL, 'f', 2, 64))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&symbol, "symbol", "s", "", "instrument, e.g. EURUSD")
	f.StringVarP(&direction, "direction", "d", "buy", "buy or sell")
	f.Float64Var(&entry, "entry", 0, "entry price")
	f.Float64Var(&exit, "exit", 0, "exit price")
	f.Float64Var(&size, "size", 0.01, "position size in lots")
	return cmd
}

func newDeleteCommand(journal Journal) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a journaled trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid trade id %q: %w", args[0], err)
			}
			trade, err := journal.GetTrade(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := journal.DeleteTrade(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted trade #%d (%s %s)\n", id, trade.TicketNumber, trade.Symbol)
			return nil
		},
	}
}
