// Package cli exposes the journal service as cobra commands.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tahmidmalekzoha/rawjournal/config"
	"github.com/tahmidmalekzoha/rawjournal/internal/analytics"
	"github.com/tahmidmalekzoha/rawjournal/internal/app"
	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
	"github.com/tahmidmalekzoha/rawjournal/internal/pricing"
)

// Journal is the part of app.JournalService the commands use.
type Journal interface {
	AddTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	GetTrade(ctx context.Context, id int64) (*domain.Trade, error)
	DeleteTrade(ctx context.Context, id int64) error
	ImportTrades(ctx context.Context, accountID string, r io.Reader) (app.ImportResult, error)
	ExportTrades(ctx context.Context, q app.ReportQuery, w io.Writer) (int, error)
	Report(ctx context.Context, q app.ReportQuery) (*analytics.Report, error)
	Estimate(direction domain.Direction, entry, exit, size float64, symbol string) (pricing.Estimate, bool)
	Now() time.Time
}

// NewRootCommand builds the rawjournal command tree around journal.
func NewRootCommand(cfg *config.Config, journal Journal) *cobra.Command {
	root := &cobra.Command{
		Use:   "rawjournal",
		Short: "A forex trading journal with performance analytics",
		Long: `RawJournal records forex and metals trades and reports on their performance.

It provides tools for:
  - Journaling trades by hand or importing MT5 and generic CSV exports
  - Performance reports: win rate, profit factor, drawdown, streaks, equity curve
  - Breakdowns by symbol, session, weekday and hour
  - Pip and P&L previews for a planned trade`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newReportCommand(cfg, journal),
		newAddCommand(cfg, journal),
		newImportCommand(cfg, journal),
		newExportCommand(cfg, journal),
		newEstimateCommand(journal),
		newDeleteCommand(journal),
	)
	return root
}
