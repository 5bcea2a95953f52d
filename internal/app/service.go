package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/tahmidmalekzoha/rawjournal/config"
	"github.com/tahmidmalekzoha/rawjournal/internal/analytics"
	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
	"github.com/tahmidmalekzoha/rawjournal/internal/ports"
	"github.com/tahmidmalekzoha/rawjournal/internal/pricing"
	"github.com/tahmidmalekzoha/rawjournal/internal/utils"
)

// JournalService orchestrates journaling trades and reporting on them.
type JournalService struct {
	cfg    *config.Config
	logger ports.Logger
	trades ports.TradeRepository
	cache  ports.ReportCache // Optional; nil disables report caching
	now    func() time.Time
}

// Option customizes a JournalService.
type Option func(*JournalService)

// WithClock replaces time.Now, which decides period boundaries and default exit times.
func WithClock(now func() time.Time) Option {
	return func(s *JournalService) { s.now = now }
}

// NewJournalService creates a new application service instance.
func NewJournalService(
	cfg *config.Config,
	logger ports.Logger,
	trades ports.TradeRepository,
	cache ports.ReportCache,
	opts ...Option,
) (*JournalService, error) {
	// Validate dependencies
	if cfg == nil || logger == nil || trades == nil {
		return nil, fmt.Errorf("missing required dependencies for JournalService: %w", ports.ErrConfigurationError)
	}
	if cfg.DefaultLotSize <= 0 {
		return nil, fmt.Errorf("configuration DefaultLotSize must be positive: %w", ports.ErrConfigurationError)
	}

	s := &JournalService{
		cfg:    cfg,
		logger: logger,
		trades: trades,
		cache:  cache,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// --- Trades ---

// AddTrade validates, completes and stores a trade, returning its ID.
// Missing P&L and pips are estimated from prices, the session is derived from the entry hour,
// and the status is closed exactly when an exit price or a P&L is known.
func (s *JournalService) AddTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	if err := s.prepare(trade); err != nil {
		return 0, err
	}

	id, err := s.trades.CreateTrade(ctx, trade)
	if err != nil {
		if !errors.Is(err, ports.ErrDuplicateEntry) {
			s.logger.Error(ctx, err, "Failed to save trade", ports.Fields{"ticket": trade.TicketNumber, "symbol": trade.Symbol})
		}
		return 0, err
	}
	s.logger.Debug(ctx, "Trade journaled", ports.Fields{
		"tradeID": id,
		"account": trade.AccountID,
		"symbol":  trade.Symbol,
		"status":  trade.Status,
	})
	return id, nil
}

// prepare normalizes trade in place and rejects it with ErrInvalidTrade when it cannot be journaled.
func (s *JournalService) prepare(t *domain.Trade) error {
	if t == nil {
		return fmt.Errorf("trade is nil: %w", ports.ErrInvalidTrade)
	}
	if t.AccountID == "" {
		t.AccountID = s.cfg.DefaultAccount
	}
	t.Symbol = utils.NormalizeSymbol(t.Symbol)
	if t.Symbol == "" {
		return fmt.Errorf("symbol is required: %w", ports.ErrInvalidTrade)
	}
	if !t.Direction.Valid() {
		return fmt.Errorf("invalid direction %q: %w", t.Direction, ports.ErrInvalidTrade)
	}
	if !isPositive(t.EntryPrice) {
		return fmt.Errorf("entry price must be positive, got %v: %w", t.EntryPrice, ports.ErrInvalidTrade)
	}
	if !isPositive(t.PositionSize) {
		return fmt.Errorf("position size must be positive, got %v: %w", t.PositionSize, ports.ErrInvalidTrade)
	}
	if t.EntryTime.IsZero() {
		return fmt.Errorf("entry time is required: %w", ports.ErrInvalidTrade)
	}
	if t.ExitPrice != nil && !isPositive(*t.ExitPrice) {
		return fmt.Errorf("exit price must be positive, got %v: %w", *t.ExitPrice, ports.ErrInvalidTrade)
	}
	if t.PNL != nil && (math.IsNaN(*t.PNL) || math.IsInf(*t.PNL, 0)) {
		return fmt.Errorf("pnl must be finite: %w", ports.ErrInvalidTrade)
	}
	if t.ExitTime != nil && t.ExitTime.Before(t.EntryTime) {
		return fmt.Errorf("exit time %s is before entry time %s: %w",
			t.ExitTime.Format(time.RFC3339), t.EntryTime.Format(time.RFC3339), ports.ErrInvalidTrade)
	}

	if t.TicketNumber == "" {
		t.TicketNumber = "manual-" + uuid.NewString()
	}
	if t.Source == "" {
		t.Source = domain.SourceManual
	}
	t.EntryTime = t.EntryTime.UTC()

	if t.ExitPrice != nil {
		if est, ok := pricing.EstimatePnL(t.Direction, t.EntryPrice, *t.ExitPrice, t.PositionSize, t.Symbol); ok {
			if t.PNL == nil {
				t.PNL = domain.Float64(est.PNL)
			}
			if t.PNLPips == nil {
				t.PNLPips = domain.Float64(est.Pips)
			}
		}
	}

	t.Status = domain.StatusOpen
	if t.ExitPrice != nil || t.PNL != nil {
		t.Status = domain.StatusClosed
		if t.ExitTime == nil {
			t.ExitTime = domain.Time(s.now())
		}
	}
	if t.ExitTime != nil {
		t.ExitTime = domain.Time(t.ExitTime.UTC())
	}
	if t.SessionTag == "" {
		t.SessionTag = string(domain.SessionForTime(t.EntryTime))
	}
	return nil
}

// GetTrade returns a trade by ID, or ErrNotFound.
func (s *JournalService) GetTrade(ctx context.Context, id int64) (*domain.Trade, error) {
	trade, err := s.trades.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if trade == nil {
		return nil, fmt.Errorf("trade %d: %w", id, ports.ErrNotFound)
	}
	return trade, nil
}

// DeleteTrade removes a trade by ID.
func (s *JournalService) DeleteTrade(ctx context.Context, id int64) error {
	if err := s.trades.DeleteTrade(ctx, id); err != nil {
		return err
	}
	s.logger.Info(ctx, "Trade deleted", ports.Fields{"tradeID": id})
	return nil
}

// --- Import / export ---

// ImportResult summarizes one CSV import.
type ImportResult struct {
	Format     utils.Format
	Total      int // Data rows read, bad rows included
	Imported   int
	Duplicates int // Rows whose ticket already exists in the account
	Invalid    int // Rows that could not be parsed or failed validation
	Errors     []utils.RowError
}

// ImportTrades reads a CSV export into accountID.
// Duplicate and invalid rows are counted and skipped; only unreadable input or storage failures abort.
func (s *JournalService) ImportTrades(ctx context.Context, accountID string, r io.Reader) (ImportResult, error) {
	if accountID == "" {
		accountID = s.cfg.DefaultAccount
	}

	parsed, err := utils.ReadTradesFromCSV(r, utils.ImportOptions{
		AccountID:      accountID,
		DefaultLotSize: s.cfg.DefaultLotSize,
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to parse import file: %w", err)
	}

	result := ImportResult{
		Format:  parsed.Format,
		Total:   len(parsed.Trades) + len(parsed.Errors),
		Invalid: len(parsed.Errors),
		Errors:  parsed.Errors,
	}
	for _, rowErr := range parsed.Errors {
		s.logger.Warn(ctx, "Skipping unreadable import row", ports.Fields{"row": rowErr.Row, "reason": rowErr.Err.Error()})
	}

	for _, trade := range parsed.Trades {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		_, err := s.AddTrade(ctx, trade)
		switch {
		case err == nil:
			result.Imported++
		case errors.Is(err, ports.ErrDuplicateEntry):
			result.Duplicates++
		case errors.Is(err, ports.ErrInvalidTrade):
			result.Invalid++
			s.logger.Warn(ctx, "Skipping invalid import row", ports.Fields{"ticket": trade.TicketNumber, "reason": err.Error()})
		default:
			return result, fmt.Errorf("import aborted after %d trades: %w", result.Imported, err)
		}
	}

	s.logger.Info(ctx, "Import finished", ports.Fields{
		"account":    accountID,
		"format":     result.Format,
		"total":      result.Total,
		"imported":   result.Imported,
		"duplicates": result.Duplicates,
		"invalid":    result.Invalid,
	})
	return result, nil
}

// ExportTrades writes the closed trades matched by q as CSV and returns how many were written.
func (s *JournalService) ExportTrades(ctx context.Context, q ReportQuery, w io.Writer) (int, error) {
	filter, _, err := s.resolve(q)
	if err != nil {
		return 0, err
	}
	trades, err := s.trades.FindClosed(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to load trades for export: %w", err)
	}
	if err := utils.WriteTradesToCSV(w, trades); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	return len(trades), nil
}

// --- Reports ---

// ReportQuery selects the trades a report covers. Empty fields mean "no constraint",
// except Period which falls back to the configured default.
type ReportQuery struct {
	AccountID string
	Period    domain.Period
	Symbol    string
	Session   string
	Direction domain.Direction
}

// Report computes performance analytics for the closed trades matched by q.
// Account-and-period queries are served from the report cache while the account's data is unchanged.
func (s *JournalService) Report(ctx context.Context, q ReportQuery) (*analytics.Report, error) {
	filter, period, err := s.resolve(q)
	if err != nil {
		return nil, err
	}

	var key *ports.CacheKey
	if s.cfg.ReportCache && s.cache != nil && filter.IsScopeOnly() {
		key, err = s.cacheKey(ctx, filter, period)
		if err != nil {
			s.logger.Warn(ctx, "Report cache unavailable, computing directly", ports.Fields{"reason": err.Error()})
		} else if report, ok := s.cachedReport(ctx, *key); ok {
			return report, nil
		}
	}

	trades, err := s.trades.FindClosed(ctx, filter)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to load trades for report", ports.Fields{"account": filter.AccountID, "period": period})
		return nil, fmt.Errorf("failed to load trades for report: %w", err)
	}

	started := time.Now()
	report := analytics.Compute(trades)
	s.logger.Info(ctx, "Report computed", ports.Fields{
		"account":  filter.AccountID,
		"period":   period,
		"trades":   report.TotalTrades,
		"duration": time.Since(started).String(),
	})

	if key != nil {
		s.storeReport(ctx, *key, report)
	}
	return report, nil
}

// Estimate previews pips and P&L for a hypothetical trade; ok is false when the input is incomplete.
func (s *JournalService) Estimate(direction domain.Direction, entry, exit, size float64, symbol string) (pricing.Estimate, bool) {
	return pricing.EstimatePnL(direction, entry, exit, size, utils.NormalizeSymbol(symbol))
}

// Now returns the service clock's current time.
func (s *JournalService) Now() time.Time {
	return s.now()
}

// resolve turns a query into a repository filter. The period start is inclusive and there is no upper bound.
func (s *JournalService) resolve(q ReportQuery) (ports.TradeFilter, domain.Period, error) {
	raw := string(q.Period)
	if raw == "" {
		raw = string(s.cfg.DefaultPeriod)
	}
	period, err := domain.ParsePeriod(raw)
	if err != nil {
		return ports.TradeFilter{}, "", fmt.Errorf("%v: %w", err, ports.ErrInvalidRequest)
	}
	if q.Direction != "" && !q.Direction.Valid() {
		return ports.TradeFilter{}, "", fmt.Errorf("invalid direction %q: %w", q.Direction, ports.ErrInvalidRequest)
	}

	return ports.TradeFilter{
		AccountID: q.AccountID,
		Symbol:    utils.NormalizeSymbol(q.Symbol),
		Session:   q.Session,
		Direction: q.Direction,
		From:      period.Range(s.now(), s.cfg.WeekStart),
	}, period, nil
}

func (s *JournalService) cacheKey(ctx context.Context, filter ports.TradeFilter, period domain.Period) (*ports.CacheKey, error) {
	watermark, err := s.trades.LastModified(ctx, filter.AccountID)
	if err != nil {
		return nil, err
	}
	return &ports.CacheKey{
		AccountID: filter.AccountID,
		Period:    period,
		Since:     filter.From,
		Watermark: watermark,
	}, nil
}

func (s *JournalService) cachedReport(ctx context.Context, key ports.CacheKey) (*analytics.Report, bool) {
	payload, ok, err := s.cache.GetReport(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, "Report cache read failed", ports.Fields{"reason": err.Error()})
		return nil, false
	}
	if !ok {
		s.logger.Debug(ctx, "Report cache miss", ports.Fields{"account": key.AccountID, "period": key.Period})
		return nil, false
	}

	var report analytics.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		s.logger.Warn(ctx, "Discarding unreadable cached report", ports.Fields{"reason": err.Error()})
		return nil, false
	}
	s.logger.Debug(ctx, "Report cache hit", ports.Fields{"account": key.AccountID, "period": key.Period})
	return &report, true
}

func (s *JournalService) storeReport(ctx context.Context, key ports.CacheKey, report *analytics.Report) {
	payload, err := json.Marshal(report)
	if err != nil {
		s.logger.Warn(ctx, "Failed to encode report for cache", ports.Fields{"reason": err.Error()})
		return
	}
	if err := s.cache.PutReport(ctx, key, payload); err != nil {
		s.logger.Warn(ctx, "Failed to store report in cache", ports.Fields{"reason": err.Error()})
	}
}

func isPositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
