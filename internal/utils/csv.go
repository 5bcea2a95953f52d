package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
	"github.com/tahmidmalekzoha/rawjournal/internal/ports"
)

// DefaultLotSize is used for rows without a position size when ImportOptions leaves it unset.
const DefaultLotSize = 0.01

// timeLayouts are tried in order for every timestamp cell. Zone-less layouts are read as UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006.01.02 15:04:05",
	"2006-01-02 15:04",
	"2006.01.02 15:04",
	"2006-01-02",
	"2006.01.02",
}

// ImportOptions controls how CSV rows become trades.
type ImportOptions struct {
	AccountID      string
	DefaultLotSize float64       // Used when a row has no size; DefaultLotSize when zero
	Mapping        ColumnMapping // Overrides the detected mapping when set
}

// RowError describes a data row that could not be turned into a trade.
type RowError struct {
	Row int // 1-based line number in the file, header included
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// ParseResult is the outcome of reading a trade CSV.
type ParseResult struct {
	Format  Format
	Mapping ColumnMapping
	Trades  []*domain.Trade
	Errors  []RowError
}

// ReadTradesFromCSV parses a trade export with a header row.
// Bad rows are collected in ParseResult.Errors; the returned error is reserved for unreadable input.
func ReadTradesFromCSV(r io.Reader, opts ImportOptions) (*ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv has no header row: %w", ports.ErrUnsupportedFormat)
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	format := DetectFormat(headers)
	mapping := opts.Mapping
	if len(mapping) == 0 {
		mapping = SuggestMapping(headers, format)
	}
	if _, ok := mapping[FieldSymbol]; !ok {
		return nil, fmt.Errorf("no symbol column in headers %v: %w", headers, ports.ErrUnsupportedFormat)
	}

	lot := opts.DefaultLotSize
	if lot <= 0 {
		lot = DefaultLotSize
	}
	source := domain.SourceCSV
	if format == FormatMT5 {
		source = domain.SourceMT5
	}

	result := &ParseResult{Format: format, Mapping: mapping, Trades: make([]*domain.Trade, 0)}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Errors = append(result.Errors, RowError{Row: line, Err: err})
				continue
			}
			return nil, fmt.Errorf("failed to read csv row %d: %w", line, err)
		}
		if isBlank(record) {
			continue
		}

		trade, err := mapRow(record, mapping, opts.AccountID, lot, source)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: line, Err: err})
			continue
		}
		result.Trades = append(result.Trades, trade)
	}
	return result, nil
}

func mapRow(record []string, mapping ColumnMapping, accountID string, lot float64, source domain.ImportSource) (*domain.Trade, error) {
	get := func(f Field) string {
		idx, ok := mapping[f]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	symbol := NormalizeSymbol(get(FieldSymbol))
	if symbol == "" {
		return nil, fmt.Errorf("missing symbol: %w", ports.ErrInvalidTrade)
	}

	entryTime, err := ParseTime(get(FieldEntryTime))
	if err != nil {
		return nil, fmt.Errorf("entry time: %w", err)
	}

	trade := &domain.Trade{
		AccountID:    accountID,
		TicketNumber: get(FieldTicket),
		Symbol:       symbol,
		Direction:    rowDirection(get(FieldDirection)),
		EntryTime:    entryTime,
		Source:       source,
	}
	if trade.TicketNumber == "" {
		trade.TicketNumber = "csv-" + uuid.NewString()
	}

	if trade.EntryPrice, err = parseNumber(get(FieldEntryPrice)); err != nil {
		return nil, fmt.Errorf("entry price: %w", err)
	}
	if trade.PositionSize, err = parseNumber(get(FieldSize)); err != nil {
		return nil, fmt.Errorf("position size: %w", err)
	}
	if trade.PositionSize <= 0 {
		trade.PositionSize = lot
	}
	if trade.Commission, err = parseNumber(get(FieldCommission)); err != nil {
		return nil, fmt.Errorf("commission: %w", err)
	}
	if trade.Swap, err = parseNumber(get(FieldSwap)); err != nil {
		return nil, fmt.Errorf("swap: %w", err)
	}
	if trade.ExitPrice, err = parseOptionalPrice(get(FieldExitPrice)); err != nil {
		return nil, fmt.Errorf("exit price: %w", err)
	}
	if trade.StopLoss, err = parseOptionalPrice(get(FieldStopLoss)); err != nil {
		return nil, fmt.Errorf("stop loss: %w", err)
	}
	if trade.TakeProfit, err = parseOptionalPrice(get(FieldTakeProfit)); err != nil {
		return nil, fmt.Errorf("take profit: %w", err)
	}
	if raw := get(FieldPNL); raw != "" {
		pnl, err := parseNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("profit: %w", err)
		}
		// MT5 writes 0 on opening deals; a zero profit cell reads as "not realized".
		if pnl != 0 {
			trade.PNL = domain.Float64(pnl)
		}
	}
	if raw := get(FieldExitTime); raw != "" {
		exitTime, err := ParseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("exit time: %w", err)
		}
		trade.ExitTime = domain.Time(exitTime)
	}

	trade.Status = domain.StatusOpen
	if trade.ExitPrice != nil || trade.PNL != nil {
		trade.Status = domain.StatusClosed
		// Deal exports carry one timestamp; a realized deal closes at that time.
		if trade.ExitTime == nil {
			trade.ExitTime = domain.Time(entryTime)
		}
	}
	return trade, nil
}

// rowDirection never fails: anything that is not recognisably a sell is a buy.
func rowDirection(raw string) domain.Direction {
	if d, err := domain.ParseDirection(raw); err == nil {
		return d
	}
	return domain.Buy
}

// NormalizeSymbol uppercases a symbol and drops everything but letters and digits ("eur/usd" -> "EURUSD").
func NormalizeSymbol(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseTime parses a timestamp in any of the supported export layouts, returning it in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp: %w", ports.ErrInvalidTrade)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q: %w", s, ports.ErrInvalidTrade)
}

// parseNumber reads a decimal cell; empty cells are zero. Spaces used as thousand separators are dropped.
func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, ports.ErrInvalidTrade)
	}
	return v, nil
}

// parseOptionalPrice treats empty and zero cells as absent, which is how MT5 writes unset SL/TP.
func parseOptionalPrice(s string) (*float64, error) {
	v, err := parseNumber(s)
	if err != nil || v == 0 {
		return nil, err
	}
	return domain.Float64(v), nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// exportHeader is the canonical column set written by WriteTradesToCSV and understood by ReadTradesFromCSV.
var exportHeader = []string{
	"ticket", "symbol", "direction", "open time", "close time", "open price", "close price",
	"volume", "profit", "pips", "commission", "swap", "sl", "tp", "status", "session",
}

// WriteTradesToCSV writes trades under the canonical header.
func WriteTradesToCSV(w io.Writer, trades []*domain.Trade) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, t := range trades {
		if t == nil {
			continue
		}
		err := writer.Write([]string{
			t.TicketNumber,
			t.Symbol,
			string(t.Direction),
			t.EntryTime.UTC().Format(time.RFC3339),
			formatTime(t.ExitTime),
			formatFloat(t.EntryPrice),
			formatOptional(t.ExitPrice),
			formatFloat(t.PositionSize),
			formatOptional(t.PNL),
			formatOptional(t.PNLPips),
			formatFloat(t.Commission),
			formatFloat(t.Swap),
			formatOptional(t.StopLoss),
			formatOptional(t.TakeProfit),
			string(t.Status),
			t.SessionTag,
		})
		if err != nil {
			return fmt.Errorf("failed to write trade %s: %w", t.TicketNumber, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
