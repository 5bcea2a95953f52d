package utils

import (
	"strings"
	"unicode"
)

// Format is the detected layout of an imported CSV file.
type Format string

const (
	FormatMT5     Format = "mt5"
	FormatGeneric Format = "generic"
)

// Field names a trade attribute a CSV column can be mapped to.
type Field string

const (
	FieldTicket     Field = "ticket_number"
	FieldSymbol     Field = "symbol"
	FieldDirection  Field = "direction"
	FieldEntryTime  Field = "entry_time"
	FieldExitTime   Field = "exit_time"
	FieldEntryPrice Field = "entry_price"
	FieldExitPrice  Field = "exit_price"
	FieldSize       Field = "position_size"
	FieldPNL        Field = "pnl"
	FieldCommission Field = "commission"
	FieldSwap       Field = "swap"
	FieldStopLoss   Field = "stop_loss"
	FieldTakeProfit Field = "take_profit"
)

// ColumnMapping maps trade fields to column indexes of the header row.
type ColumnMapping map[Field]int

var mt5Headers = []string{"deal", "time", "type", "symbol", "volume", "price", "profit"}

// mt5Columns maps fields to the MetaTrader 5 deal export header that carries them.
// A deal row has a single time and price, so they land on the entry side.
var mt5Columns = []struct {
	field   Field
	headers []string
}{
	{FieldTicket, []string{"deal", "order"}},
	{FieldSymbol, []string{"symbol"}},
	{FieldDirection, []string{"type"}},
	{FieldEntryTime, []string{"time"}},
	{FieldEntryPrice, []string{"price"}},
	{FieldSize, []string{"volume"}},
	{FieldPNL, []string{"profit"}},
	{FieldCommission, []string{"commission"}},
	{FieldSwap, []string{"swap"}},
	{FieldStopLoss, []string{"s / l", "s/l", "sl"}},
	{FieldTakeProfit, []string{"t / p", "t/p", "tp"}},
}

// genericColumns lists keyword candidates per field, most specific first.
// Fields are resolved in this order and a column is claimed by the first field that matches it,
// so exit columns are placed before their entry counterparts to keep "time" and "entry" from grabbing them.
var genericColumns = []struct {
	field    Field
	keywords []string
}{
	{FieldTicket, []string{"ticket", "deal", "order", "id"}},
	{FieldSymbol, []string{"symbol", "pair", "instrument", "item"}},
	{FieldDirection, []string{"direction", "side", "type", "action"}},
	{FieldExitTime, []string{"close time", "exit time", "close date", "exit date"}},
	{FieldEntryTime, []string{"open time", "entry time", "entry date", "open date", "time", "date"}},
	{FieldExitPrice, []string{"close price", "exit price", "close", "exit"}},
	{FieldEntryPrice, []string{"open price", "entry price", "open", "entry", "price"}},
	{FieldSize, []string{"volume", "lots", "lot", "size", "quantity", "units"}},
	{FieldPNL, []string{"net profit", "profit", "pnl", "p&l", "p/l"}},
	{FieldCommission, []string{"commission", "comm", "fee", "fees"}},
	{FieldSwap, []string{"swap", "rollover"}},
	{FieldStopLoss, []string{"stop loss", "s/l", "sl", "stop"}},
	{FieldTakeProfit, []string{"take profit", "t/p", "tp", "target"}},
}

// DetectFormat reports FormatMT5 when every MetaTrader 5 deal header is present.
func DetectFormat(headers []string) Format {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[normalizeHeader(h)] = true
	}
	for _, h := range mt5Headers {
		if !present[h] {
			return FormatGeneric
		}
	}
	return FormatMT5
}

// SuggestMapping maps headers to trade fields for the given format.
// Fields with no matching column are absent from the result.
func SuggestMapping(headers []string, format Format) ColumnMapping {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = normalizeHeader(h)
	}

	mapping := make(ColumnMapping)
	if format == FormatMT5 {
		for _, c := range mt5Columns {
			for _, name := range c.headers {
				if idx := indexOf(normalized, name); idx >= 0 {
					mapping[c.field] = idx
					break
				}
			}
		}
		return mapping
	}

	claimed := make(map[int]bool)
	for _, c := range genericColumns {
		if idx := findColumn(normalized, c.keywords, claimed); idx >= 0 {
			mapping[c.field] = idx
			claimed[idx] = true
		}
	}
	return mapping
}

// findColumn returns the first unclaimed column matching the highest-priority keyword.
func findColumn(headers []string, keywords []string, claimed map[int]bool) int {
	for _, kw := range keywords {
		for i, h := range headers {
			if !claimed[i] && headerMatches(h, kw) {
				return i
			}
		}
	}
	return -1
}

// headerMatches matches multi-word and punctuated keywords as substrings,
// and single words against whole words of the header.
func headerMatches(header, keyword string) bool {
	if header == keyword {
		return true
	}
	if strings.IndexFunc(keyword, func(r rune) bool { return !unicode.IsLetter(r) }) >= 0 {
		return strings.Contains(header, keyword)
	}
	for _, word := range strings.FieldsFunc(header, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if word == keyword {
			return true
		}
	}
	return false
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func indexOf(values []string, want string) int {
	for i, v := range values {
		if v == want {
			return i
		}
	}
	return -1
}
