package domain

import (
	"fmt"
	"strings"
)

// Direction represents the side of a trade (buy or sell).
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// ParseDirection converts user or broker input into a Direction.
// Anything containing "sell" (case-insensitive) or the MT5 deal type "1" is a sell.
func ParseDirection(s string) (Direction, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch {
	case v == "":
		return "", fmt.Errorf("empty direction")
	case strings.Contains(v, "sell"), v == "1", v == "short":
		return Sell, nil
	case strings.Contains(v, "buy"), v == "0", v == "long":
		return Buy, nil
	default:
		return "", fmt.Errorf("unknown direction %q", s)
	}
}

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == Buy || d == Sell
}

// TradeStatus represents the lifecycle state of a trade.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// ImportSource records how a trade entered the journal.
type ImportSource string

const (
	SourceManual ImportSource = "manual"
	SourceCSV    ImportSource = "csv"
	SourceMT5    ImportSource = "mt5"
)
