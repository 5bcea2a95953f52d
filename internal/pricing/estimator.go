package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/tahmidmalekzoha/rawjournal/internal/domain"
)

// Pip value is contract size times a per-class pip unit, per lot.
var (
	jpyContract      = decimal.NewFromInt(1000)
	jpyPipUnit       = decimal.RequireFromString("0.01")
	goldContract     = decimal.NewFromInt(100)
	goldPipUnit      = decimal.RequireFromString("0.1")
	standardContract = decimal.NewFromInt(100000)
	standardPipUnit  = decimal.RequireFromString("0.0001")
)

// Estimate is the result of a P&L preview.
type Estimate struct {
	Pips float64 // Favorable move in pips, rounded to 1 decimal
	PNL  float64 // Estimated P&L in account currency, rounded to cents
}

// PipValue returns the simplified monetary value of one pip for lotSize lots of symbol.
// Silver has its own pip size but is valued like a standard pair.
func PipValue(symbol string, lotSize decimal.Decimal) decimal.Decimal {
	switch ConventionFor(symbol).Class {
	case ClassJPY:
		return lotSize.Mul(jpyContract).Mul(jpyPipUnit)
	case ClassGold:
		return lotSize.Mul(goldContract).Mul(goldPipUnit)
	default:
		return lotSize.Mul(standardContract).Mul(standardPipUnit)
	}
}

// Pips returns the move from entry to exit in pips, positive when the move favored direction.
func Pips(direction domain.Direction, entry, exit decimal.Decimal, symbol string) decimal.Decimal {
	pip := ConventionFor(symbol).PipSize
	if direction == domain.Sell {
		return entry.Sub(exit).Div(pip)
	}
	return exit.Sub(entry).Div(pip)
}

// EstimatePnL converts a price move into estimated pips and P&L.
// It returns ok == false instead of an error when any price or size is missing,
// non-finite or not positive, or the direction is unknown: a live form sends
// partial input all the time. Commission and swap are never included.
func EstimatePnL(direction domain.Direction, entryPrice, exitPrice, lotSize float64, symbol string) (Estimate, bool) {
	if !direction.Valid() || !positive(entryPrice) || !positive(exitPrice) || !positive(lotSize) {
		return Estimate{}, false
	}

	entry := decimal.NewFromFloat(entryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	size := decimal.NewFromFloat(lotSize)

	pips := Pips(direction, entry, exit, symbol)
	pnl := pips.Mul(PipValue(symbol, size))

	return Estimate{
		Pips: pips.Round(1).InexactFloat64(),
		PNL:  pnl.Round(2).InexactFloat64(),
	}, true
}

// FormatPips renders a signed pip count, e.g. "+30.0 pips".
func FormatPips(pips float64) string {
	sign := ""
	if pips >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%s pips", sign, decimal.NewFromFloat(pips).StringFixed(1))
}

// Round rounds v to places decimals, half away from zero.
// Non-finite values are returned unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func positive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
