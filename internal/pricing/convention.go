// Package pricing holds per-instrument quoting rules and the P&L estimator
// used for live previews of manually entered trades.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// InstrumentClass groups symbols that share pip conventions.
type InstrumentClass int

const (
	ClassStandard InstrumentClass = iota // Majors and crosses quoted to 4/5 decimals
	ClassJPY                             // Any pair with JPY in it
	ClassGold                            // XAU-prefixed
	ClassSilver                          // XAG-prefixed
)

// String returns the string representation of the InstrumentClass.
func (c InstrumentClass) String() string {
	switch c {
	case ClassJPY:
		return "jpy"
	case ClassGold:
		return "gold"
	case ClassSilver:
		return "silver"
	default:
		return "standard"
	}
}

// Convention describes how an instrument is quoted.
type Convention struct {
	Class     InstrumentClass
	PipSize   decimal.Decimal // Smallest conventionally quoted increment
	Precision int32           // Display decimals, presentation only
}

var (
	jpyConvention      = Convention{Class: ClassJPY, PipSize: decimal.RequireFromString("0.01"), Precision: 3}
	goldConvention     = Convention{Class: ClassGold, PipSize: decimal.RequireFromString("0.1"), Precision: 2}
	silverConvention   = Convention{Class: ClassSilver, PipSize: decimal.RequireFromString("0.01"), Precision: 4}
	standardConvention = Convention{Class: ClassStandard, PipSize: decimal.RequireFromString("0.0001"), Precision: 5}
)

// ConventionFor maps a symbol to its quoting convention. The first matching rule wins:
// JPY anywhere in the symbol, then an XAU prefix, then an XAG prefix.
// Unknown symbols get the standard forex convention.
func ConventionFor(symbol string) Convention {
	s := strings.ToUpper(symbol)
	switch {
	case strings.Contains(s, "JPY"):
		return jpyConvention
	case strings.HasPrefix(s, "XAU"):
		return goldConvention
	case strings.HasPrefix(s, "XAG"):
		return silverConvention
	default:
		return standardConvention
	}
}

// PipSize returns the pip size for a symbol as a float.
func PipSize(symbol string) float64 {
	return ConventionFor(symbol).PipSize.InexactFloat64()
}

// FormatPrice renders price with the display precision of symbol.
func FormatPrice(price float64, symbol string) string {
	return decimal.NewFromFloat(price).StringFixed(ConventionFor(symbol).Precision)
}
