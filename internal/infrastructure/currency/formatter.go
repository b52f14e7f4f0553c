// Package currency renders prices for display in the configured currency.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sifnet/storefront/internal/domain/shared/valueobject"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	DefaultCode   = "USD"
	DefaultSymbol = "$"

	displayPlaces = 2
)

// maxGroupedInt is the largest integer part rendered with digit grouping
var maxGroupedInt = decimal.New(1, 18)

// Formatter formats amounts with a fixed currency code and symbol.
// It is stateless after construction and safe for concurrent use.
type Formatter struct {
	code    valueobject.Currency
	symbol  string
	printer *message.Printer
}

// NewFormatter creates a formatter. Empty values fall back to USD and "$".
func NewFormatter(code, symbol string) *Formatter {
	c := valueobject.NormalizeCurrency(code)
	if c == "" {
		c = DefaultCode
	}
	if strings.TrimSpace(symbol) == "" {
		symbol = DefaultSymbol
	}
	return &Formatter{
		code:    c,
		symbol:  symbol,
		printer: message.NewPrinter(language.AmericanEnglish),
	}
}

// CurrencyCode returns the configured ISO 4217 code
func (f *Formatter) CurrencyCode() valueobject.Currency {
	return f.code
}

// CurrencySymbol returns the configured display symbol
func (f *Formatter) CurrencySymbol() string {
	return f.symbol
}

// FormatPrice renders value with two decimals and en-US grouping, e.g.
// "1,234.50", prefixed by "<symbol> " when includeSymbol is set.
// Values that are not finite numbers render as zero.
func (f *Formatter) FormatPrice(value any, includeSymbol bool) string {
	formatted := f.group(valueobject.ParseAmount(value).Round(displayPlaces))
	if includeSymbol {
		return f.symbol + " " + formatted
	}
	return formatted
}

// FormatMoney renders m with the currency symbol
func (f *Formatter) FormatMoney(m valueobject.Money) string {
	return f.FormatPrice(m.Amount(), true)
}

// FormatPriceForMeta renders the shortest plain decimal for value, without
// grouping or symbol. Used in page metadata and structured data.
func (f *Formatter) FormatPriceForMeta(value any) string {
	return valueobject.ParseAmount(value).String()
}

func (f *Formatter) group(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	fixed := d.StringFixed(displayPlaces)
	intPart, frac, _ := strings.Cut(fixed, ".")
	if d.LessThan(maxGroupedInt) {
		intPart = f.printer.Sprintf("%d", d.IntPart())
	}
	return sign + intPart + "." + frac
}
