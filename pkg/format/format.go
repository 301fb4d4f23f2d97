// Package format renders amounts and byte sizes for display.
package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	NotAvailable    = "N/A"
	DefaultCurrency = "VND"
	DefaultLanguage = "vi"
)

// Formatter holds the locale defaults used when a value omits them.
type Formatter struct {
	tag             language.Tag
	defaultCurrency string
	group           string
	point           string
}

func New(lang, defaultCurrency string) *Formatter {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Vietnamese
	}
	if len(defaultCurrency) != 3 {
		defaultCurrency = DefaultCurrency
	}
	group, point := separators(tag)
	return &Formatter{tag: tag, defaultCurrency: strings.ToUpper(defaultCurrency), group: group, point: point}
}

// separators reads the locale's grouping and decimal marks off a sample
// rendering so digits can be laid out without going through float64.
func separators(tag language.Tag) (group, point string) {
	sample := message.NewPrinter(tag).Sprint(number.Decimal(1234.5, number.Scale(1)))
	i := strings.Index(sample, "234")
	j := strings.LastIndex(sample, "5")
	if !strings.HasPrefix(sample, "1") || i < 1 || j < i+3 {
		return ",", "."
	}
	return sample[1:i], sample[i+3 : j]
}

// Default formats with Vietnamese grouping and VND.
func Default() *Formatter {
	return New(DefaultLanguage, DefaultCurrency)
}

// Amount formats an optional amount as currency. Absent or zero amounts
// render as N/A; an empty or unknown currency falls back to the default.
func (f *Formatter) Amount(amount *decimal.Decimal, code string) string {
	if amount == nil || amount.IsZero() {
		return NotAvailable
	}

	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		unit = currency.MustParseISO(f.defaultCurrency)
	}

	scale, _ := currency.Standard.Rounding(unit)
	symbol := message.NewPrinter(f.tag).Sprint(currency.Symbol(unit))

	return fmt.Sprintf("%s %s", f.digits(amount.StringFixed(int32(scale))), symbol)
}

// digits groups a fixed-point decimal string using the locale's marks.
func (f *Formatter) digits(fixed string) string {
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(f.group)
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString(f.point)
		b.WriteString(frac)
	}
	return b.String()
}

// Amount formats using the default formatter.
func Amount(amount *decimal.Decimal, code string) string {
	return Default().Amount(amount, code)
}

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// Size renders a byte count with binary scaling and two decimals.
func Size(bytes int64) string {
	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}
