package grid

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DateLayout renders date cells.
const DateLayout = "2006-01-02"

var numberFormatRe = regexp.MustCompile(`^\{0:(?:([nN])(\d*)|([cC]))\}$`)

// Formatter renders cell values for display using a column's Format.
type Formatter struct {
	printer *message.Printer
	loc     *time.Location
}

// NewFormatter returns a Formatter for tag. Dates are shown in loc.
func NewFormatter(tag language.Tag, loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.Local
	}
	return &Formatter{printer: message.NewPrinter(tag), loc: loc}
}

// FormatValue renders v for col. Numbers honour {0:nN}, {0:n} (two
// decimals), {0:n0} and {0:c}; without a format they print as is.
func (f *Formatter) FormatValue(col Column, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return f.formatNumber(col.Format, x)
	case time.Time:
		return x.In(f.loc).Format(DateLayout)
	case bool:
		return strconv.FormatBool(x)
	}
	return toString(v)
}

func (f *Formatter) formatNumber(format string, x float64) string {
	m := numberFormatRe.FindStringSubmatch(format)
	if m == nil {
		return strconv.FormatFloat(x, 'f', -1, 64)
	}

	decimals := 2
	if m[2] != "" {
		n, err := strconv.Atoi(m[2])
		if err == nil {
			decimals = n
		}
	}

	x = roundHalfAway(x, decimals)
	if m[3] != "" {
		return f.printer.Sprint(currency.Symbol(currency.USD.Amount(x)))
	}
	return f.printer.Sprint(number.Decimal(x, number.Scale(decimals)))
}

// roundHalfAway rounds x to decimals places with halves away from zero.
// x/text alone would round them to even.
func roundHalfAway(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	r := math.Round(x*p) / p
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return x
	}
	return r
}
