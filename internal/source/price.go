package source

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	errEmptyPrice = errors.New("empty price text")
	isoCodeRe     = regexp.MustCompile(`\b(USD|EUR|GBP|BRL|CAD|AUD|JPY|INR|CHF|MXN|SEK|NOK|DKK|PLN)\b`)
)

// Currency symbols checked in order; multi-rune symbols first.
var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"R$", "BRL"},
	{"US$", "USD"},
	{"C$", "CAD"},
	{"A$", "AUD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"$", "USD"},
}

// ParsePrice reads a price and, when present, a currency out of free text
// such as "$1,299.00", "1.299,00 €" or "EUR 12.50".
//
// When both ',' and '.' appear, the last one is the decimal separator. A
// single separator followed by exactly three digits is a thousands
// separator; otherwise it is the decimal separator. A minus sign ahead of
// the number, before or after the currency, keeps the price negative.
func ParsePrice(text string) (decimal.Decimal, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, "", errEmptyPrice
	}

	currency := detectCurrency(text)

	start := strings.IndexFunc(text, unicode.IsDigit)
	if start < 0 {
		return decimal.Zero, currency, errEmptyPrice
	}

	var b strings.Builder
scan:
	for _, r := range text[start:] {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '\'':
			// digit grouping
		default:
			break scan
		}
	}
	num := normalizeSeparators(strings.Trim(b.String(), ".,"))
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, currency, err
	}
	if leadingMinus(text[:start]) {
		d = d.Neg()
	}
	return d, currency, nil
}

// leadingMinus reports whether prefix ends in a minus sign, skipping back
// over spaces and currency symbols or codes.
func leadingMinus(prefix string) bool {
	for prefix != "" {
		r, size := utf8.DecodeLastRuneInString(prefix)
		switch {
		case r == '-', r == '\u2212':
			return true
		case unicode.IsSpace(r), unicode.Is(unicode.Sc, r), unicode.IsUpper(r):
			prefix = prefix[:len(prefix)-size]
		default:
			return false
		}
	}
	return false
}

func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		return resolveSingle(s, ",")
	case lastDot >= 0:
		return resolveSingle(s, ".")
	default:
		return s
	}
}

func resolveSingle(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) > 2 || len(parts[len(parts)-1]) == 3 {
		return strings.Join(parts, "")
	}
	return strings.Join(parts, ".")
}

func detectCurrency(text string) string {
	if m := isoCodeRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	for _, cs := range currencySymbols {
		if strings.Contains(text, cs.symbol) {
			return cs.code
		}
	}
	return ""
}

// NormalizeCurrency upper-cases a currency code and reports whether it is a
// plausible ISO 4217 code.
func NormalizeCurrency(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return code, false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return code, false
		}
	}
	return code, true
}
