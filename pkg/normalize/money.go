package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agentstation/ledgermap/pkg/errors"
)

var plainNumber = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Money parses a monetary amount written either in Brazilian format
// ("1.234,56", "R$ 12,50") or international format ("1,234.56", "12.5").
//
// Detection rules:
//   - both separators present: the right-most one is the decimal separator;
//   - only commas: a single comma is decimal, repeated commas group thousands;
//   - only dots: repeated dots group thousands, a single dot followed by
//     exactly three digits groups thousands, any other single dot is decimal.
//
// Empty and NaN cells parse to zero without error. Anything else that cannot
// be parsed returns zero and a *errors.ParseError; it never panics.
func Money(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, nanMarker) || s == "-" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("R$", "", "$", "", " ", "", "\u00a0", "").Replace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	} else if strings.HasSuffix(s, "-") {
		negative = !negative
		s = s[:len(s)-1]
	}

	s = canonicalDecimal(s)
	if !plainNumber.MatchString(s) {
		return decimal.Zero, errors.NewValueParseError("money", raw, "not a monetary amount")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &errors.ParseError{Format: "money", Value: raw, Message: err.Error(), Err: err}
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// canonicalDecimal rewrites s so that "." is the only (decimal) separator.
func canonicalDecimal(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			return strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", ".")
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
		if lastDot > 0 && len(s)-lastDot-1 == 3 {
			return strings.Replace(s, ".", "", 1)
		}
		return s
	default:
		return s
	}
}

// MustMoney is Money for literals in tests and defaults; it panics on error.
func MustMoney(s string) decimal.Decimal {
	d, err := Money(s)
	if err != nil {
		panic(err)
	}
	return d
}
