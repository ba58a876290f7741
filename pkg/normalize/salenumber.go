package normalize

import (
	"strings"
)

// DefaultSaleNumberPrefixes are document prefixes stripped by SaleNumber.
// Other prefixes come from configuration.
var DefaultSaleNumberPrefixes = []string{"DAV"}

// SaleNumber aligns sale numbers across exports: it upper-cases s, strips
// the first matching document prefix (for example the "DAV-" of service
// documents), drops separators and, for purely numeric values, leading zeros
// and a spreadsheet ".0" suffix. A decimal value such as "12.5" is not a
// formatted integer and is kept as written.
func SaleNumber(s string, prefixes []string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == "NAN" {
		return ""
	}
	if prefixes == nil {
		prefixes = DefaultSaleNumberPrefixes
	}
	for _, p := range prefixes {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" && strings.HasPrefix(s, p) {
			s = strings.TrimLeft(s[len(p):], " -_/#")
			break
		}
	}
	if head, tail, ok := strings.Cut(s, "."); ok && isDigits(head) {
		switch {
		case strings.Trim(tail, "0") == "":
			s = head
		case isDigits(tail):
			return s
		}
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if isDigits(out) {
		out = strings.TrimLeft(out, "0")
		if out == "" {
			out = "0"
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
