package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes, drops combining marks, and recomposes.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// nanMarker is what spreadsheet exports write for empty cells.
const nanMarker = "nan"

// Fold lower-cases s and strips diacritics, keeping every other character.
func Fold(s string) string {
	folded, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

// Text lower-cases s, strips diacritics and removes every character that is
// not a letter or digit. Empty and NaN cells become "".
func Text(s string) string {
	folded := Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == nanMarker {
		return ""
	}
	return out
}

// Tokens splits s on whitespace and punctuation and normalizes every token
// with Text. Empty tokens are dropped.
func Tokens(s string) []string {
	fields := strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := Text(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// NameKey joins the name tokens of s with single spaces. It is the form used
// for substring comparisons between names.
func NameKey(s string) string {
	return strings.Join(Tokens(s), " ")
}

// IsBlank reports whether s is empty once normalized.
func IsBlank(s string) bool {
	return Text(s) == ""
}
