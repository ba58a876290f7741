package normalize

import (
	"strings"

	"github.com/agentstation/ledgermap/pkg/constants"
)

// Phone keeps only the digits of s and returns its trailing digits as the
// comparable key: the last nine when at least nine digits are present,
// otherwise all eight. Fewer than eight digits yield "".
//
// Trailing digits are used because exports disagree on country code, area
// code and the mobile "9" prefix.
func Phone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) >= constants.PhoneKeyDigits:
		return digits[len(digits)-constants.PhoneKeyDigits:]
	case len(digits) >= constants.MinPhoneDigits:
		return digits
	default:
		return ""
	}
}
