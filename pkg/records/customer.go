package records

import (
	"strings"
	"time"

	"github.com/agentstation/ledgermap/pkg/normalize"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Customer is the normalized, typed view of the person a row describes. It is
// produced from customer rows and from the customer columns of sale rows.
type Customer struct {
	Source         types.SourceID
	Store          types.StoreID
	SourceRecordID string // legacy record id, or the row id when the export has none
	RowID          string

	Name      string   // display name as read, trimmed
	NameKey   string   // normalize.NameKey(Name)
	NameText  string   // normalize.Text(Name), key of the in-run dictionary
	Tokens    []string // normalize.Tokens(Name)
	Email     normalize.EmailAddress
	Phone     string // normalize.Phone key
	Birthdate time.Time
	HasBirth  bool
	Notes     string
	LegacyID  string // "<SYSTEM>:<number>" when the export carries an id

	Issues []Issue
}

// Identifiable reports whether the record carries anything a matcher or the
// in-run dictionary could use.
func (c *Customer) Identifiable() bool {
	return c.NameText != "" || c.Email.Matchable || c.Phone != "" || c.LegacyID != "" || c.Notes != ""
}

// FirstTokens returns up to n leading name tokens.
func (c *Customer) FirstTokens(n int) []string {
	if len(c.Tokens) < n {
		return c.Tokens
	}
	return c.Tokens[:n]
}

// LastToken returns the last name token, or "".
func (c *Customer) LastToken() string {
	if len(c.Tokens) == 0 {
		return ""
	}
	return c.Tokens[len(c.Tokens)-1]
}

// LegacyID renders a legacy identifier as "<SYSTEM>:<number>". Numeric ids
// lose their leading zeros so "ID VIXEN: 00123" and a VIXEN record 123 agree.
func LegacyID(system, number string) string {
	system = strings.ToUpper(strings.TrimSpace(system))
	number = strings.ToUpper(strings.TrimSpace(number))
	if system == "" || number == "" {
		return ""
	}
	if strings.Trim(number, "0123456789") == "" {
		number = strings.TrimLeft(number, "0")
		if number == "" {
			number = "0"
		}
	}
	return system + ":" + number
}
