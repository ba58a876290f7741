package types

import "strings"

// Tier classifies how trustworthy a match is.
type Tier string

// Confidence tiers, strongest first. TierNone marks identities that were
// minted rather than matched.
const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
	TierNone   Tier = ""
)

// String returns the string representation of a tier.
func (t Tier) String() string {
	return string(t)
}

// Rank orders tiers, higher is stronger.
func (t Tier) Rank() int {
	switch t {
	case TierHigh:
		return 3
	case TierMedium:
		return 2
	case TierLow:
		return 1
	default:
		return 0
	}
}

// MatchMethod names the way a record obtained its canonical identity.
type MatchMethod string

// Matching strategies in priority order, followed by the resolver fallbacks.
const (
	MethodEmbeddedID        MatchMethod = "EMBEDDED_ID"
	MethodEmail             MatchMethod = "EMAIL"
	MethodPhone             MatchMethod = "PHONE"
	MethodNameBirthdate     MatchMethod = "NAME_BIRTHDATE"
	MethodLastNameBirthdate MatchMethod = "LASTNAME_BIRTHDATE"
	MethodTokenContainment  MatchMethod = "TOKEN_CONTAINMENT"

	// MethodInRunName reuses an identity minted earlier in the same store run
	// for the same normalized full name.
	MethodInRunName MatchMethod = "IN_RUN_NAME"

	// MethodNew marks a freshly minted identity.
	MethodNew MatchMethod = "NEW"
)

// String returns the string representation of a match method.
func (m MatchMethod) String() string {
	return string(m)
}

// StrategyMethods returns the matcher strategy methods in priority order.
func StrategyMethods() []MatchMethod {
	return []MatchMethod{
		MethodEmbeddedID,
		MethodEmail,
		MethodPhone,
		MethodNameBirthdate,
		MethodLastNameBirthdate,
		MethodTokenContainment,
	}
}

// ParseMatchMethod upper-cases s and maps common separators to underscores.
func ParseMatchMethod(s string) MatchMethod {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return MatchMethod(s)
}
