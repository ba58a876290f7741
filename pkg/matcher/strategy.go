package matcher

import (
	"regexp"
	"strings"

	"github.com/agentstation/ledgermap/pkg/constants"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Strategy finds candidate entities for a record by one heuristic.
type Strategy interface {
	// Method names the strategy in lineage and reports
	Method() types.MatchMethod

	// Tier is the confidence of a unique candidate
	Tier() types.Tier

	// Match returns every candidate, without duplicates, in pool order
	Match(rec *records.Customer, pool *Pool) []*records.Entity
}

// baseStrategy provides common strategy functionality.
type baseStrategy struct {
	method types.MatchMethod
	tier   types.Tier
}

// Method returns the match method.
func (s *baseStrategy) Method() types.MatchMethod {
	return s.method
}

// Tier returns the confidence tier.
func (s *baseStrategy) Tier() types.Tier {
	return s.tier
}

// embeddedIDPattern finds references such as "ID VIXEN: 00123" in free text.
var embeddedIDPattern = regexp.MustCompile(`(?i)\bID\s+([A-Z]+)\s*:?\s*(\d+)`)

// EmbeddedIDStrategy follows legacy identifiers: references written in the
// notes and the record's own export id.
type EmbeddedIDStrategy struct {
	baseStrategy
}

// NewEmbeddedIDStrategy creates the EMBEDDED_ID strategy.
func NewEmbeddedIDStrategy() Strategy {
	return &EmbeddedIDStrategy{baseStrategy{method: types.MethodEmbeddedID, tier: types.TierHigh}}
}

// Match looks every referenced identifier up in the legacy-id index.
func (s *EmbeddedIDStrategy) Match(rec *records.Customer, pool *Pool) []*records.Entity {
	var set candidateSet
	for _, id := range EmbeddedIDs(rec.Notes) {
		set.add(pool.ByLegacyID(id)...)
	}
	if rec.LegacyID != "" {
		set.add(pool.ByLegacyID(rec.LegacyID)...)
	}
	return set.list
}

// EmbeddedIDs extracts "<SYSTEM>:<number>" identifiers referenced in text.
func EmbeddedIDs(text string) []string {
	var ids []string
	for _, m := range embeddedIDPattern.FindAllStringSubmatch(text, -1) {
		if id := records.LegacyID(m[1], m[2]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// EmailStrategy compares matchable e-mails.
type EmailStrategy struct {
	baseStrategy
}

// NewEmailStrategy creates the EMAIL strategy.
func NewEmailStrategy() Strategy {
	return &EmailStrategy{baseStrategy{method: types.MethodEmail, tier: types.TierHigh}}
}

// Match returns entities sharing the record's e-mail.
func (s *EmailStrategy) Match(rec *records.Customer, pool *Pool) []*records.Entity {
	if !rec.Email.Matchable {
		return nil
	}
	return pool.ByEmail(rec.Email.Address)
}

// PhoneStrategy compares phone keys.
type PhoneStrategy struct {
	baseStrategy
}

// NewPhoneStrategy creates the PHONE strategy.
func NewPhoneStrategy() Strategy {
	return &PhoneStrategy{baseStrategy{method: types.MethodPhone, tier: types.TierMedium}}
}

// Match returns entities sharing the record's phone key.
func (s *PhoneStrategy) Match(rec *records.Customer, pool *Pool) []*records.Entity {
	if rec.Phone == "" {
		return nil
	}
	return pool.ByPhone(rec.Phone)
}

// NameBirthdateStrategy requires the first two name tokens inside the
// entity name and the same birthdate.
type NameBirthdateStrategy struct {
	baseStrategy
}

// NewNameBirthdateStrategy creates the NAME_BIRTHDATE strategy.
func NewNameBirthdateStrategy() Strategy {
	return &NameBirthdateStrategy{baseStrategy{method: types.MethodNameBirthdate, tier: types.TierMedium}}
}

// Match scans the pool for name and birthdate agreement.
func (s *NameBirthdateStrategy) Match(rec *records.Customer, pool *Pool) []*records.Entity {
	if !rec.HasBirth || len(rec.Tokens) < 2 {
		return nil
	}
	return scanBirthdate(rec, pool, strings.Join(rec.FirstTokens(2), " "))
}

// LastNameBirthdateStrategy requires the last name token inside the entity
// name and the same birthdate.
type LastNameBirthdateStrategy struct {
	baseStrategy
}

// NewLastNameBirthdateStrategy creates the LASTNAME_BIRTHDATE strategy.
func NewLastNameBirthdateStrategy() Strategy {
	return &LastNameBirthdateStrategy{baseStrategy{method: types.MethodLastNameBirthdate, tier: types.TierMedium}}
}

// Match scans the pool for last name and birthdate agreement.
func (s *LastNameBirthdateStrategy) Match(rec *records.Customer, pool *Pool) []*records.Entity {
	if !rec.HasBirth || len(rec.Tokens) < 2 {
		return nil
	}
	return scanBirthdate(rec, pool, rec.LastToken())
}

func scanBirthdate(rec *records.Customer, pool *Pool, needle string) []*records.Entity {
	var set candidateSet
	pool.Scan(func(e *records.Entity, nameKey string) bool {
		if e.HasBirthdate() && e.Birthdate.Equal(rec.Birthdate) && strings.Contains(nameKey, needle) {
			set.add(e)
		}
		return true
	})
	return set.list
}

// TokenContainmentStrategy accepts any long name token found inside an
// entity name. It gives up once the candidate count passes the cap.
type TokenContainmentStrategy struct {
	baseStrategy
	minLength     int
	maxCandidates int
}

// NewTokenContainmentStrategy creates the TOKEN_CONTAINMENT strategy.
func NewTokenContainmentStrategy() Strategy {
	return &TokenContainmentStrategy{
		baseStrategy: baseStrategy{method: types.MethodTokenContainment, tier: types.TierLow},
		minLength:     constants.MinTokenLength,
		maxCandidates: constants.TokenCandidateCap,
	}
}

// Match returns entities containing any qualifying token, or nothing when
// there are more than the cap.
func (s *TokenContainmentStrategy) Match(rec *records.Customer, pool *Pool) []*records.Entity {
	var tokens []string
	for _, t := range rec.Tokens {
		if len([]rune(t)) >= s.minLength {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	var set candidateSet
	overflow := false
	pool.Scan(func(e *records.Entity, nameKey string) bool {
		for _, t := range tokens {
			if strings.Contains(nameKey, t) {
				set.add(e)
				break
			}
		}
		if len(set.list) > s.maxCandidates {
			overflow = true
			return false
		}
		return true
	})
	if overflow {
		return nil
	}
	return set.list
}

// candidateSet keeps entities unique by UUID in first-seen order.
type candidateSet struct {
	seen map[string]struct{}
	list []*records.Entity
}

func (c *candidateSet) add(entities ...*records.Entity) {
	if c.seen == nil {
		c.seen = make(map[string]struct{})
	}
	for _, e := range entities {
		if _, ok := c.seen[e.UUID]; ok {
			continue
		}
		c.seen[e.UUID] = struct{}{}
		c.list = append(c.list, e)
	}
}
