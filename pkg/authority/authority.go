// Package authority decides which source system is trusted for each
// canonical customer attribute when several exports disagree.
package authority

import (
	"path/filepath"

	"github.com/agentstation/ledgermap/pkg/types"
)

// Canonical attribute names.
const (
	FieldName      = "name"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldBirthdate = "birthdate"
)

// Authority determines which source is authoritative for each field
type Authority interface {
	// Find returns the highest priority authority for a field of a resource type
	Find(field string, resourceType types.ResourceType) *Field

	// List returns all authorities for a resource type
	List(resourceType types.ResourceType) []Field

	// Priority returns how much source is trusted for field, zero when unlisted
	Priority(field string, resourceType types.ResourceType, source types.SourceID) int

	// Prefer reports whether a value from candidate should replace one from current
	Prefer(field string, resourceType types.ResourceType, candidate, current types.SourceID) bool
}

// Field defines source priority for a specific field
type Field struct {
	Path     string         `json:"path" yaml:"path"`         // e.g., "email", "*"
	Source   types.SourceID `json:"source" yaml:"source"`     // Which source is authoritative
	Priority int            `json:"priority" yaml:"priority"` // Priority (higher = more authoritative)
}

// authorities provides standard field authorities
type authorities struct {
	customerAuthorities []Field
}

// New creates an Authority with the default customer priorities followed by
// extra entries, which win ties by being more specific or higher.
func New(extra ...Field) Authority {
	return &authorities{
		customerAuthorities: append(defaultCustomerAuthorities(), extra...),
	}
}

// Find returns the authority configuration for a specific field
func (da *authorities) Find(field string, resourceType types.ResourceType) *Field {
	return ByField(field, da.List(resourceType))
}

// List returns all authorities for a resource type
func (da *authorities) List(resourceType types.ResourceType) []Field {
	switch resourceType {
	case types.ResourceTypeCustomer:
		return da.customerAuthorities
	default:
		return nil
	}
}

// Priority returns the best priority of source for field.
func (da *authorities) Priority(field string, resourceType types.ResourceType, source types.SourceID) int {
	best := ByField(field, FilterAuthoritiesBySource(da.List(resourceType), source))
	if best == nil {
		return 0
	}
	return best.Priority
}

// Prefer reports whether candidate strictly outranks current for field.
func (da *authorities) Prefer(field string, resourceType types.ResourceType, candidate, current types.SourceID) bool {
	if current == "" {
		return true
	}
	return da.Priority(field, resourceType, candidate) > da.Priority(field, resourceType, current)
}

// ByField returns the highest priority authority for a given field path
func ByField(fieldPath string, authorities []Field) *Field {
	var bestMatch *Field
	var bestPriority int
	var bestMatchLength int

	for i, auth := range authorities {
		if MatchesPattern(fieldPath, auth.Path) {
			// Prioritize by: 1) priority, 2) pattern specificity (length), 3) order
			patternLength := len(auth.Path)
			if auth.Priority > bestPriority ||
				(auth.Priority == bestPriority && patternLength > bestMatchLength) {
				bestMatch = &authorities[i]
				bestPriority = auth.Priority
				bestMatchLength = patternLength
			}
		}
	}

	return bestMatch
}

// MatchesPattern checks if a field path matches a pattern (supports * wildcards)
func MatchesPattern(fieldPath, pattern string) bool {
	if fieldPath == pattern {
		return true
	}

	if len(pattern) > 0 && pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(fieldPath) >= len(prefix) && fieldPath[:len(prefix)] == prefix
	}

	matched, err := filepath.Match(pattern, fieldPath)
	if err != nil {
		return false
	}
	return matched
}

// FilterAuthoritiesBySource returns only the authorities for a specific source
func FilterAuthoritiesBySource(authorities []Field, source types.SourceID) []Field {
	var filtered []Field
	for _, auth := range authorities {
		if auth.Source == source {
			filtered = append(filtered, auth)
		}
	}
	return filtered
}

// defaultCustomerAuthorities returns the default field authorities for customers
func defaultCustomerAuthorities() []Field {
	return []Field{
		// VIXEN is the customer registry; its names and birthdates were typed at the counter
		{Path: FieldName, Source: types.VixenID, Priority: 100},
		{Path: FieldName, Source: types.OSSID, Priority: 80},
		{Path: FieldName, Source: types.CXSID, Priority: 50},

		{Path: FieldBirthdate, Source: types.VixenID, Priority: 100},
		{Path: FieldBirthdate, Source: types.OSSID, Priority: 85},

		{Path: FieldEmail, Source: types.VixenID, Priority: 100},
		{Path: FieldEmail, Source: types.OSSID, Priority: 90},

		// Service orders are newer than the registry, so their phones are more current
		{Path: FieldPhone, Source: types.OSSID, Priority: 95},
		{Path: FieldPhone, Source: types.VixenID, Priority: 90},
		{Path: FieldPhone, Source: types.CXSID, Priority: 40},

		// Fallback by overall source authority
		{Path: "*", Source: types.VixenID, Priority: 30},
		{Path: "*", Source: types.OSSID, Priority: 20},
		{Path: "*", Source: types.CXSID, Priority: 10},
	}
}
