package records

import (
	"slices"
	"time"

	"github.com/agentstation/ledgermap/pkg/normalize"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Lineage records one source record that resolved to an entity and how.
type Lineage struct {
	SourceSystem   types.SourceID    `json:"source_system" yaml:"source_system"`
	Store          types.StoreID     `json:"store_id" yaml:"store_id"`
	SourceRecordID string            `json:"source_record_id" yaml:"source_record_id"`
	MatchMethod    types.MatchMethod `json:"match_method" yaml:"match_method"`
	Confidence     types.Tier        `json:"confidence" yaml:"confidence"`
}

// Key identifies the source record of a lineage entry.
func (l Lineage) Key() AssignmentKey {
	return AssignmentKey{Source: l.SourceSystem, Store: l.Store, RecordID: l.SourceRecordID}
}

// AssignmentKey identifies one source record across runs.
type AssignmentKey struct {
	Source   types.SourceID
	Store    types.StoreID
	RecordID string
}

// String renders the key as "SOURCE/STORE/record".
func (k AssignmentKey) String() string {
	return string(k.Source) + "/" + string(k.Store) + "/" + k.RecordID
}

// Entity is a canonical customer. UUID never changes once assigned.
type Entity struct {
	UUID string `json:"id"`

	// Origin of the identity: the record that minted it (or, for entities
	// created by earlier runs, the one that minted it then).
	Source types.SourceID    `json:"source_system"`
	Store  types.StoreID     `json:"store_id"`
	Method types.MatchMethod `json:"match_method"`
	Tier   types.Tier        `json:"confidence_tier"`

	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Birthdate time.Time `json:"birthdate,omitempty"`
	LegacyIDs []string  `json:"legacy_ids,omitempty"`

	// FieldSources names the source that provided each canonical attribute.
	FieldSources map[string]types.SourceID `json:"field_sources,omitempty"`

	Lineage []Lineage `json:"lineage"`
}

// NameKey returns the normalized token form of the entity name.
func (e *Entity) NameKey() string {
	return normalize.NameKey(e.Name)
}

// HasBirthdate reports whether the birthdate is known.
func (e *Entity) HasBirthdate() bool {
	return !e.Birthdate.IsZero()
}

// AddLegacyID records a legacy id once.
func (e *Entity) AddLegacyID(id string) {
	if id == "" || slices.Contains(e.LegacyIDs, id) {
		return
	}
	e.LegacyIDs = append(e.LegacyIDs, id)
}

// AddLineage appends l unless the same source record is already present.
func (e *Entity) AddLineage(l Lineage) bool {
	for _, existing := range e.Lineage {
		if existing.Key() == l.Key() {
			return false
		}
	}
	e.Lineage = append(e.Lineage, l)
	return true
}

// Clone returns a deep copy so store runs never share mutable entities.
func (e *Entity) Clone() *Entity {
	c := *e
	c.LegacyIDs = slices.Clone(e.LegacyIDs)
	c.Lineage = slices.Clone(e.Lineage)
	if e.FieldSources != nil {
		c.FieldSources = make(map[string]types.SourceID, len(e.FieldSources))
		for k, v := range e.FieldSources {
			c.FieldSources[k] = v
		}
	}
	return &c
}
