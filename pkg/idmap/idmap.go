// Package idmap persists identity decisions between runs: canonical
// entities, the assignment of every source record to an entity, and the
// allocation cursor of every ID partition. Replaying stored assignments is
// what makes UUIDs stable across runs.
package idmap

import (
	"context"
	"sort"

	"github.com/agentstation/ledgermap/pkg/identity"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Assignment is the identity decision taken for one source record.
type Assignment struct {
	Key    records.AssignmentKey
	UUID   string
	Method types.MatchMethod
	Tier   types.Tier
}

// Snapshot is the full content of an ID map. Store runs treat it as
// read-only; the pipeline builds a new snapshot once every store finished.
type Snapshot struct {
	Entities    []*records.Entity // creation order
	Assignments map[records.AssignmentKey]Assignment
	Cursors     map[identity.Key]int64
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Assignments: make(map[records.AssignmentKey]Assignment),
		Cursors:     make(map[identity.Key]int64),
	}
}

// Assignment returns the stored decision for key.
func (s *Snapshot) Assignment(key records.AssignmentKey) (Assignment, bool) {
	a, ok := s.Assignments[key]
	return a, ok
}

// Entity returns the entity with the given UUID.
func (s *Snapshot) Entity(uuid string) (*records.Entity, bool) {
	for _, e := range s.Entities {
		if e.UUID == uuid {
			return e, true
		}
	}
	return nil, false
}

// SortedAssignments returns the assignments ordered by key.
func (s *Snapshot) SortedAssignments() []Assignment {
	out := make([]Assignment, 0, len(s.Assignments))
	for _, a := range s.Assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.String() < out[j].Key.String()
	})
	return out
}

// Clone deep-copies the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	c := NewSnapshot()
	c.Entities = make([]*records.Entity, len(s.Entities))
	for i, e := range s.Entities {
		c.Entities[i] = e.Clone()
	}
	for k, v := range s.Assignments {
		c.Assignments[k] = v
	}
	for k, v := range s.Cursors {
		c.Cursors[k] = v
	}
	return c
}

// Store loads and saves snapshots.
type Store interface {
	// Load returns the stored snapshot, empty when nothing was saved yet
	Load(ctx context.Context) (*Snapshot, error)

	// Save replaces the stored snapshot
	Save(ctx context.Context, snapshot *Snapshot) error

	// Close releases resources
	Close() error
}
