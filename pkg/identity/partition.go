// Package identity manages the numeric ID partitions that seed new canonical
// identities. Each (source system, store) pair owns an exclusive, inclusive
// range; ranges are validated once at startup and never overlap, so parallel
// store runs allocate without coordination.
package identity

import (
	"fmt"
	"sort"

	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Key identifies the owner of a partition.
type Key struct {
	Source types.SourceID
	Store  types.StoreID
}

// String renders the key as SOURCE/STORE.
func (k Key) String() string {
	return string(k.Source) + "/" + string(k.Store)
}

// Partition is an inclusive range of identity numbers.
type Partition struct {
	Source types.SourceID `yaml:"source"`
	Store  types.StoreID  `yaml:"store"`
	Start  int64          `yaml:"start"`
	End    int64          `yaml:"end"`
}

// Key returns the owner of the partition.
func (p Partition) Key() Key {
	return Key{Source: p.Source, Store: p.Store}
}

// Size returns how many values the partition holds.
func (p Partition) Size() int64 {
	return p.End - p.Start + 1
}

// Contains reports whether n falls inside the partition.
func (p Partition) Contains(n int64) bool {
	return n >= p.Start && n <= p.End
}

// Overlaps reports whether two partitions share a value.
func (p Partition) Overlaps(o Partition) bool {
	return p.Start <= o.End && o.Start <= p.End
}

// String renders the partition for messages.
func (p Partition) String() string {
	return fmt.Sprintf("%s[%d..%d]", p.Key(), p.Start, p.End)
}

// Validate checks a single partition.
func (p Partition) Validate() error {
	switch {
	case p.Source == "":
		return errors.NewValidationError("source", p.Source, "partition source is required")
	case p.Store == "":
		return errors.NewValidationError("store", p.Store, "partition store is required")
	case p.Start < 1:
		return errors.NewValidationError("start", p.Start, "partition start must be positive")
	case p.End < p.Start:
		return errors.NewValidationError("end", p.End, fmt.Sprintf("partition end is before start %d", p.Start))
	}
	return nil
}

// Set is a validated collection of disjoint partitions. It is read-only after
// construction and safe to share across store runs.
type Set struct {
	byKey map[Key]Partition
	list  []Partition // sorted by Start
}

// NewSet validates partitions and builds a set. Invalid ranges, duplicate
// owners and overlapping ranges are configuration errors.
func NewSet(partitions ...Partition) (*Set, error) {
	s := &Set{byKey: make(map[Key]Partition, len(partitions))}
	for _, p := range partitions {
		if err := p.Validate(); err != nil {
			return nil, errors.NewConfigError("partitions", fmt.Sprintf("%s: %v", p, err), err)
		}
		if _, dup := s.byKey[p.Key()]; dup {
			return nil, errors.NewConfigError("partitions", fmt.Sprintf("duplicate partition for %s", p.Key()), nil)
		}
		s.byKey[p.Key()] = p
		s.list = append(s.list, p)
	}
	sort.Slice(s.list, func(i, j int) bool { return s.list[i].Start < s.list[j].Start })
	for i := 1; i < len(s.list); i++ {
		if s.list[i-1].Overlaps(s.list[i]) {
			return nil, errors.NewConfigError("partitions",
				fmt.Sprintf("partition %s overlaps %s", s.list[i-1], s.list[i]), nil)
		}
	}
	return s, nil
}

// Get returns the partition owned by (source, store).
func (s *Set) Get(source types.SourceID, store types.StoreID) (Partition, bool) {
	p, ok := s.byKey[Key{Source: source, Store: store}]
	return p, ok
}

// List returns the partitions ordered by start.
func (s *Set) List() []Partition {
	return append([]Partition(nil), s.list...)
}

// Require checks that store has a partition for every source. It runs before
// the first record of a store is resolved.
func (s *Set) Require(store types.StoreID, sources []types.SourceID) error {
	for _, src := range sources {
		if _, ok := s.Get(src, store); !ok {
			return errors.NewConfigError("partitions", fmt.Sprintf("no ID partition for %s/%s", src, store), nil)
		}
	}
	return nil
}
