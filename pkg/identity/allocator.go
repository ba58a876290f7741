package identity

import (
	"fmt"

	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Allocator hands out the next identity numbers of one store. Cursors hold
// the last value allocated per partition; zero means none yet.
type Allocator struct {
	set     *Set
	store   types.StoreID
	cursors map[Key]int64
}

// NewAllocator starts allocating for store from previously persisted cursors.
func NewAllocator(set *Set, store types.StoreID, cursors map[Key]int64) *Allocator {
	a := &Allocator{set: set, store: store, cursors: make(map[Key]int64)}
	for k, v := range cursors {
		if k.Store == store {
			a.cursors[k] = v
		}
	}
	return a
}

// Next returns the next free number of the (source, store) partition.
func (a *Allocator) Next(source types.SourceID) (int64, error) {
	p, ok := a.set.Get(source, a.store)
	if !ok {
		return 0, errors.NewConfigError("partitions", fmt.Sprintf("no ID partition for %s/%s", source, a.store), nil)
	}
	next := a.cursors[p.Key()] + 1
	if next < p.Start {
		next = p.Start
	}
	if next > p.End {
		return 0, fmt.Errorf("%w: %s", errors.ErrPartitionExhausted, p)
	}
	a.cursors[p.Key()] = next
	return next, nil
}

// Cursors returns the cursors of the store's partitions.
func (a *Allocator) Cursors() map[Key]int64 {
	out := make(map[Key]int64, len(a.cursors))
	for k, v := range a.cursors {
		out[k] = v
	}
	return out
}
