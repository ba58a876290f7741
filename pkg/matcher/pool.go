// Package matcher links a normalized customer record to an existing canonical
// entity. Strategies are tried in a fixed priority order and the first one
// that yields exactly one candidate wins.
package matcher

import (
	"github.com/agentstation/ledgermap/pkg/records"
)

// poolEntry caches what strategies compare against.
type poolEntry struct {
	entity  *records.Entity
	nameKey string
	keys    entryKeys
}

type entryKeys struct {
	legacy []string
	email  string
	phone  string
}

// Pool is the set of canonical entities a store run matches against. It is
// owned by a single store run and is not safe for concurrent mutation.
type Pool struct {
	entries []*poolEntry
	byUUID  map[string]*poolEntry
	legacy  map[string][]*poolEntry
	email   map[string][]*poolEntry
	phone   map[string][]*poolEntry
}

// NewPool indexes entities in the given order.
func NewPool(entities ...*records.Entity) *Pool {
	p := &Pool{
		byUUID: make(map[string]*poolEntry, len(entities)),
		legacy: make(map[string][]*poolEntry),
		email:  make(map[string][]*poolEntry),
		phone:  make(map[string][]*poolEntry),
	}
	for _, e := range entities {
		p.Add(e)
	}
	return p
}

// Clone deep-copies the pool and its entities.
func (p *Pool) Clone() *Pool {
	entities := make([]*records.Entity, len(p.entries))
	for i, entry := range p.entries {
		entities[i] = entry.entity.Clone()
	}
	return NewPool(entities...)
}

// Len returns the number of entities.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Entities returns the entities in insertion order.
func (p *Pool) Entities() []*records.Entity {
	out := make([]*records.Entity, len(p.entries))
	for i, entry := range p.entries {
		out[i] = entry.entity
	}
	return out
}

// Get returns the entity with the given UUID.
func (p *Pool) Get(uuid string) (*records.Entity, bool) {
	entry, ok := p.byUUID[uuid]
	if !ok {
		return nil, false
	}
	return entry.entity, true
}

// Add inserts e, or re-indexes it when an entity with the same UUID is
// already present. Call it again after changing an entity's attributes.
func (p *Pool) Add(e *records.Entity) {
	if entry, ok := p.byUUID[e.UUID]; ok {
		p.unindex(entry)
		entry.entity = e
		p.index(entry)
		return
	}
	entry := &poolEntry{entity: e}
	p.entries = append(p.entries, entry)
	p.byUUID[e.UUID] = entry
	p.index(entry)
}

func (p *Pool) index(entry *poolEntry) {
	e := entry.entity
	entry.nameKey = e.NameKey()
	entry.keys = entryKeys{
		legacy: append([]string(nil), e.LegacyIDs...),
		email:  e.Email,
		phone:  e.Phone,
	}
	for _, id := range entry.keys.legacy {
		p.legacy[id] = append(p.legacy[id], entry)
	}
	if entry.keys.email != "" {
		p.email[entry.keys.email] = append(p.email[entry.keys.email], entry)
	}
	if entry.keys.phone != "" {
		p.phone[entry.keys.phone] = append(p.phone[entry.keys.phone], entry)
	}
}

func (p *Pool) unindex(entry *poolEntry) {
	for _, id := range entry.keys.legacy {
		p.legacy[id] = without(p.legacy[id], entry)
	}
	if entry.keys.email != "" {
		p.email[entry.keys.email] = without(p.email[entry.keys.email], entry)
	}
	if entry.keys.phone != "" {
		p.phone[entry.keys.phone] = without(p.phone[entry.keys.phone], entry)
	}
}

func without(list []*poolEntry, entry *poolEntry) []*poolEntry {
	out := list[:0]
	for _, e := range list {
		if e != entry {
			out = append(out, e)
		}
	}
	return out
}

// ByLegacyID returns entities carrying the "<SYSTEM>:<number>" identifier.
func (p *Pool) ByLegacyID(id string) []*records.Entity {
	return entities(p.legacy[id])
}

// ByEmail returns entities with the given normalized e-mail.
func (p *Pool) ByEmail(address string) []*records.Entity {
	return entities(p.email[address])
}

// ByPhone returns entities with the given phone key.
func (p *Pool) ByPhone(key string) []*records.Entity {
	return entities(p.phone[key])
}

// Scan calls fn for every entity in insertion order with its name key.
// Returning false stops the scan.
func (p *Pool) Scan(fn func(e *records.Entity, nameKey string) bool) {
	for _, entry := range p.entries {
		if !fn(entry.entity, entry.nameKey) {
			return
		}
	}
}

func entities(list []*poolEntry) []*records.Entity {
	if len(list) == 0 {
		return nil
	}
	out := make([]*records.Entity, len(list))
	for i, entry := range list {
		out[i] = entry.entity
	}
	return out
}
