// Package consolidate merges the independent store runs into one canonical
// dataset, builds the audit report and writes the output files.
package consolidate

import (
	"time"

	"github.com/agentstation/ledgermap/pkg/authority"
	"github.com/agentstation/ledgermap/pkg/constraints"
	"github.com/agentstation/ledgermap/pkg/dedup"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/idmap"
	"github.com/agentstation/ledgermap/pkg/provenance"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/resolver"
	"github.com/agentstation/ledgermap/pkg/types"
)

// StoreResult is everything one store run produced. A run that failed
// carries Err and contributes nothing but its failure to the dataset.
type StoreResult struct {
	Store    types.StoreID
	Rows     map[types.ResourceType]int // rows read per kind
	Duration time.Duration
	Err      error

	Resolution *resolver.Result
	Sales      []*records.Sale

	Dedup   dedup.Stats
	Screen  constraints.Outcome
	Enforce constraints.Outcome

	// Extraction problems, by row and by drop reason.
	Issues  []records.Issue
	Dropped map[string]int
}

// Failed reports whether the run aborted.
func (r *StoreResult) Failed() bool {
	return r.Err != nil
}

// Dataset is the canonical output of a pipeline run.
type Dataset struct {
	Customers  []*records.Entity
	Sales      []*records.Sale
	Review     []records.ReviewItem
	Provenance provenance.Map
	Report     *Report

	// Snapshot is the ID map to persist: the previous snapshot updated
	// with the decisions of every successful store.
	Snapshot *idmap.Snapshot
}

// Consolidator merges store results.
type Consolidator struct {
	authorities authority.Authority
	clock       func() time.Time
	dryRun      bool
}

// Option configures a Consolidator.
type Option func(*Consolidator) error

// WithAuthorities sets the field authorities used when two stores changed
// the same canonical entity.
func WithAuthorities(a authority.Authority) Option {
	return func(c *Consolidator) error {
		if a == nil {
			return errors.NewValidationError("authorities", nil, "cannot be nil")
		}
		c.authorities = a
		return nil
	}
}

// WithClock sets the time source of the report timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Consolidator) error {
		if now == nil {
			return errors.NewValidationError("clock", nil, "cannot be nil")
		}
		c.clock = now
		return nil
	}
}

// WithDryRun marks the report as produced by a run that persists nothing.
func WithDryRun(dryRun bool) Option {
	return func(c *Consolidator) error {
		c.dryRun = dryRun
		return nil
	}
}

// New creates a consolidator.
func New(opts ...Option) (*Consolidator, error) {
	c := &Consolidator{
		authorities: authority.New(),
		clock:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Consolidate merges results, in the given order, on top of previous.
// previous is not modified.
func (c *Consolidator) Consolidate(previous *idmap.Snapshot, results []*StoreResult) *Dataset {
	if previous == nil {
		previous = idmap.NewSnapshot()
	}
	next := previous.Clone()

	index := make(map[string]*records.Entity, len(next.Entities))
	for _, e := range next.Entities {
		index[e.UUID] = e
	}
	known := len(next.Entities)

	ds := &Dataset{Provenance: make(provenance.Map)}
	for _, r := range results {
		if r.Failed() || r.Resolution == nil {
			continue
		}
		res := r.Resolution
		for _, e := range res.Entities {
			if dst, ok := index[e.UUID]; ok {
				c.merge(dst, e)
				continue
			}
			clone := e.Clone()
			index[clone.UUID] = clone
			next.Entities = append(next.Entities, clone)
		}
		for _, a := range res.Assignments {
			next.Assignments[a.Key] = a
		}
		for k, v := range res.Cursors {
			if v > next.Cursors[k] {
				next.Cursors[k] = v
			}
		}
		for k, v := range res.Provenance {
			ds.Provenance[k] = append(ds.Provenance[k], v...)
		}
		ds.Review = append(ds.Review, res.Review...)
		ds.Sales = append(ds.Sales, r.Sales...)
	}

	ds.Customers = next.Entities
	ds.Snapshot = next
	ds.Report = c.report(results, ds, len(next.Entities)-known)
	return ds
}

// merge folds a store's copy of an entity into the canonical one. Lineage
// and legacy ids are unioned; an attribute changes only when the store's
// source for it outranks the current one.
func (c *Consolidator) merge(dst, src *records.Entity) {
	for _, l := range src.Lineage {
		dst.AddLineage(l)
	}
	for _, id := range src.LegacyIDs {
		dst.AddLegacyID(id)
	}
	for _, a := range attributes {
		c.mergeAttribute(dst, src, a)
	}
}

type attribute struct {
	field string
	get   func(*records.Entity) string
	copy  func(dst, src *records.Entity)
}

var attributes = []attribute{
	{
		field: authority.FieldName,
		get:   func(e *records.Entity) string { return e.Name },
		copy:  func(dst, src *records.Entity) { dst.Name = src.Name },
	},
	{
		field: authority.FieldEmail,
		get:   func(e *records.Entity) string { return e.Email },
		copy:  func(dst, src *records.Entity) { dst.Email = src.Email },
	},
	{
		field: authority.FieldPhone,
		get:   func(e *records.Entity) string { return e.Phone },
		copy:  func(dst, src *records.Entity) { dst.Phone = src.Phone },
	},
	{
		field: authority.FieldBirthdate,
		get: func(e *records.Entity) string {
			if !e.HasBirthdate() {
				return ""
			}
			return e.Birthdate.Format(time.DateOnly)
		},
		copy: func(dst, src *records.Entity) { dst.Birthdate = src.Birthdate },
	},
}

func (c *Consolidator) mergeAttribute(dst, src *records.Entity, a attribute) {
	value, current := a.get(src), a.get(dst)
	if value == "" || value == current {
		return
	}
	owner := fieldOwner(src, a.field)
	if current != "" && !c.authorities.Prefer(a.field, types.ResourceTypeCustomer, owner, fieldOwner(dst, a.field)) {
		return
	}
	a.copy(dst, src)
	if dst.FieldSources == nil {
		dst.FieldSources = make(map[string]types.SourceID)
	}
	dst.FieldSources[a.field] = owner
}

func fieldOwner(e *records.Entity, field string) types.SourceID {
	if s, ok := e.FieldSources[field]; ok && s != "" {
		return s
	}
	return e.Source
}
