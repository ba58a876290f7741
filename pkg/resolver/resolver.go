// Package resolver assigns a canonical identity to every customer-bearing
// record of one store. Decisions follow a fixed order: replay of a decision
// stored in the ID map, a matcher candidate, an identity minted earlier in
// the run for the same name, and finally a freshly minted identity.
package resolver

import (
	"context"
	"time"

	"github.com/agentstation/ledgermap/pkg/authority"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/identity"
	"github.com/agentstation/ledgermap/pkg/idmap"
	"github.com/agentstation/ledgermap/pkg/logging"
	"github.com/agentstation/ledgermap/pkg/matcher"
	"github.com/agentstation/ledgermap/pkg/provenance"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Decision is the identity given to one record.
type Decision struct {
	UUID   string
	Method types.MatchMethod
	Tier   types.Tier
}

// Resolved reports whether the record obtained an identity.
func (d Decision) Resolved() bool {
	return d.UUID != ""
}

// Resolver is owned by a single store run and is not safe for concurrent use.
type Resolver struct {
	store   types.StoreID
	opts    *options
	pool    *matcher.Pool
	alloc   *identity.Allocator
	tracker provenance.Tracker

	inRun    map[string]*records.Entity // normalize.Text(full name) -> entity minted this run
	assigned map[records.AssignmentKey]Decision
	reviewed map[records.AssignmentKey]bool

	touched     []*records.Entity
	touchedSet  map[string]bool
	assignments []idmap.Assignment
	review      []records.ReviewItem
	counts      map[types.MatchMethod]int
	replayed    int
}

// New creates the resolver of store. Every source in sources must own a
// partition for store; the check runs before the first record.
func New(store types.StoreID, partitions *identity.Set, sources []types.SourceID, opts ...Option) (*Resolver, error) {
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	if partitions == nil {
		return nil, errors.NewConfigError("resolver", "no ID partitions configured", nil)
	}
	if err := partitions.Require(store, sources); err != nil {
		return nil, err
	}

	// Each store works on its own copy of the canonical entities.
	entities := make([]*records.Entity, len(o.snapshot.Entities))
	for i, e := range o.snapshot.Entities {
		entities[i] = e.Clone()
	}

	return &Resolver{
		store:      store,
		opts:       o,
		pool:       matcher.NewPool(entities...),
		alloc:      identity.NewAllocator(partitions, store, o.snapshot.Cursors),
		tracker:    provenance.NewTracker(o.tracking),
		inRun:      make(map[string]*records.Entity),
		assigned:   make(map[records.AssignmentKey]Decision),
		reviewed:   make(map[records.AssignmentKey]bool),
		touchedSet: make(map[string]bool),
		counts:     make(map[types.MatchMethod]int),
	}, nil
}

// Resolve assigns an identity to rec. Ambiguous records get no identity and
// are queued for review; the returned error is then nil. Errors are fatal
// for the store: no partition left, or a partition missing for the source.
func (r *Resolver) Resolve(ctx context.Context, rec *records.Customer) (Decision, error) {
	key := records.AssignmentKey{Source: rec.Source, Store: rec.Store, RecordID: rec.SourceRecordID}

	if d, ok := r.assigned[key]; ok {
		if e, found := r.pool.Get(d.UUID); found {
			r.absorb(e, rec, d)
		}
		r.counts[d.Method]++
		return d, nil
	}

	if a, ok := r.opts.snapshot.Assignment(key); ok {
		if e, found := r.pool.Get(a.UUID); found {
			d := Decision{UUID: a.UUID, Method: a.Method, Tier: a.Tier}
			if d.Method == types.MethodNew {
				r.rememberName(rec, e)
			}
			r.replayed++
			return r.accept(key, e, rec, d), nil
		}
		logging.Ctx(ctx).Warn().
			Str("record", key.String()).
			Str("uuid", a.UUID).
			Msg("Stored assignment points to an unknown entity, resolving again")
	}

	outcome, err := r.opts.matcher.Match(rec, r.pool)
	if err != nil {
		if !errors.IsAmbiguous(err) {
			return Decision{}, err
		}
		if !r.reviewed[key] {
			r.reviewed[key] = true
			r.queue(rec, err)
		}
		logging.Ctx(ctx).Debug().Str("row", rec.RowID).Err(err).Msg("Ambiguous match queued for review")
		return Decision{}, nil
	}
	if c := outcome.Candidate; c != nil {
		return r.accept(key, c.Entity, rec, Decision{UUID: c.Entity.UUID, Method: c.Method, Tier: c.Tier}), nil
	}

	if rec.NameText != "" {
		if e, ok := r.inRun[rec.NameText]; ok {
			return r.accept(key, e, rec, Decision{UUID: e.UUID, Method: types.MethodInRunName, Tier: types.TierLow}), nil
		}
	}

	n, err := r.alloc.Next(rec.Source)
	if err != nil {
		return Decision{}, err
	}
	e := &records.Entity{
		UUID:   identity.CustomerUUID(r.opts.namespace, rec.Source, r.store, n),
		Source: rec.Source,
		Store:  r.store,
		Method: types.MethodNew,
		Tier:   types.TierNone,
	}
	r.pool.Add(e)
	r.rememberName(rec, e)
	return r.accept(key, e, rec, Decision{UUID: e.UUID, Method: types.MethodNew, Tier: types.TierNone}), nil
}

// ResolveSales resolves the customer of every sale row that carries one and
// records the decision on the row.
func (r *Resolver) ResolveSales(ctx context.Context, rows []*records.SaleRow) error {
	for _, row := range rows {
		if row.Customer == nil || row.NoCustomer {
			continue
		}
		d, err := r.Resolve(ctx, row.Customer)
		if err != nil {
			return err
		}
		row.CustomerID, row.CustomerMethod, row.CustomerTier = d.UUID, d.Method, d.Tier
	}
	return nil
}

func (r *Resolver) rememberName(rec *records.Customer, e *records.Entity) {
	if rec.NameText == "" {
		return
	}
	if _, ok := r.inRun[rec.NameText]; !ok {
		r.inRun[rec.NameText] = e
	}
}

func (r *Resolver) accept(key records.AssignmentKey, e *records.Entity, rec *records.Customer, d Decision) Decision {
	r.absorb(e, rec, d)
	r.assigned[key] = d
	r.assignments = append(r.assignments, idmap.Assignment{Key: key, UUID: d.UUID, Method: d.Method, Tier: d.Tier})
	r.counts[d.Method]++
	return d
}

// absorb links rec to e: lineage, legacy id and attribute merge.
func (r *Resolver) absorb(e *records.Entity, rec *records.Customer, d Decision) {
	e.AddLineage(records.Lineage{
		SourceSystem:   rec.Source,
		Store:          rec.Store,
		SourceRecordID: rec.SourceRecordID,
		MatchMethod:    d.Method,
		Confidence:     d.Tier,
	})
	e.AddLegacyID(rec.LegacyID)

	if rec.NameText != "" {
		r.mergeField(e, rec, authority.FieldName, rec.Name, func() string { return e.Name }, func(v string) { e.Name = v })
	}
	if rec.Email.Matchable {
		r.mergeField(e, rec, authority.FieldEmail, rec.Email.Address, func() string { return e.Email }, func(v string) { e.Email = v })
	}
	if rec.Phone != "" {
		r.mergeField(e, rec, authority.FieldPhone, rec.Phone, func() string { return e.Phone }, func(v string) { e.Phone = v })
	}
	if rec.HasBirth {
		current := func() string {
			if !e.HasBirthdate() {
				return ""
			}
			return e.Birthdate.Format(time.DateOnly)
		}
		r.mergeField(e, rec, authority.FieldBirthdate, rec.Birthdate.Format(time.DateOnly), current, func(string) { e.Birthdate = rec.Birthdate })
	}

	r.pool.Add(e)
	if !r.touchedSet[e.UUID] {
		r.touchedSet[e.UUID] = true
		r.touched = append(r.touched, e)
	}
}

// mergeField fills an empty attribute, or replaces it when rec's source is
// more authoritative for the field than the source that set it.
func (r *Resolver) mergeField(e *records.Entity, rec *records.Customer, field, value string, get func() string, set func(string)) {
	current := get()
	if current == value {
		return
	}
	if e.FieldSources == nil {
		e.FieldSources = make(map[string]types.SourceID)
	}
	prov := provenance.Provenance{
		Source:   rec.Source,
		Store:    rec.Store,
		RecordID: rec.SourceRecordID,
		Value:    value,
		Priority: r.opts.authorities.Priority(field, types.ResourceTypeCustomer, rec.Source),
	}
	owner := e.FieldSources[field]
	if owner == "" {
		owner = e.Source
	}
	if current == "" || (owner != "" && r.opts.authorities.Prefer(field, types.ResourceTypeCustomer, rec.Source, owner)) {
		set(value)
		e.FieldSources[field] = rec.Source
		prov.Applied = true
		if current != "" {
			prov.PreviousValue = current
			prov.Reason = "more authoritative source"
		}
	} else {
		prov.Reason = "kept existing value"
		if owner != "" {
			prov.Reason = "kept value from " + string(owner)
		}
	}
	r.tracker.Track(types.ResourceTypeCustomer, e.UUID, field, prov)
}

func (r *Resolver) queue(rec *records.Customer, err error) {
	item := records.ReviewItem{
		RowID:    rec.RowID,
		Source:   rec.Source,
		Store:    rec.Store,
		RecordID: rec.SourceRecordID,
		Name:     rec.Name,
		Reason:   err.Error(),
	}
	var amb *errors.AmbiguousMatchError
	if errors.As(err, &amb) {
		item.Strategy = amb.Strategy
		item.Candidates = amb.Candidates
	}
	r.review = append(r.review, item)
}

// Result is what a store run contributes to the ID map and the report.
type Result struct {
	Store       types.StoreID
	Entities    []*records.Entity // entities linked or created by the run, first-touch order
	Assignments []idmap.Assignment
	Cursors     map[identity.Key]int64
	Review      []records.ReviewItem
	Provenance  provenance.Map
	Methods     map[types.MatchMethod]int // resolutions per method, repeats included
	Replayed    int
}

// Result returns the run's contribution.
func (r *Resolver) Result() *Result {
	methods := make(map[types.MatchMethod]int, len(r.counts))
	for k, v := range r.counts {
		methods[k] = v
	}
	return &Result{
		Store:       r.store,
		Entities:    append([]*records.Entity(nil), r.touched...),
		Assignments: append([]idmap.Assignment(nil), r.assignments...),
		Cursors:     r.alloc.Cursors(),
		Review:      append([]records.ReviewItem(nil), r.review...),
		Provenance:  r.tracker.Map(),
		Methods:     methods,
		Replayed:    r.replayed,
	}
}
