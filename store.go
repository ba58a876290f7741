package ledgermap

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/agentstation/ledgermap/pkg/consolidate"
	"github.com/agentstation/ledgermap/pkg/constraints"
	"github.com/agentstation/ledgermap/pkg/dedup"
	"github.com/agentstation/ledgermap/pkg/idmap"
	"github.com/agentstation/ledgermap/pkg/ingest"
	"github.com/agentstation/ledgermap/pkg/logging"
	"github.com/agentstation/ledgermap/pkg/matcher"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/resolver"
	"github.com/agentstation/ledgermap/pkg/types"
)

// storePlan lists the work of one store in processing order.
type storePlan struct {
	store   types.StoreID
	sources []types.SourceID // authority order
	inputs  []ingest.Input
}

// planStores groups inputs by store. Stores are sorted by ID. Within a
// store, inputs of more authoritative sources come first, customer files
// before sale files, then file order. The order fixes which record mints an
// identity, so it must not depend on scheduling.
func planStores(inputs []ingest.Input) []storePlan {
	byStore := make(map[types.StoreID][]ingest.Input)
	var stores []types.StoreID
	for _, in := range inputs {
		if _, ok := byStore[in.Store]; !ok {
			stores = append(stores, in.Store)
		}
		byStore[in.Store] = append(byStore[in.Store], in)
	}
	slices.Sort(stores)

	plan := make([]storePlan, 0, len(stores))
	for _, store := range stores {
		ins := byStore[store]
		sort.SliceStable(ins, func(i, j int) bool {
			ri, rj := sourceRank(ins[i].Source), sourceRank(ins[j].Source)
			if ri != rj {
				return ri < rj
			}
			if ins[i].Source != ins[j].Source {
				return ins[i].Source < ins[j].Source
			}
			return kindRank(ins[i].Kind) < kindRank(ins[j].Kind)
		})
		sp := storePlan{store: store, inputs: ins}
		for _, in := range ins {
			if !slices.Contains(sp.sources, in.Source) {
				sp.sources = append(sp.sources, in.Source)
			}
		}
		plan = append(plan, sp)
	}
	return plan
}

func sourceRank(id types.SourceID) int {
	if i := slices.Index(types.SourceIDs(), id); i >= 0 {
		return i
	}
	return len(types.SourceIDs())
}

func kindRank(kind types.ResourceType) int {
	if kind == types.ResourceTypeCustomer {
		return 0
	}
	return 1
}

// runStore processes one store. It never returns an error: failures are
// recorded on the result so the other stores carry on.
func (p *pipeline) runStore(ctx context.Context, sp storePlan, m *matcher.Matcher, previous *idmap.Snapshot) *consolidate.StoreResult {
	start := time.Now()
	ctx = logging.WithStore(ctx, string(sp.store))
	res := &consolidate.StoreResult{
		Store:   sp.store,
		Rows:    make(map[types.ResourceType]int),
		Dropped: make(map[string]int),
	}

	p.hooks.storeStarted(sp.store)
	logging.Ctx(ctx).Debug().Int("inputs", len(sp.inputs)).Msg("Store run started")

	res.Err = p.processStore(ctx, sp, m, previous, res)
	res.Duration = time.Since(start)

	if res.Failed() {
		logging.Ctx(ctx).Error().Err(res.Err).Msg("Store run failed")
	} else {
		logging.Ctx(ctx).Info().
			Int("customer_rows", res.Rows[types.ResourceTypeCustomer]).
			Int("sale_rows", res.Rows[types.ResourceTypeSale]).
			Int("sales", len(res.Sales)).
			Int("review", len(res.Resolution.Review)).
			Dur("duration", res.Duration).
			Msg("Store run finished")
	}
	p.hooks.storeFinished(res)
	return res
}

func (p *pipeline) processStore(ctx context.Context, sp storePlan, m *matcher.Matcher, previous *idmap.Snapshot, res *consolidate.StoreResult) error {
	r, err := resolver.New(sp.store, p.partitions, sp.sources,
		resolver.WithMatcher(m),
		resolver.WithAuthorities(p.authorities),
		resolver.WithNamespace(p.namespace),
		resolver.WithSnapshot(previous),
		resolver.WithProvenance(p.options.provenance),
	)
	if err != nil {
		return err
	}

	// Every input is read before the first record is matched.
	var customers []*records.Customer
	var rows []*records.SaleRow
	for _, in := range sp.inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		ictx := logging.WithSource(ctx, string(in.Source))
		f, err := ingest.ReadFile(ictx, in, p.cfg.Format(in.Source))
		if err != nil {
			return err
		}
		res.Rows[in.Kind] += len(f.Rows)

		x, err := p.extractor.Extract(f)
		if err != nil {
			return err
		}
		customers = append(customers, x.Customers...)
		rows = append(rows, x.Sales...)
		res.Issues = append(res.Issues, x.Issues...)
		for reason, n := range x.Dropped {
			res.Dropped[reason] += n
		}
	}

	ctx = logging.WithOperation(ctx, "resolve")
	for _, c := range customers {
		if _, err := r.Resolve(ctx, c); err != nil {
			return err
		}
	}

	v := constraints.New(sp.store)
	rows, res.Screen = v.Screen(rows)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.ResolveSales(ctx, rows); err != nil {
		return err
	}

	d, err := dedup.New(dedup.WithNamespace(p.namespace))
	if err != nil {
		return err
	}
	sales, stats := d.Dedup(rows)
	res.Dedup = stats

	sales, res.Enforce, err = v.Enforce(sales)
	if err != nil {
		return err
	}
	res.Sales = sales
	res.Resolution = r.Result()
	return nil
}
