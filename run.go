package ledgermap

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/ledgermap/pkg/consolidate"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/ingest"
	"github.com/agentstation/ledgermap/pkg/logging"
	"github.com/agentstation/ledgermap/pkg/matcher"
	"github.com/agentstation/ledgermap/pkg/types"
)

// RunOptions controls a single run.
type RunOptions struct {
	DryRun     bool                // compute everything, write nothing
	OutputDir  string              // where the canonical files go; empty writes none
	Strategies []types.MatchMethod // matcher subset, empty means all
	Inputs     []ingest.Input      // added to the configured inputs
	Timeout    time.Duration       // zero means no timeout
	FailFast   bool                // cancel remaining stores after the first failure
}

// RunOption is a function that configures RunOptions.
type RunOption func(*RunOptions)

// NewRunOptions applies opts to the defaults.
func NewRunOptions(opts ...RunOption) *RunOptions {
	o := &RunOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks the run options.
func (o *RunOptions) Validate() error {
	if o.Timeout < 0 {
		return errors.NewValidationError("timeout", o.Timeout, "timeout must be non-negative")
	}
	for _, in := range o.Inputs {
		if err := in.Validate(); err != nil {
			return err
		}
	}
	if _, err := matcher.Select(o.Strategies); err != nil {
		return err
	}
	return nil
}

// WithDryRun configures whether outputs and the ID map are written.
func WithDryRun(dryRun bool) RunOption {
	return func(o *RunOptions) {
		o.DryRun = dryRun
	}
}

// WithOutputDir sets the output directory.
func WithOutputDir(dir string) RunOption {
	return func(o *RunOptions) {
		o.OutputDir = dir
	}
}

// WithStrategies restricts matching to the named strategies.
func WithStrategies(methods ...types.MatchMethod) RunOption {
	return func(o *RunOptions) {
		o.Strategies = methods
	}
}

// WithInputs adds input files to the configured ones.
func WithInputs(inputs ...ingest.Input) RunOption {
	return func(o *RunOptions) {
		o.Inputs = append(o.Inputs, inputs...)
	}
}

// WithTimeout bounds the whole run.
func WithTimeout(d time.Duration) RunOption {
	return func(o *RunOptions) {
		o.Timeout = d
	}
}

// WithFailFast configures whether the first store failure cancels the others.
func WithFailFast(enabled bool) RunOption {
	return func(o *RunOptions) {
		o.FailFast = enabled
	}
}

// Result is the outcome of a run.
type Result struct {
	Dataset   *consolidate.Dataset
	Stores    []*consolidate.StoreResult // in processing order
	DryRun    bool
	OutputDir string // empty when nothing was written
	Persisted bool   // the ID map was saved
}

// Report returns the audit report of the run.
func (r *Result) Report() *consolidate.Report {
	if r == nil || r.Dataset == nil {
		return nil
	}
	return r.Dataset.Report
}

// StoreError reports a failed store run.
type StoreError struct {
	Store types.StoreID
	Err   error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Store, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Run processes every store. Store failures do not stop the other stores:
// the result holds the dataset of the successful ones and the returned error
// joins a *StoreError per failed store. Outputs and the ID map are written
// once, after all stores finished, unless the run is a dry run.
func (p *pipeline) Run(ctx context.Context, opts ...RunOption) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ro := NewRunOptions(opts...)
	if err := ro.Validate(); err != nil {
		return nil, err
	}
	if ro.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ro.Timeout)
		defer cancel()
	}

	inputs := append(slices.Clone(p.cfg.Inputs), ro.Inputs...)
	if len(inputs) == 0 {
		return nil, errors.NewValidationError("inputs", nil, "no input files configured")
	}
	plan := planStores(inputs)

	strategies, err := matcher.Select(ro.Strategies)
	if err != nil {
		return nil, err
	}
	m := matcher.New(strategies...)

	previous, err := p.options.idmap.Load(ctx)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().
		Int("stores", len(plan)).
		Int("inputs", len(inputs)).
		Int("known_customers", len(previous.Entities)).
		Bool("dry_run", ro.DryRun).
		Msg("Starting reconciliation")

	workers := p.options.workers
	if workers == 0 {
		workers = p.cfg.Workers
	}

	results := make([]*consolidate.StoreResult, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, sp := range plan {
		g.Go(func() error {
			r := p.runStore(gctx, sp, m, previous)
			results[i] = r
			if r.Failed() && ro.FailFast {
				return r.Err
			}
			return nil
		})
	}
	// Failures are carried by the results; the group error only cancels.
	_ = g.Wait()

	c, err := consolidate.New(
		consolidate.WithAuthorities(p.authorities),
		consolidate.WithClock(p.options.clock),
		consolidate.WithDryRun(ro.DryRun),
	)
	if err != nil {
		return nil, err
	}
	ds := c.Consolidate(previous, results)
	if p.options.metrics != nil {
		p.options.metrics.Observe(ds.Report)
	}

	result := &Result{Dataset: ds, Stores: results, DryRun: ro.DryRun}
	if ro.DryRun {
		logging.Ctx(ctx).Info().Bool("dry_run", true).Msg("Dry run completed - nothing written")
	} else if err := p.persist(ctx, result, ro.OutputDir); err != nil {
		return result, err
	}

	var failures []error
	for _, r := range results {
		if r.Failed() {
			failures = append(failures, &StoreError{Store: r.Store, Err: r.Err})
		}
	}
	logging.Ctx(ctx).Info().
		Int("customers", ds.Report.Customers).
		Int("sales", ds.Report.Sales).
		Float64("coverage_pct", ds.Report.Coverage).
		Int("review", ds.Report.Review).
		Int("failed_stores", len(failures)).
		Msg("Reconciliation finished")
	return result, errors.Join(failures...)
}
