package ledgermap

import (
	"time"

	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/idmap"
	"github.com/agentstation/ledgermap/pkg/metrics"
)

// options holds the pipeline-wide settings.
type options struct {
	idmap      idmap.Store
	workers    int // 0 uses the configuration file value
	clock      func() time.Time
	metrics    *metrics.Registry
	provenance bool
}

func defaultOptions() *options {
	return &options{
		idmap:      idmap.NewMemoryStore(),
		clock:      time.Now,
		provenance: true,
	}
}

// Option is a function that configures a Pipeline.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithIDMap sets the store holding identity decisions between runs. The
// default is an in-memory store, which forgets everything when the process
// exits.
func WithIDMap(store idmap.Store) Option {
	return func(o *options) error {
		if store == nil {
			return errors.NewValidationError("idmap", nil, "cannot be nil")
		}
		o.idmap = store
		return nil
	}
}

// WithWorkers overrides how many stores run in parallel.
func WithWorkers(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return errors.NewValidationError("workers", n, "must be at least 1")
		}
		o.workers = n
		return nil
	}
}

// WithClock sets the time source of report timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return errors.NewValidationError("clock", nil, "cannot be nil")
		}
		o.clock = now
		return nil
	}
}

// WithMetrics records every run in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(o *options) error {
		o.metrics = reg
		return nil
	}
}

// WithProvenance configures whether attribute provenance is tracked.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.provenance = enabled
		return nil
	}
}
