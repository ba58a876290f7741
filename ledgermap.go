// Package ledgermap reconciles legacy customer and sales exports into one
// canonical dataset with stable customer identities.
//
// A run reads the configured input files, resolves every customer-bearing
// record to a canonical customer, collapses repeated sale rows, enforces the
// sale invariants and writes the canonical files with an audit report. Each
// store is processed independently and deterministically; stores run in
// parallel. Identity decisions are kept in an ID map so that a second run
// over the same exports assigns the same UUIDs.
//
// Example usage:
//
//	cfg, err := config.Load("ledgermap.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, err := idmap.OpenSQLite(ctx, cfg.IDMap)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	p, err := ledgermap.New(cfg, ledgermap.WithIDMap(store))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p.OnStoreFinished(func(r *consolidate.StoreResult) {
//	    log.Printf("store %s: %d sales", r.Store, len(r.Sales))
//	})
//
//	result, err := p.Run(ctx, ledgermap.WithOutputDir("out"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(result.Report())
package ledgermap

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/agentstation/ledgermap/pkg/authority"
	"github.com/agentstation/ledgermap/pkg/config"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/identity"
	"github.com/agentstation/ledgermap/pkg/ingest"
	"github.com/agentstation/ledgermap/pkg/schema"
)

// Pipeline reconciles the configured exports.
type Pipeline interface {
	// Run processes every store and writes the canonical output
	Run(ctx context.Context, opts ...RunOption) (*Result, error)

	// OnStoreStarted registers a callback for when a store run begins
	OnStoreStarted(StoreStartedHook)

	// OnStoreFinished registers a callback for when a store run ends
	OnStoreFinished(StoreFinishedHook)

	// OnReviewQueued registers a callback for every record left for review
	OnReviewQueued(ReviewQueuedHook)
}

// Compile-time interface check to ensure proper implementation.
var _ Pipeline = (*pipeline)(nil)

// pipeline holds what every run shares. It is read-only once built.
type pipeline struct {
	cfg         *config.Pipeline
	options     *options
	hooks       *hooks
	extractor   *ingest.Extractor
	partitions  *identity.Set
	authorities authority.Authority
	namespace   uuid.UUID
}

// New validates cfg and prepares a pipeline.
func New(cfg *config.Pipeline, opts ...Option) (Pipeline, error) {
	if cfg == nil {
		return nil, errors.NewValidationError("config", nil, "cannot be nil")
	}
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, fmt.Errorf("applying options: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	table, err := cfg.Table()
	if err != nil {
		return nil, err
	}
	adapter, err := schema.NewAdapter(table)
	if err != nil {
		return nil, err
	}
	extractor, err := ingest.NewExtractor(adapter, cfg.ExtractOptions()...)
	if err != nil {
		return nil, err
	}
	partitions, err := cfg.PartitionSet()
	if err != nil {
		return nil, err
	}
	ns, err := cfg.NamespaceUUID()
	if err != nil {
		return nil, errors.NewConfigError("namespace", err.Error(), err)
	}

	return &pipeline{
		cfg:         cfg,
		options:     o,
		hooks:       newHooks(),
		extractor:   extractor,
		partitions:  partitions,
		authorities: cfg.Authority(),
		namespace:   ns,
	}, nil
}
