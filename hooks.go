package ledgermap

import (
	"sync"

	"github.com/agentstation/ledgermap/pkg/consolidate"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Hook function types for run events. Store hooks are called from the
// store's worker goroutine, so callbacks must be safe for concurrent use.
type (
	// StoreStartedHook is called before a store reads its inputs
	StoreStartedHook func(store types.StoreID)

	// StoreFinishedHook is called when a store run ends, failed or not
	StoreFinishedHook func(result *consolidate.StoreResult)

	// ReviewQueuedHook is called once per record left for manual review
	ReviewQueuedHook func(item records.ReviewItem)
)

// hooks manages event callbacks
type hooks struct {
	mu              sync.RWMutex
	onStoreStarted  []StoreStartedHook
	onStoreFinished []StoreFinishedHook
	onReviewQueued  []ReviewQueuedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnStoreStarted registers a callback for when a store run begins
func (p *pipeline) OnStoreStarted(fn StoreStartedHook) {
	p.hooks.mu.Lock()
	defer p.hooks.mu.Unlock()
	p.hooks.onStoreStarted = append(p.hooks.onStoreStarted, fn)
}

// OnStoreFinished registers a callback for when a store run ends
func (p *pipeline) OnStoreFinished(fn StoreFinishedHook) {
	p.hooks.mu.Lock()
	defer p.hooks.mu.Unlock()
	p.hooks.onStoreFinished = append(p.hooks.onStoreFinished, fn)
}

// OnReviewQueued registers a callback for records left for review
func (p *pipeline) OnReviewQueued(fn ReviewQueuedHook) {
	p.hooks.mu.Lock()
	defer p.hooks.mu.Unlock()
	p.hooks.onReviewQueued = append(p.hooks.onReviewQueued, fn)
}

func (h *hooks) storeStarted(store types.StoreID) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onStoreStarted {
		fn(store)
	}
}

// storeFinished also reports the store's review items.
func (h *hooks) storeFinished(result *consolidate.StoreResult) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onStoreFinished {
		fn(result)
	}
	if result.Failed() || result.Resolution == nil {
		return
	}
	for _, item := range result.Resolution.Review {
		for _, fn := range h.onReviewQueued {
			fn(item)
		}
	}
}
