package consolidate

import (
	"fmt"
	"math"
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/ledgermap/pkg/dedup"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Store statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// TierNoneLabel stands for minted identities in tier counts.
const TierNoneLabel = "NONE"

// Report is the audit trail of a run. It is always produced, even when
// every store failed, so no failure goes unnoticed.
type Report struct {
	GeneratedAt utc.Time `yaml:"generated_at" json:"generated_at"`
	DryRun      bool     `yaml:"dry_run" json:"dry_run"`

	Customers    int     `yaml:"customers" json:"customers"`
	NewCustomers int     `yaml:"new_customers" json:"new_customers"`
	Sales        int     `yaml:"sales" json:"sales"`
	LinkedSales  int     `yaml:"linked_sales" json:"linked_sales"`
	Coverage     float64 `yaml:"coverage_pct" json:"coverage_pct"` // share of sales with a customer, in percent

	Methods map[types.MatchMethod]int `yaml:"match_methods" json:"match_methods"`       // record resolutions per method
	Tiers   map[string]int            `yaml:"confidence_tiers" json:"confidence_tiers"` // linked sales per tier
	Errors  map[string]int            `yaml:"errors" json:"errors"`                     // issues per category
	Dropped map[string]int            `yaml:"dropped" json:"dropped"`                   // removed rows and sales per reason
	Review  int                       `yaml:"review_queue" json:"review_queue"`

	Stores []StoreReport `yaml:"stores" json:"stores"`
}

// StoreReport details one store run.
type StoreReport struct {
	Store      types.StoreID              `yaml:"store_id" json:"store_id"`
	Status     string                     `yaml:"status" json:"status"`
	Error      string                     `yaml:"error,omitempty" json:"error,omitempty"`
	DurationMs int64                      `yaml:"duration_ms" json:"duration_ms"`
	Rows       map[types.ResourceType]int `yaml:"rows,omitempty" json:"rows,omitempty"`
	Customers  int                        `yaml:"customers" json:"customers"`
	Sales      int                        `yaml:"sales" json:"sales"`
	Linked     int                        `yaml:"linked_sales" json:"linked_sales"`
	Coverage   float64                    `yaml:"coverage_pct" json:"coverage_pct"`
	Replayed   int                        `yaml:"replayed" json:"replayed"`
	Adjusted   int                        `yaml:"adjusted" json:"adjusted"`
	Zeroed     int                        `yaml:"zeroed_totals" json:"zeroed_totals"`
	Dedup      dedup.Stats                `yaml:"dedup" json:"dedup"`
	Methods    map[types.MatchMethod]int  `yaml:"match_methods,omitempty" json:"match_methods,omitempty"`
	Dropped    map[string]int             `yaml:"dropped,omitempty" json:"dropped,omitempty"`
	Issues     []records.Issue            `yaml:"issues,omitempty" json:"issues,omitempty"`
}

// Success reports whether every store completed.
func (r *Report) Success() bool {
	return len(r.FailedStores()) == 0
}

// FailedStores lists the stores whose run aborted.
func (r *Report) FailedStores() []types.StoreID {
	var out []types.StoreID
	for _, s := range r.Stores {
		if s.Status == StatusFailed {
			out = append(out, s.Store)
		}
	}
	return out
}

func (c *Consolidator) report(results []*StoreResult, ds *Dataset, minted int) *Report {
	rep := &Report{
		GeneratedAt:  utc.Time{Time: c.clock().UTC()},
		DryRun:       c.dryRun,
		Customers:    len(ds.Customers),
		NewCustomers: minted,
		Sales:        len(ds.Sales),
		Methods:      make(map[types.MatchMethod]int),
		Tiers:        make(map[string]int),
		Errors: map[string]int{
			records.CategoryMalformed: 0,
			records.CategoryAmbiguous: 0,
			records.CategoryAdjusted:  0,
			records.CategoryDropped:   0,
		},
		Dropped: make(map[string]int),
		Review:  len(ds.Review),
	}

	for _, s := range ds.Sales {
		if s.CustomerID == "" {
			continue
		}
		rep.LinkedSales++
		rep.Tiers[tierLabel(s.CustomerTier)]++
	}
	rep.Coverage = coverage(rep.LinkedSales, rep.Sales)
	rep.Errors[records.CategoryAmbiguous] = len(ds.Review)

	for _, r := range results {
		sr := StoreReport{
			Store:      r.Store,
			Status:     StatusOK,
			DurationMs: r.Duration.Milliseconds(),
			Rows:       r.Rows,
			Dedup:      r.Dedup,
			Adjusted:   r.Enforce.Adjusted,
			Zeroed:     r.Enforce.Zeroed,
			Dropped:    make(map[string]int),
		}
		if r.Failed() {
			sr.Status = StatusFailed
			sr.Error = r.Err.Error()
			sr.Dropped = nil
			rep.Stores = append(rep.Stores, sr)
			continue
		}

		for _, counts := range []map[string]int{r.Dropped, r.Screen.Dropped, r.Enforce.Dropped} {
			for reason, n := range counts {
				sr.Dropped[reason] += n
				rep.Dropped[reason] += n
			}
		}
		sr.Issues = append(sr.Issues, r.Issues...)
		sr.Issues = append(sr.Issues, r.Screen.Issues...)
		sr.Issues = append(sr.Issues, r.Enforce.Issues...)
		for _, is := range sr.Issues {
			rep.Errors[is.Category]++
		}

		sr.Sales = len(r.Sales)
		linked := 0
		for _, s := range r.Sales {
			if s.CustomerID != "" {
				linked++
			}
		}
		sr.Linked = linked
		sr.Coverage = coverage(linked, sr.Sales)

		if res := r.Resolution; res != nil {
			sr.Customers = len(res.Entities)
			sr.Replayed = res.Replayed
			sr.Methods = res.Methods
			for m, n := range res.Methods {
				rep.Methods[m] += n
			}
		}
		rep.Stores = append(rep.Stores, sr)
	}
	return rep
}

func tierLabel(t types.Tier) string {
	if t == types.TierNone {
		return TierNoneLabel
	}
	return string(t)
}

func coverage(linked, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(linked)*10000/float64(total)) / 100
}

// String renders a short human summary. Per-method, per-category and
// per-store breakdowns are left to the CLI's table output.
func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Customers: %d (%d new)\n", r.Customers, r.NewCustomers)
	fmt.Fprintf(&sb, "Sales: %d, %d linked to a customer (%.2f%%)\n", r.Sales, r.LinkedSales, r.Coverage)
	if r.Review > 0 {
		fmt.Fprintf(&sb, "Review queue: %d\n", r.Review)
	}
	for _, s := range r.Stores {
		if s.Status == StatusFailed {
			fmt.Fprintf(&sb, "Store %s FAILED: %s\n", s.Store, s.Error)
		}
	}
	return sb.String()
}
