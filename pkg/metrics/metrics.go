// Package metrics exposes run counters as Prometheus metrics. A batch run
// has no scrape endpoint, so the registry is written to a node-exporter
// textfile at the end of the run.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/ledgermap/pkg/consolidate"
	"github.com/agentstation/ledgermap/pkg/errors"
)

const namespace = "ledgermap"

// Registry holds the run metrics.
type Registry struct {
	reg *prometheus.Registry

	Rows         *prometheus.CounterVec
	Resolutions  *prometheus.CounterVec
	Sales        *prometheus.CounterVec
	Issues       *prometheus.CounterVec
	Dropped      *prometheus.CounterVec
	ReviewQueue  prometheus.Gauge
	Coverage     *prometheus.GaugeVec
	StoreRuns    *prometheus.CounterVec
	StoreSeconds prometheus.Histogram
	Customers    prometheus.Gauge
}

// NewRegistry creates a registry with every metric registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Input rows read, per store and record kind.",
		}, []string{"store", "kind"}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Customer records resolved, per match method.",
		}, []string{"method"}),
		Sales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_total",
			Help:      "Consolidated sales, per store and whether a customer is linked.",
		}, []string{"store", "linked"}),
		Issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "issues_total",
			Help:      "Record issues, per category.",
		}, []string{"category"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_total",
			Help:      "Rows and sales removed, per reason.",
		}, []string{"reason"}),
		ReviewQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "review_queue_size",
			Help:      "Records waiting for manual review.",
		}),
		Coverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sale_coverage_ratio",
			Help:      "Share of sales linked to a customer, per store.",
		}, []string{"store"}),
		StoreRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_runs_total",
			Help:      "Store runs, per status.",
		}, []string{"status"}),
		StoreSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_run_seconds",
			Help:      "Duration of store runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		Customers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "customers",
			Help:      "Canonical customers after the run.",
		}),
	}
	r.reg.MustRegister(r.Rows, r.Resolutions, r.Sales, r.Issues, r.Dropped,
		r.ReviewQueue, r.Coverage, r.StoreRuns, r.StoreSeconds, r.Customers)
	return r
}

// Gatherer returns the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Observe records a finished run.
func (r *Registry) Observe(rep *consolidate.Report) {
	if rep == nil {
		return
	}
	r.Customers.Set(float64(rep.Customers))
	r.ReviewQueue.Set(float64(rep.Review))
	for m, n := range rep.Methods {
		r.Resolutions.WithLabelValues(string(m)).Add(float64(n))
	}
	for c, n := range rep.Errors {
		r.Issues.WithLabelValues(c).Add(float64(n))
	}
	for reason, n := range rep.Dropped {
		r.Dropped.WithLabelValues(reason).Add(float64(n))
	}
	for _, s := range rep.Stores {
		store := string(s.Store)
		r.StoreRuns.WithLabelValues(s.Status).Inc()
		r.StoreSeconds.Observe(float64(s.DurationMs) / 1000)
		if s.Status != consolidate.StatusOK {
			continue
		}
		for kind, n := range s.Rows {
			r.Rows.WithLabelValues(store, string(kind)).Add(float64(n))
		}
		r.Sales.WithLabelValues(store, strconv.FormatBool(true)).Add(float64(s.Linked))
		r.Sales.WithLabelValues(store, strconv.FormatBool(false)).Add(float64(s.Sales - s.Linked))
		r.Coverage.WithLabelValues(store).Set(s.Coverage / 100)
	}
}

// WriteTextfile writes the registry in the text exposition format.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
