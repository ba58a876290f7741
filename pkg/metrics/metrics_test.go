package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ledgermap/pkg/consolidate"
	"github.com/agentstation/ledgermap/pkg/metrics"
	"github.com/agentstation/ledgermap/pkg/types"
)

func sampleReport() *consolidate.Report {
	return &consolidate.Report{
		Customers: 3,
		Review:    1,
		Methods:   map[types.MatchMethod]int{types.MethodEmail: 2, types.MethodNew: 1},
		Errors:    map[string]int{"malformed": 1, "adjusted": 0},
		Dropped:   map[string]int{"no_customer_marker": 2},
		Stores: []consolidate.StoreReport{
			{
				Store:      "S1",
				Status:     consolidate.StatusOK,
				DurationMs: 1500,
				Rows:       map[types.ResourceType]int{types.ResourceTypeCustomer: 4, types.ResourceTypeSale: 6},
				Sales:      4,
				Linked:     3,
				Coverage:   75,
			},
			{Store: "S2", Status: consolidate.StatusFailed, Error: "boom"},
		},
	}
}

func TestObserve(t *testing.T) {
	r := metrics.NewRegistry()
	r.Observe(sampleReport())

	assert.Equal(t, 3.0, testutil.ToFloat64(r.Customers))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ReviewQueue))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Resolutions.WithLabelValues("EMAIL")))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.Rows.WithLabelValues("S1", "sale")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.Sales.WithLabelValues("S1", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Sales.WithLabelValues("S1", "false")))
	assert.Equal(t, 0.75, testutil.ToFloat64(r.Coverage.WithLabelValues("S1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.StoreRuns.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Dropped.WithLabelValues("no_customer_marker")))

	// Failed stores report no per-store series.
	assert.Equal(t, 1, testutil.CollectAndCount(r.Coverage))
	r.Observe(nil)
}

func TestWriteTextfile(t *testing.T) {
	r := metrics.NewRegistry()
	r.Observe(sampleReport())

	path := filepath.Join(t.TempDir(), "ledgermap.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "ledgermap_customers 3"))
	assert.True(t, strings.Contains(text, `ledgermap_resolutions_total{method="EMAIL"} 2`))
}

func TestWriteTextfileBadPath(t *testing.T) {
	r := metrics.NewRegistry()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
