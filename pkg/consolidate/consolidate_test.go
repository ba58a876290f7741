package consolidate_test

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ledgermap/pkg/consolidate"
	"github.com/agentstation/ledgermap/pkg/constants"
	"github.com/agentstation/ledgermap/pkg/constraints"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/identity"
	"github.com/agentstation/ledgermap/pkg/idmap"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/resolver"
	"github.com/agentstation/ledgermap/pkg/types"
)

var fixedTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newConsolidator(t *testing.T, opts ...consolidate.Option) *consolidate.Consolidator {
	t.Helper()
	c, err := consolidate.New(append([]consolidate.Option{consolidate.WithClock(func() time.Time { return fixedTime })}, opts...)...)
	require.NoError(t, err)
	return c
}

func lineage(src types.SourceID, store types.StoreID, id string, m types.MatchMethod, tier types.Tier) records.Lineage {
	return records.Lineage{SourceSystem: src, Store: store, SourceRecordID: id, MatchMethod: m, Confidence: tier}
}

func previousSnapshot() *idmap.Snapshot {
	snap := idmap.NewSnapshot()
	snap.Entities = []*records.Entity{{
		UUID:   "u-1",
		Source: types.OSSID,
		Store:  "S1",
		Method: types.MethodNew,
		Name:   "Joao Silva",
		Phone:  "987654321",
		FieldSources: map[string]types.SourceID{
			"name":  types.OSSID,
			"phone": types.OSSID,
		},
		Lineage: []records.Lineage{lineage(types.OSSID, "S1", "7", types.MethodNew, types.TierNone)},
	}}
	key := records.AssignmentKey{Source: types.OSSID, Store: "S1", RecordID: "7"}
	snap.Assignments[key] = idmap.Assignment{Key: key, UUID: "u-1", Method: types.MethodNew}
	snap.Cursors[identity.Key{Source: types.OSSID, Store: "S1"}] = 1
	return snap
}

func sale(store types.StoreID, number, customer string, tier types.Tier, total, down string) *records.Sale {
	s := &records.Sale{
		UUID:           "sale-" + string(store) + "-" + number,
		Source:         types.OSSID,
		Store:          store,
		SaleNumber:     number,
		CustomerID:     customer,
		CustomerMethod: types.MethodEmail,
		CustomerTier:   tier,
		Total:          decimal.RequireFromString(total),
		HasTotal:       true,
		DownPayment:    decimal.RequireFromString(down),
	}
	if s.DownPayment.IsPositive() {
		s.Payments = []records.Payment{{Method: "PIX", Amount: s.DownPayment}}
	}
	return s
}

func TestConsolidateMergesStoresByAuthority(t *testing.T) {
	prev := previousSnapshot()

	// S1 saw the customer in VIXEN, which outranks OSS for names.
	s1 := prev.Entities[0].Clone()
	s1.Name = "João da Silva"
	s1.FieldSources["name"] = types.VixenID
	s1.Email = "joao@x.com"
	s1.FieldSources["email"] = types.VixenID
	s1.AddLineage(lineage(types.VixenID, "S1", "12", types.MethodPhone, types.TierMedium))
	s1.AddLegacyID("VIXEN:12")

	// S2 saw it in CXS, which is weaker for names than VIXEN.
	s2 := prev.Entities[0].Clone()
	s2.Name = "JOAO S"
	s2.FieldSources["name"] = types.CXSID
	s2.AddLineage(lineage(types.CXSID, "S2", "40", types.MethodPhone, types.TierMedium))

	fresh := &records.Entity{UUID: "u-2", Source: types.CXSID, Store: "S2", Method: types.MethodNew, Name: "Maria"}

	results := []*consolidate.StoreResult{
		{
			Store: "S1",
			Resolution: &resolver.Result{
				Store:    "S1",
				Entities: []*records.Entity{s1},
				Assignments: []idmap.Assignment{{
					Key:  records.AssignmentKey{Source: types.VixenID, Store: "S1", RecordID: "12"},
					UUID: "u-1", Method: types.MethodPhone, Tier: types.TierMedium,
				}},
				Cursors: map[identity.Key]int64{{Source: types.OSSID, Store: "S1"}: 1},
				Methods: map[types.MatchMethod]int{types.MethodPhone: 1},
			},
			Sales: []*records.Sale{sale("S1", "1", "u-1", types.TierMedium, "10", "10")},
		},
		{
			Store: "S2",
			Resolution: &resolver.Result{
				Store:    "S2",
				Entities: []*records.Entity{s2, fresh},
				Cursors:  map[identity.Key]int64{{Source: types.CXSID, Store: "S2"}: 501},
				Methods:  map[types.MatchMethod]int{types.MethodPhone: 1, types.MethodNew: 1},
			},
			Sales: []*records.Sale{sale("S2", "9", "", types.TierNone, "5", "0")},
		},
	}

	ds := newConsolidator(t).Consolidate(prev, results)

	require.Len(t, ds.Customers, 2)
	merged := ds.Customers[0]
	assert.Equal(t, "u-1", merged.UUID)
	assert.Equal(t, "João da Silva", merged.Name)
	assert.Equal(t, "joao@x.com", merged.Email)
	assert.Equal(t, "987654321", merged.Phone)
	assert.Equal(t, types.VixenID, merged.FieldSources["name"])
	assert.Equal(t, []string{"VIXEN:12"}, merged.LegacyIDs)
	assert.Len(t, merged.Lineage, 3)
	assert.Equal(t, "u-2", ds.Customers[1].UUID)

	// The previous snapshot is left alone.
	assert.Equal(t, "Joao Silva", prev.Entities[0].Name)

	assert.Len(t, ds.Snapshot.Assignments, 2)
	assert.Equal(t, int64(1), ds.Snapshot.Cursors[identity.Key{Source: types.OSSID, Store: "S1"}])
	assert.Equal(t, int64(501), ds.Snapshot.Cursors[identity.Key{Source: types.CXSID, Store: "S2"}])

	rep := ds.Report
	assert.Equal(t, 2, rep.Customers)
	assert.Equal(t, 1, rep.NewCustomers)
	assert.Equal(t, 2, rep.Sales)
	assert.Equal(t, 1, rep.LinkedSales)
	assert.Equal(t, 50.0, rep.Coverage)
	assert.Equal(t, 2, rep.Methods[types.MethodPhone])
	assert.Equal(t, map[string]int{"MEDIUM": 1}, rep.Tiers)
	assert.True(t, rep.Success())
	assert.Equal(t, fixedTime, rep.GeneratedAt.Time)
}

func TestConsolidateFailedStore(t *testing.T) {
	prev := previousSnapshot()
	results := []*consolidate.StoreResult{
		{
			Store: "S1",
			Err:   errors.NewIntegrityError("S1", constraints.ConstraintUnique, "duplicate sale", "1"),
			Resolution: &resolver.Result{
				Cursors: map[identity.Key]int64{{Source: types.OSSID, Store: "S1"}: 90},
			},
			Sales: []*records.Sale{sale("S1", "1", "", types.TierNone, "1", "0")},
		},
	}
	ds := newConsolidator(t).Consolidate(prev, results)

	assert.Empty(t, ds.Sales)
	assert.Equal(t, int64(1), ds.Snapshot.Cursors[identity.Key{Source: types.OSSID, Store: "S1"}])
	assert.False(t, ds.Report.Success())
	assert.Equal(t, []types.StoreID{"S1"}, ds.Report.FailedStores())
	require.Len(t, ds.Report.Stores, 1)
	assert.Contains(t, ds.Report.Stores[0].Error, "unique_store_sale_number")
	assert.Contains(t, ds.Report.String(), "Store S1 FAILED")
}

func TestReportAlwaysCarriesCategories(t *testing.T) {
	ds := newConsolidator(t).Consolidate(nil, nil)
	for _, c := range []string{records.CategoryMalformed, records.CategoryAmbiguous, records.CategoryAdjusted, records.CategoryDropped} {
		_, ok := ds.Report.Errors[c]
		assert.True(t, ok, c)
	}
	assert.Zero(t, ds.Report.Coverage)
}

func TestReportCountsIssuesAndDrops(t *testing.T) {
	results := []*consolidate.StoreResult{{
		Store:      "S1",
		Resolution: &resolver.Result{Review: []records.ReviewItem{{RowID: "c.csv#4", Strategy: "EMBEDDED_ID"}}},
		Issues:     []records.Issue{{RowID: "c.csv#2", Category: records.CategoryMalformed}},
		Dropped:    map[string]int{"missing_name": 1},
		Screen: constraints.Outcome{
			Dropped: map[string]int{constraints.ReasonNoCustomer: 2},
			Issues: []records.Issue{
				{RowID: "s.csv#2", Category: records.CategoryDropped},
				{RowID: "s.csv#3", Category: records.CategoryDropped},
			},
		},
		Enforce: constraints.Outcome{
			Adjusted: 1,
			Issues:   []records.Issue{{RowID: "s.csv#5", Category: records.CategoryAdjusted}},
		},
	}}
	ds := newConsolidator(t).Consolidate(nil, results)
	rep := ds.Report

	assert.Equal(t, 1, rep.Errors[records.CategoryMalformed])
	assert.Equal(t, 1, rep.Errors[records.CategoryAmbiguous])
	assert.Equal(t, 1, rep.Errors[records.CategoryAdjusted])
	assert.Equal(t, 2, rep.Errors[records.CategoryDropped])
	assert.Equal(t, map[string]int{"missing_name": 1, constraints.ReasonNoCustomer: 2}, rep.Dropped)
	assert.Equal(t, 1, rep.Review)
	require.Len(t, rep.Stores, 1)
	assert.Equal(t, 1, rep.Stores[0].Adjusted)
	assert.Len(t, rep.Stores[0].Issues, 4)
}

func TestWrite(t *testing.T) {
	adjusted := sale("S1", "100", "u-1", types.TierHigh, "130", "130")
	original := decimal.RequireFromString("100")
	adjusted.OriginalTotal, adjusted.Adjusted = &original, true
	adjusted.Notes = "consolidated: 2 payment rows | total adjusted from 100.00 to 130.00"

	results := []*consolidate.StoreResult{{
		Store: "S1",
		Resolution: &resolver.Result{
			Entities: []*records.Entity{{
				UUID: "u-1", Source: types.VixenID, Store: "S1", Method: types.MethodNew,
				Name: "Ana", Birthdate: time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC),
				LegacyIDs: []string{"VIXEN:1", "OSS:2"},
				Lineage:   []records.Lineage{lineage(types.VixenID, "S1", "1", types.MethodNew, types.TierNone)},
			}},
			Review: []records.ReviewItem{{RowID: "c.csv#9", Source: types.OSSID, Store: "S1", Candidates: []string{"a", "b"}}},
		},
		Sales: []*records.Sale{adjusted},
	}}
	ds := newConsolidator(t).Consolidate(nil, results)

	dir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, ds.Write(dir))

	for _, name := range []string{
		constants.CustomersFile, constants.SalesFile, constants.PaymentsFile, constants.LineageFile,
		constants.ReviewFile, constants.ReportFile, constants.ProvenanceFile,
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	sales := readCSV(t, filepath.Join(dir, constants.SalesFile))
	require.Len(t, sales, 2)
	assert.Equal(t, consolidate.SaleColumns, sales[0])
	assert.Equal(t, []string{
		"sale-S1-100", "OSS", "S1", "EMAIL", "HIGH", "100", "u-1", "130.00", "130.00",
		"consolidated: 2 payment rows | total adjusted from 100.00 to 130.00", "true",
	}, sales[1])

	customers := readCSV(t, filepath.Join(dir, constants.CustomersFile))
	require.Len(t, customers, 2)
	assert.Equal(t, []string{"u-1", "VIXEN", "S1", "NEW", "", "Ana", "", "", "1990-05-01", "VIXEN:1|OSS:2", "1"}, customers[1])

	review := readCSV(t, filepath.Join(dir, constants.ReviewFile))
	require.Len(t, review, 2)
	assert.Equal(t, "a|b", review[1][6])

	data, err := os.ReadFile(filepath.Join(dir, constants.ReportFile))
	require.NoError(t, err)
	var rep map[string]any
	require.NoError(t, yaml.Unmarshal(data, &rep))
	assert.EqualValues(t, 1, rep["sales"])
	assert.EqualValues(t, 1, rep["review_queue"])

	// No temporary files are left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "."), e.Name())
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	build := func() []byte {
		results := []*consolidate.StoreResult{{
			Store: "S1",
			Sales: []*records.Sale{sale("S1", "1", "", types.TierNone, "1", "1"), sale("S1", "2", "", types.TierNone, "2", "0")},
			Resolution: &resolver.Result{
				Entities: []*records.Entity{{UUID: "u-1", Name: "Ana"}, {UUID: "u-2", Name: "Bia"}},
			},
		}}
		ds := newConsolidator(t).Consolidate(nil, results)
		var buf bytes.Buffer
		require.NoError(t, ds.WriteSales(&buf))
		require.NoError(t, ds.WriteCustomers(&buf))
		require.NoError(t, ds.WriteReport(&buf))
		return buf.Bytes()
	}
	assert.Equal(t, build(), build())
}

func TestOptionValidation(t *testing.T) {
	_, err := consolidate.New(consolidate.WithAuthorities(nil))
	assert.True(t, errors.IsValidationError(err))
	_, err = consolidate.New(consolidate.WithClock(nil))
	assert.True(t, errors.IsValidationError(err))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
