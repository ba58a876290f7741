package constraints_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/ledgermap/pkg/constraints"
	"github.com/agentstation/ledgermap/pkg/dedup"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sale(number string, total *decimal.Decimal, down string) *records.Sale {
	s := &records.Sale{Store: "S1", SaleNumber: number, DownPayment: dec(down), RowIDs: []string{"f#" + number}}
	if total != nil {
		s.Total, s.HasTotal = *total, true
	}
	if s.DownPayment.IsPositive() {
		s.Payments = []records.Payment{{Method: "PIX", Amount: s.DownPayment}}
	}
	return s
}

func ptr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestScenarioClampAfterDedup(t *testing.T) {
	d, err := dedup.New()
	require.NoError(t, err)
	total := dec("100")
	sales, _ := d.Dedup([]*records.SaleRow{
		{Source: types.OSSID, Store: "S1", RowID: "f#2", SaleNumber: "100", DownPayment: dec("50")},
		{Source: types.OSSID, Store: "S1", RowID: "f#3", SaleNumber: "100", DownPayment: dec("80"), Total: &total},
	})

	kept, out, err := constraints.New("S1").Enforce(sales)
	require.NoError(t, err)
	require.Len(t, kept, 1)

	s := kept[0]
	assert.True(t, dec("130").Equal(s.Total))
	assert.True(t, dec("130").Equal(s.DownPayment))
	assert.True(t, s.Adjusted)
	require.NotNil(t, s.OriginalTotal)
	assert.True(t, dec("100").Equal(*s.OriginalTotal))
	assert.Equal(t, "consolidated: 2 payment rows | total adjusted from 100.00 to 130.00", s.Notes)
	assert.Equal(t, 1, out.Adjusted)
	require.Len(t, out.Issues, 1)
	assert.Equal(t, records.CategoryAdjusted, out.Issues[0].Category)
}

func TestEnforceDownPaymentNeverExceedsTotal(t *testing.T) {
	sales := []*records.Sale{
		sale("1", ptr("10"), "10"),
		sale("2", ptr("10"), "25.5"),
		sale("3", ptr("100"), "0"),
		sale("4", nil, "0"),
	}
	kept, out, err := constraints.New("S1").Enforce(sales)
	require.NoError(t, err)
	require.Len(t, kept, 4)
	for _, s := range kept {
		assert.True(t, s.DownPayment.LessThanOrEqual(s.Total), "sale %s", s.SaleNumber)
	}
	assert.False(t, kept[0].Adjusted)
	assert.True(t, kept[1].Adjusted)
	assert.True(t, kept[3].HasTotal)
	assert.True(t, kept[3].Total.IsZero())
	assert.Equal(t, 1, out.Zeroed)
}

func TestEnforceDropsMissingTotalWithPayment(t *testing.T) {
	kept, out, err := constraints.New("S1").Enforce([]*records.Sale{sale("1", nil, "30"), sale("2", ptr("5"), "5")})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "2", kept[0].SaleNumber)
	assert.Equal(t, 1, out.Dropped[constraints.ReasonMissingTotal])
	require.Len(t, out.Issues, 1)
	assert.Contains(t, out.Issues[0].Message, "total_present")
}

func TestEnforceDuplicateIsFatal(t *testing.T) {
	_, _, err := constraints.New("S1").Enforce([]*records.Sale{sale("1", ptr("5"), "5"), sale("1", ptr("5"), "5")})
	require.Error(t, err)
	assert.True(t, errors.IsIntegrity(err))
	assert.True(t, errors.IsFatal(err))
}

func TestEnforcePaymentMismatchIsFatal(t *testing.T) {
	s := sale("1", ptr("50"), "40")
	s.Payments = []records.Payment{{Method: "PIX", Amount: dec("30")}}
	_, _, err := constraints.New("S1").Enforce([]*records.Sale{s})
	assert.True(t, errors.IsIntegrity(err))
}

func TestScreen(t *testing.T) {
	rows := []*records.SaleRow{
		{RowID: "r1", SaleNumber: "1"},
		{RowID: "r2", SaleNumber: ""},
		{RowID: "r3", SaleNumber: "3", NoCustomer: true},
		{RowID: "r4", SaleNumber: "4"},
	}
	kept, out := constraints.New("S1").Screen(rows)
	require.Len(t, kept, 2)
	assert.Equal(t, "r1", kept[0].RowID)
	assert.Equal(t, "r4", kept[1].RowID)
	assert.Equal(t, map[string]int{
		constraints.ReasonMissingSaleNumber: 1,
		constraints.ReasonNoCustomer:        1,
	}, out.Dropped)
	assert.Len(t, out.Issues, 2)
}
