// Package dedup collapses the sale rows of one store into consolidated
// sales. Exports write one row per payment method, so a sale paid with cash
// and card appears twice with the same sale number.
package dedup

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agentstation/ledgermap/pkg/constants"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/identity"
	"github.com/agentstation/ledgermap/pkg/records"
)

// UnspecifiedMethod labels payments whose row names no method.
const UnspecifiedMethod = "UNSPECIFIED"

// Stats counts what deduplication did.
type Stats struct {
	Rows       int `yaml:"rows" json:"rows"`
	Sales      int `yaml:"sales" json:"sales"`
	Collapsed  int `yaml:"collapsed" json:"collapsed"`     // sales built from more than one row
	RowsMerged int `yaml:"rows_merged" json:"rows_merged"` // rows folded into another row's sale
}

// Deduplicator groups rows by (store, sale number).
type Deduplicator struct {
	namespace uuid.UUID
}

// Option configures a Deduplicator.
type Option func(*Deduplicator) error

// WithNamespace sets the UUID v5 namespace of sale identities.
func WithNamespace(ns uuid.UUID) Option {
	return func(d *Deduplicator) error {
		if ns == uuid.Nil {
			return &errors.ValidationError{Field: "namespace", Message: "cannot be the nil UUID"}
		}
		d.namespace = ns
		return nil
	}
}

// New creates a deduplicator.
func New(opts ...Option) (*Deduplicator, error) {
	d := &Deduplicator{namespace: identity.DefaultNamespace}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Dedup groups rows in first-appearance order. For a group, the total is the
// first non-null total, the down payment is the sum of all rows, payments
// are summed per method, the customer is the first resolved one and the
// notes are the first non-empty notes plus a consolidation marker.
func (d *Deduplicator) Dedup(rows []*records.SaleRow) ([]*records.Sale, Stats) {
	stats := Stats{Rows: len(rows)}

	var order []records.SaleKey
	groups := make(map[records.SaleKey][]*records.SaleRow)
	for _, row := range rows {
		k := row.Key()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], row)
	}

	sales := make([]*records.Sale, 0, len(order))
	for _, k := range order {
		group := groups[k]
		sales = append(sales, d.consolidate(group))
		if len(group) > 1 {
			stats.Collapsed++
			stats.RowsMerged += len(group) - 1
		}
	}
	stats.Sales = len(sales)
	return sales, stats
}

func (d *Deduplicator) consolidate(group []*records.SaleRow) *records.Sale {
	first := group[0]
	s := &records.Sale{
		UUID:        identity.SaleUUID(d.namespace, first.Store, first.SaleNumber),
		Source:      first.Source,
		Store:       first.Store,
		SaleNumber:  first.SaleNumber,
		DownPayment: decimal.Zero,
	}

	byMethod := make(map[string]int)
	for _, row := range group {
		s.RowIDs = append(s.RowIDs, row.RowID)

		if !s.HasTotal && row.Total != nil {
			s.Total, s.HasTotal = *row.Total, true
		}
		if s.CustomerID == "" && row.CustomerID != "" {
			s.CustomerID, s.CustomerMethod, s.CustomerTier = row.CustomerID, row.CustomerMethod, row.CustomerTier
		}
		if s.Notes == "" && row.Notes != "" {
			s.Notes = row.Notes
		}

		s.DownPayment = s.DownPayment.Add(row.DownPayment)
		if row.DownPayment.IsZero() {
			continue
		}
		method := row.PaymentMethod
		if method == "" {
			method = UnspecifiedMethod
		}
		if i, ok := byMethod[method]; ok {
			s.Payments[i].Amount = s.Payments[i].Amount.Add(row.DownPayment)
		} else {
			byMethod[method] = len(s.Payments)
			s.Payments = append(s.Payments, records.Payment{Method: method, Amount: row.DownPayment})
		}
	}

	if len(group) > 1 {
		s.AppendNote(fmt.Sprintf(constants.ConsolidatedNote, len(group)))
	}
	return s
}
