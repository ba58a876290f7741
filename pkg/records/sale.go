package records

import (
	"github.com/shopspring/decimal"

	"github.com/agentstation/ledgermap/pkg/types"
)

// SaleRow is one normalized sale line. A real transaction paid with several
// methods appears as several rows sharing the sale number.
type SaleRow struct {
	Source     types.SourceID
	Store      types.StoreID
	RowID      string
	SaleNumber string

	Total         *decimal.Decimal // nil when the row carries no total
	DownPayment   decimal.Decimal
	PaymentMethod string
	Notes         string

	// Customer is the person described by the row's customer columns; nil
	// when the row has none.
	Customer   *Customer
	NoCustomer bool // row carries the "no customer" sentinel

	// Filled by the resolver.
	CustomerID     string
	CustomerMethod types.MatchMethod
	CustomerTier   types.Tier

	Issues []Issue
}

// SaleKey is the uniqueness key of consolidated sales.
type SaleKey struct {
	Store      types.StoreID
	SaleNumber string
}

// Key returns the grouping key of the row.
func (r *SaleRow) Key() SaleKey {
	return SaleKey{Store: r.Store, SaleNumber: r.SaleNumber}
}

// Sale is a consolidated transaction.
type Sale struct {
	UUID       string
	Source     types.SourceID // source of the first row
	Store      types.StoreID
	SaleNumber string

	CustomerID     string // "" when unresolved
	CustomerMethod types.MatchMethod
	CustomerTier   types.Tier

	Total         decimal.Decimal
	HasTotal      bool
	DownPayment   decimal.Decimal
	Payments      []Payment // per-method amounts, sum equals DownPayment
	Notes         string
	RowIDs        []string
	Adjusted      bool
	OriginalTotal *decimal.Decimal
}

// Key returns the uniqueness key of the sale.
func (s *Sale) Key() SaleKey {
	return SaleKey{Store: s.Store, SaleNumber: s.SaleNumber}
}

// Payment is the amount paid with one method.
type Payment struct {
	Method string
	Amount decimal.Decimal
}

// PaymentsTotal sums the payment breakdown.
func (s *Sale) PaymentsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range s.Payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// AppendNote adds a note, separating it from existing text.
func (s *Sale) AppendNote(note string) {
	if s.Notes == "" {
		s.Notes = note
		return
	}
	s.Notes += " | " + note
}
