// Package constraints enforces the numeric and uniqueness invariants of
// consolidated sales. Rows that cannot become sales are screened out before
// deduplication; consolidated sales are repaired where possible afterwards.
package constraints

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Reasons for removing rows or sales.
const (
	ReasonMissingSaleNumber = "missing_sale_number"
	ReasonNoCustomer        = "no_customer_marker"
	ReasonMissingTotal      = "missing_total"
)

// Constraint names used in errors and notes.
const (
	ConstraintDownPayment = "down_payment_le_total"
	ConstraintPayments    = "payments_sum_eq_down_payment"
	ConstraintUnique      = "unique_store_sale_number"
	ConstraintTotal       = "total_present"
)

// AdjustedNote records a clamped total.
const AdjustedNote = "total adjusted from %s to %s"

// Outcome reports what a validation step removed or repaired.
type Outcome struct {
	Dropped  map[string]int  `yaml:"dropped,omitempty"` // reason -> count
	Adjusted int             `yaml:"adjusted"`
	Zeroed   int             `yaml:"zeroed"` // missing totals set to zero
	Issues   []records.Issue `yaml:"-"`
}

func (o *Outcome) drop(reason string, issue records.Issue) {
	if o.Dropped == nil {
		o.Dropped = make(map[string]int)
	}
	o.Dropped[reason]++
	o.Issues = append(o.Issues, issue)
}

// Validator checks the sales of one store.
type Validator struct {
	store types.StoreID
}

// New creates the validator of store.
func New(store types.StoreID) *Validator {
	return &Validator{store: store}
}

// Screen drops rows without a sale number and rows carrying the
// "no customer" marker. Kept rows keep their order.
func (v *Validator) Screen(rows []*records.SaleRow) ([]*records.SaleRow, Outcome) {
	var out Outcome
	kept := make([]*records.SaleRow, 0, len(rows))
	for _, row := range rows {
		switch {
		case row.SaleNumber == "":
			out.drop(ReasonMissingSaleNumber, records.Issue{
				RowID:    row.RowID,
				Field:    "sale_number",
				Category: records.CategoryDropped,
				Severity: records.SeverityError,
				Message:  "row has no sale number",
			})
		case row.NoCustomer:
			out.drop(ReasonNoCustomer, records.Issue{
				RowID:    row.RowID,
				Field:    "name",
				Category: records.CategoryDropped,
				Severity: records.SeverityWarning,
				Message:  "row carries the no-customer marker",
			})
		default:
			kept = append(kept, row)
		}
	}
	return kept, out
}

// Enforce repairs and checks consolidated sales. A down payment above the
// total raises the total to the down payment and marks the sale adjusted. A
// missing total becomes zero when nothing was paid; with a positive down
// payment the sale is dropped. A repeated (store, sale number) or a broken
// invariant after repair is an IntegrityError, fatal for the store.
func (v *Validator) Enforce(sales []*records.Sale) ([]*records.Sale, Outcome, error) {
	var out Outcome

	seen := make(map[records.SaleKey]bool, len(sales))
	for _, s := range sales {
		if seen[s.Key()] {
			return nil, out, errors.NewIntegrityError(string(v.store), ConstraintUnique,
				"duplicate sale after deduplication", s.SaleNumber)
		}
		seen[s.Key()] = true
	}

	kept := make([]*records.Sale, 0, len(sales))
	for _, s := range sales {
		if !s.HasTotal {
			if s.DownPayment.IsPositive() {
				cv := errors.NewConstraintViolationError(string(v.store), s.SaleNumber, ConstraintTotal,
					fmt.Sprintf("no total for down payment %s", s.DownPayment.StringFixed(2)))
				out.drop(ReasonMissingTotal, records.Issue{
					RowID:    firstRow(s),
					Field:    "amount_total",
					Category: records.CategoryDropped,
					Severity: records.SeverityError,
					Message:  cv.Error(),
				})
				continue
			}
			s.Total, s.HasTotal = decimal.Zero, true
			out.Zeroed++
		}

		if s.DownPayment.GreaterThan(s.Total) {
			original := s.Total
			s.OriginalTotal = &original
			s.Total = s.DownPayment
			s.Adjusted = true
			s.AppendNote(fmt.Sprintf(AdjustedNote, original.StringFixed(2), s.Total.StringFixed(2)))
			out.Adjusted++
			out.Issues = append(out.Issues, records.Issue{
				RowID:    firstRow(s),
				Field:    "amount_total",
				Category: records.CategoryAdjusted,
				Severity: records.SeverityWarning,
				Message:  fmt.Sprintf(AdjustedNote, original.StringFixed(2), s.Total.StringFixed(2)),
			})
		}

		if err := v.check(s); err != nil {
			return nil, out, err
		}
		kept = append(kept, s)
	}
	return kept, out, nil
}

// check asserts the invariants every kept sale must satisfy.
func (v *Validator) check(s *records.Sale) error {
	if s.DownPayment.GreaterThan(s.Total) {
		return errors.NewIntegrityError(string(v.store), ConstraintDownPayment,
			fmt.Sprintf("down payment %s exceeds total %s", s.DownPayment, s.Total), s.SaleNumber)
	}
	if !s.PaymentsTotal().Equal(s.DownPayment) {
		return errors.NewIntegrityError(string(v.store), ConstraintPayments,
			fmt.Sprintf("payments sum to %s, down payment is %s", s.PaymentsTotal(), s.DownPayment), s.SaleNumber)
	}
	return nil
}

func firstRow(s *records.Sale) string {
	if len(s.RowIDs) == 0 {
		return ""
	}
	return s.RowIDs[0]
}
