// Package schema maps the column names of each legacy export onto the fixed
// internal field set. The mapping is a declarative table, one entry per
// (source system, record kind, field), validated once at load time.
package schema

import "github.com/agentstation/ledgermap/pkg/types"

// Field is an internal field name.
type Field string

// Internal fields
const (
	FieldName          Field = "name"
	FieldEmail         Field = "email"
	FieldPhone         Field = "phone"
	FieldBirthdate     Field = "birthdate"
	FieldNotes         Field = "notes"
	FieldAmountTotal   Field = "amount_total"
	FieldAmountDown    Field = "amount_down"
	FieldSaleNumber    Field = "sale_number"
	FieldStoreID       Field = "store_id"
	FieldRecordID      Field = "record_id"
	FieldPaymentMethod Field = "payment_method"
)

// String returns the field name.
func (f Field) String() string {
	return string(f)
}

// Fields returns every internal field in a stable order.
func Fields() []Field {
	return []Field{
		FieldName,
		FieldEmail,
		FieldPhone,
		FieldBirthdate,
		FieldNotes,
		FieldAmountTotal,
		FieldAmountDown,
		FieldSaleNumber,
		FieldStoreID,
		FieldRecordID,
		FieldPaymentMethod,
	}
}

// RequiredFields returns the fields a file of the given kind must provide.
func RequiredFields(kind types.ResourceType) []Field {
	switch kind {
	case types.ResourceTypeCustomer:
		return []Field{FieldName}
	case types.ResourceTypeSale:
		return []Field{FieldSaleNumber}
	default:
		return nil
	}
}
