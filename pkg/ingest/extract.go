package ingest

import (
	"fmt"
	"strings"

	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/normalize"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/schema"
	"github.com/agentstation/ledgermap/pkg/types"
)

// DefaultNoCustomerMarkers are customer names meaning "no customer" on
// walk-in sales. Compared after normalize.Text.
var DefaultNoCustomerMarkers = []string{
	"consumidor",
	"consumidor final",
	"cliente balcao",
	"balcao",
	"sem cliente",
	"nao informado",
	"nao identificado",
}

// Drop reasons reported for rows removed before matching.
const (
	ReasonMissingColumns = "missing_required_columns"
	ReasonMissingName    = "missing_name"
	ReasonOtherStore     = "other_store"
)

type extractOptions struct {
	blacklist   *normalize.Blacklist
	dateFormats []string
	prefixes    []string
	noCustomer  map[string]struct{}
}

// ExtractOption configures an Extractor.
type ExtractOption func(*extractOptions) error

// WithBlacklist sets the placeholder e-mail blacklist.
func WithBlacklist(bl *normalize.Blacklist) ExtractOption {
	return func(o *extractOptions) error {
		if bl == nil {
			return errors.NewValidationError("blacklist", nil, "cannot be nil")
		}
		o.blacklist = bl
		return nil
	}
}

// WithDateFormats sets the birthdate layouts, most likely first.
func WithDateFormats(formats []string) ExtractOption {
	return func(o *extractOptions) error {
		if len(formats) > 0 {
			o.dateFormats = formats
		}
		return nil
	}
}

// WithSaleNumberPrefixes sets the document prefixes stripped from sale numbers.
func WithSaleNumberPrefixes(prefixes []string) ExtractOption {
	return func(o *extractOptions) error {
		if prefixes != nil {
			o.prefixes = prefixes
		}
		return nil
	}
}

// WithNoCustomerMarkers replaces the "no customer" name markers.
func WithNoCustomerMarkers(markers []string) ExtractOption {
	return func(o *extractOptions) error {
		if markers == nil {
			return nil
		}
		o.noCustomer = markerSet(markers)
		return nil
	}
}

func markerSet(markers []string) map[string]struct{} {
	set := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		if t := normalize.Text(m); t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// Extractor turns raw rows into normalized customer and sale records.
type Extractor struct {
	adapter *schema.Adapter
	opts    extractOptions
}

// NewExtractor creates an extractor over adapter.
func NewExtractor(adapter *schema.Adapter, opts ...ExtractOption) (*Extractor, error) {
	if adapter == nil {
		return nil, errors.NewValidationError("adapter", nil, "cannot be nil")
	}
	o := extractOptions{
		blacklist:   normalize.DefaultBlacklist(),
		dateFormats: normalize.DefaultDateFormats,
		prefixes:    normalize.DefaultSaleNumberPrefixes,
		noCustomer:  markerSet(DefaultNoCustomerMarkers),
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &Extractor{adapter: adapter, opts: o}, nil
}

// Extracted holds the records of one file and the rows that were dropped.
type Extracted struct {
	Customers []*records.Customer
	Sales     []*records.SaleRow
	Issues    []records.Issue // every issue raised, including those of kept records
	Dropped   map[string]int  // reason -> rows removed
}

func (x *Extracted) drop(reason string, issue records.Issue) {
	if x.Dropped == nil {
		x.Dropped = make(map[string]int)
	}
	x.Dropped[reason]++
	x.Issues = append(x.Issues, issue)
}

// Extract binds the file header and converts every row. A header missing a
// required column makes every row malformed. An unknown (source, kind) pair
// is a configuration error.
func (e *Extractor) Extract(f *File) (*Extracted, error) {
	in := f.Input
	binding, err := e.adapter.Bind(in.Source, in.Kind, f.Header)
	if err != nil {
		return nil, err
	}

	out := &Extracted{}
	if !binding.Valid() {
		merr := errors.NewMalformedRecordError(string(in.Source), string(in.Store), in.Path,
			"required columns not found in header", binding.MissingNames()...)
		for _, raw := range f.Rows {
			out.drop(ReasonMissingColumns, records.Issue{
				RowID:    raw.RowID(),
				Field:    strings.Join(binding.MissingNames(), ","),
				Category: records.CategoryMalformed,
				Severity: records.SeverityError,
				Message:  merr.Error(),
			})
		}
		return out, nil
	}

	for _, raw := range f.Rows {
		if e.otherStore(binding, raw) {
			out.drop(ReasonOtherStore, records.Issue{
				RowID:    raw.RowID(),
				Field:    string(schema.FieldStoreID),
				Category: records.CategoryDropped,
				Severity: records.SeverityWarning,
				Message:  fmt.Sprintf("row belongs to store %q", binding.Get(raw.Fields, schema.FieldStoreID)),
			})
			continue
		}

		switch in.Kind {
		case types.ResourceTypeCustomer:
			c := e.customer(binding, raw)
			if c.NameText == "" {
				merr := errors.NewMalformedRecordError(string(raw.Source), string(raw.Store), raw.RowID(),
					"customer name is empty", string(schema.FieldName))
				out.drop(ReasonMissingName, records.Issue{
					RowID:    raw.RowID(),
					Field:    string(schema.FieldName),
					Category: records.CategoryMalformed,
					Severity: records.SeverityError,
					Message:  merr.Error(),
				})
				continue
			}
			out.Issues = append(out.Issues, c.Issues...)
			out.Customers = append(out.Customers, c)
		case types.ResourceTypeSale:
			s := e.sale(binding, raw)
			out.Issues = append(out.Issues, s.Issues...)
			out.Sales = append(out.Sales, s)
		}
	}
	return out, nil
}

// otherStore reports whether a row's own store column names another store.
func (e *Extractor) otherStore(b *schema.Binding, raw *records.Raw) bool {
	v := normalize.Text(b.Get(raw.Fields, schema.FieldStoreID))
	return v != "" && v != normalize.Text(string(raw.Store))
}

func (e *Extractor) customer(b *schema.Binding, raw *records.Raw) *records.Customer {
	name := b.Get(raw.Fields, schema.FieldName)
	c := &records.Customer{
		Source:   raw.Source,
		Store:    raw.Store,
		RowID:    raw.RowID(),
		Name:     strings.Join(strings.Fields(name), " "),
		NameKey:  normalize.NameKey(name),
		NameText: normalize.Text(name),
		Tokens:   normalize.Tokens(name),
		Email:    normalize.Email(b.Get(raw.Fields, schema.FieldEmail), e.opts.blacklist),
		Phone:    normalize.Phone(b.Get(raw.Fields, schema.FieldPhone)),
		Notes:    b.Get(raw.Fields, schema.FieldNotes),
	}
	if normalize.IsBlank(c.Notes) {
		c.Notes = ""
	}

	c.SourceRecordID = raw.RecordKey()
	if id := cleanID(b.Get(raw.Fields, schema.FieldRecordID)); id != "" {
		c.SourceRecordID = id
		c.LegacyID = records.LegacyID(string(raw.Source), id)
	}

	if birth := b.Get(raw.Fields, schema.FieldBirthdate); !normalize.IsBlank(birth) {
		if d, ok := normalize.Date(birth, e.opts.dateFormats); ok {
			c.Birthdate, c.HasBirth = d, true
		} else {
			c.Issues = append(c.Issues, records.Issue{
				RowID:    c.RowID,
				Field:    string(schema.FieldBirthdate),
				Category: records.CategoryInvalidVal,
				Severity: records.SeverityWarning,
				Message:  fmt.Sprintf("unparsable birthdate %q ignored", birth),
			})
		}
	}
	return c
}

func (e *Extractor) sale(b *schema.Binding, raw *records.Raw) *records.SaleRow {
	s := &records.SaleRow{
		Source:        raw.Source,
		Store:         raw.Store,
		RowID:         raw.RowID(),
		SaleNumber:    normalize.SaleNumber(b.Get(raw.Fields, schema.FieldSaleNumber), e.opts.prefixes),
		PaymentMethod: strings.ToUpper(strings.Join(strings.Fields(b.Get(raw.Fields, schema.FieldPaymentMethod)), " ")),
		Notes:         b.Get(raw.Fields, schema.FieldNotes),
	}
	if normalize.IsBlank(s.Notes) {
		s.Notes = ""
	}

	if v := b.Get(raw.Fields, schema.FieldAmountTotal); !normalize.IsBlank(v) {
		total, err := normalize.Money(v)
		if err != nil {
			s.Issues = append(s.Issues, moneyIssue(s.RowID, schema.FieldAmountTotal, err))
		} else {
			s.Total = &total
		}
	}
	if v := b.Get(raw.Fields, schema.FieldAmountDown); !normalize.IsBlank(v) {
		down, err := normalize.Money(v)
		if err != nil {
			s.Issues = append(s.Issues, moneyIssue(s.RowID, schema.FieldAmountDown, err))
		}
		s.DownPayment = down
	}

	if _, ok := e.opts.noCustomer[normalize.Text(b.Get(raw.Fields, schema.FieldName))]; ok {
		s.NoCustomer = true
		return s
	}
	if hasCustomerColumns(b, raw) {
		c := e.customer(b, raw)
		if c.Identifiable() {
			s.Customer = c
			s.Issues = append(s.Issues, c.Issues...)
		}
	}
	return s
}

func hasCustomerColumns(b *schema.Binding, raw *records.Raw) bool {
	for _, f := range []schema.Field{schema.FieldName, schema.FieldEmail, schema.FieldPhone, schema.FieldRecordID} {
		if !normalize.IsBlank(b.Get(raw.Fields, f)) {
			return true
		}
	}
	return false
}

func moneyIssue(rowID string, f schema.Field, err error) records.Issue {
	return records.Issue{
		RowID:    rowID,
		Field:    string(f),
		Category: records.CategoryInvalidVal,
		Severity: records.SeverityWarning,
		Message:  err.Error(),
	}
}

// cleanID trims an identifier and the ".0" spreadsheets append to numbers.
func cleanID(s string) string {
	s = strings.TrimSpace(s)
	if normalize.IsBlank(s) {
		return ""
	}
	if head, tail, ok := strings.Cut(s, "."); ok && head != "" && strings.Trim(head, "0123456789") == "" && strings.Trim(tail, "0") == "" {
		return head
	}
	return s
}
