package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/normalize"
	"github.com/agentstation/ledgermap/pkg/types"
)

// tableKey selects one schema variant.
type tableKey struct {
	source types.SourceID
	kind   types.ResourceType
}

// Table is the declarative alias table: (source, kind) -> field -> raw names.
type Table struct {
	entries map[tableKey]Aliases
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[tableKey]Aliases)}
}

// Set replaces the aliases of one (source, kind) variant.
func (t *Table) Set(source types.SourceID, kind types.ResourceType, aliases Aliases) {
	cp := make(Aliases, len(aliases))
	for f, names := range aliases {
		cp[f] = append([]string(nil), names...)
	}
	t.entries[tableKey{source, kind}] = cp
}

// Extend adds extra aliases in front of the existing ones so that
// configured names take precedence. Unknown variants are created.
func (t *Table) Extend(source types.SourceID, kind types.ResourceType, extra Aliases) {
	key := tableKey{source, kind}
	current, ok := t.entries[key]
	if !ok {
		current = make(Aliases)
	}
	for f, names := range extra {
		current[f] = append(append([]string(nil), names...), current[f]...)
	}
	t.entries[key] = current
}

// Has reports whether a variant is defined.
func (t *Table) Has(source types.SourceID, kind types.ResourceType) bool {
	_, ok := t.entries[tableKey{source, kind}]
	return ok
}

// Aliases returns the aliases of a variant.
func (t *Table) Aliases(source types.SourceID, kind types.ResourceType) (Aliases, bool) {
	a, ok := t.entries[tableKey{source, kind}]
	return a, ok
}

// Validate checks the table once at load: fields must be known, and no raw
// name may map to two fields of the same variant.
func (t *Table) Validate() error {
	known := make(map[Field]bool)
	for _, f := range Fields() {
		known[f] = true
	}

	keys := make([]tableKey, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].source != keys[j].source {
			return keys[i].source < keys[j].source
		}
		return keys[i].kind < keys[j].kind
	})

	for _, k := range keys {
		owner := make(map[string]Field)
		for _, f := range sortedFields(t.entries[k]) {
			if !known[f] {
				return errors.NewConfigError("schema", fmt.Sprintf("%s/%s: unknown field %q", k.source, k.kind, f), nil)
			}
			for _, name := range t.entries[k][f] {
				norm := normalize.Text(name)
				if norm == "" {
					return errors.NewConfigError("schema", fmt.Sprintf("%s/%s: empty alias for %s", k.source, k.kind, f), nil)
				}
				if prev, dup := owner[norm]; dup && prev != f {
					return errors.NewConfigError("schema",
						fmt.Sprintf("%s/%s: alias %q maps to both %s and %s", k.source, k.kind, name, prev, f), nil)
				}
				owner[norm] = f
			}
		}
	}
	return nil
}

func sortedFields(a Aliases) []Field {
	fields := make([]Field, 0, len(a))
	for f := range a {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Adapter binds file headers to internal fields using a validated table.
type Adapter struct {
	table *Table
}

// NewAdapter validates table and returns an adapter over it.
func NewAdapter(table *Table) (*Adapter, error) {
	if table == nil {
		table = DefaultTable()
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{table: table}, nil
}

// Binding maps the columns of one file to internal fields.
type Binding struct {
	Source  types.SourceID
	Kind    types.ResourceType
	Columns map[Field]string // internal field -> header name as it appears in the file
	Missing []Field          // required fields without a column
}

// Valid reports whether every required field has a column.
func (b *Binding) Valid() bool {
	return len(b.Missing) == 0
}

// Bind resolves header against the aliases of (source, kind). For every field
// the first alias present in the header wins. An unknown variant is a
// configuration error; missing required columns are reported on the binding.
func (a *Adapter) Bind(source types.SourceID, kind types.ResourceType, header []string) (*Binding, error) {
	aliases, ok := a.table.Aliases(source, kind)
	if !ok {
		return nil, errors.NewConfigError("schema", fmt.Sprintf("no schema for source %s and kind %s", source, kind), nil)
	}

	byNorm := make(map[string]string, len(header))
	for _, h := range header {
		n := normalize.Text(h)
		if _, seen := byNorm[n]; !seen && n != "" {
			byNorm[n] = h
		}
	}

	b := &Binding{Source: source, Kind: kind, Columns: make(map[Field]string)}
	for _, f := range Fields() {
		for _, alias := range aliases[f] {
			if col, ok := byNorm[normalize.Text(alias)]; ok {
				b.Columns[f] = col
				break
			}
		}
	}
	for _, f := range RequiredFields(kind) {
		if _, ok := b.Columns[f]; !ok {
			b.Missing = append(b.Missing, f)
		}
	}
	return b, nil
}

// Get returns the raw value of field in row, or "" when the file has no column for it.
func (b *Binding) Get(row map[string]string, f Field) string {
	col, ok := b.Columns[f]
	if !ok {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// Has reports whether the file provides a column for f.
func (b *Binding) Has(f Field) bool {
	_, ok := b.Columns[f]
	return ok
}

// MissingNames returns the missing required fields as strings.
func (b *Binding) MissingNames() []string {
	out := make([]string, len(b.Missing))
	for i, f := range b.Missing {
		out[i] = string(f)
	}
	return out
}
