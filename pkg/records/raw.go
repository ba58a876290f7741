package records

import (
	"fmt"
	"path/filepath"

	"github.com/agentstation/ledgermap/pkg/types"
)

// Raw is one row of an input file as read, before any interpretation.
// Fields are keyed by the file's header names.
type Raw struct {
	Source types.SourceID
	Store  types.StoreID
	Kind   types.ResourceType
	File   string
	Line   int // 1-based line in the file, header included
	Fields map[string]string
}

// RowID identifies the raw row in audit output: "<file base name>#<line>".
// It is short and may repeat across directories; use RecordKey for identity.
func (r *Raw) RowID() string {
	return fmt.Sprintf("%s#%d", filepath.Base(r.File), r.Line)
}

// RecordKey identifies the row among every input of a run:
// "<cleaned path>#<line>". Exports of different years often share a file
// name, so the directory is part of the key.
func (r *Raw) RecordKey() string {
	return fmt.Sprintf("%s#%d", filepath.ToSlash(filepath.Clean(r.File)), r.Line)
}
