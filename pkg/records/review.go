package records

import "github.com/agentstation/ledgermap/pkg/types"

// ReviewItem is a record left for a person to resolve.
type ReviewItem struct {
	RowID      string         `yaml:"row_id"`
	Source     types.SourceID `yaml:"source_system"`
	Store      types.StoreID  `yaml:"store_id"`
	RecordID   string         `yaml:"source_record_id"`
	Name       string         `yaml:"name"`
	Strategy   string         `yaml:"strategy"`
	Candidates []string       `yaml:"candidates"`
	Reason     string         `yaml:"reason"`
}
