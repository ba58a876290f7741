package records

// Severity of a record issue.
type Severity string

// Issue severities
const (
	SeverityWarning Severity = "warning" // value ignored, record kept
	SeverityError   Severity = "error"   // record dropped or left unresolved
)

// Issue is a structured per-record problem. Issues never abort a run; they
// travel with the record into the report.
type Issue struct {
	RowID    string   `yaml:"row_id" json:"row_id"`
	Field    string   `yaml:"field,omitempty" json:"field,omitempty"`
	Category string   `yaml:"category" json:"category"`
	Severity Severity `yaml:"severity" json:"severity"`
	Message  string   `yaml:"message" json:"message"`
}

// Issue categories used in reports.
const (
	CategoryMalformed  = "malformed"
	CategoryAmbiguous  = "ambiguous"
	CategoryAdjusted   = "adjusted"
	CategoryDropped    = "dropped"
	CategoryInvalidVal = "invalid_value"
)
