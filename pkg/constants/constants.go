// Package constants provides shared constants used throughout the ledgermap codebase.
// This includes file permissions, output file names, matching limits and other
// values that must stay consistent between the pipeline, the CLI and the tests.
package constants

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Matching limits
const (
	// TokenCandidateCap is the largest candidate set token containment may
	// produce before the token is considered too common to be useful.
	TokenCandidateCap = 20

	// MinTokenLength is the shortest name token used by token containment.
	MinTokenLength = 4

	// MinPhoneDigits is the minimum number of digits for a usable phone key.
	MinPhoneDigits = 8

	// PhoneKeyDigits is the number of trailing digits kept as the phone key.
	PhoneKeyDigits = 9
)

// Pipeline defaults
const (
	// DefaultWorkers is the number of stores processed in parallel.
	DefaultWorkers = 4

	// DefaultDelimiter is used for sources that do not declare one.
	DefaultDelimiter = ";"

	// DefaultEncoding is used for sources that do not declare one.
	DefaultEncoding = "utf-8"

	// DefaultIDMapPath is the SQLite database holding previous assignments.
	DefaultIDMapPath = "ledgermap.db"

	// DefaultOutputDir receives the canonical files.
	DefaultOutputDir = "out"
)

// Output file names written by the consolidator
const (
	CustomersFile  = "customers.csv"
	SalesFile      = "sales.csv"
	PaymentsFile   = "payments.csv"
	LineageFile    = "lineage.csv"
	ReviewFile     = "review.csv"
	ReportFile     = "report.yaml"
	ProvenanceFile = "provenance.yaml"
)

// ConsolidatedNote is appended to sales collapsed from several payment rows.
const ConsolidatedNote = "consolidated: %d payment rows"
