package output

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/agentstation/ledgermap/pkg/consolidate"
)

var countAlignment = []Align{AlignLeft, AlignRight}

// ReportTables breaks a run report into its count tables. Empty tables are
// skipped when rendered.
func ReportTables(rep *consolidate.Report) []Data {
	stores := Data{
		Title:           "Stores",
		Headers:         []string{"Store", "Status", "Customers", "Sales", "Linked", "Coverage", "Duration"},
		ColumnAlignment: []Align{AlignLeft, AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight, AlignRight},
	}
	for _, s := range rep.Stores {
		stores.Rows = append(stores.Rows, []string{
			string(s.Store),
			s.Status,
			strconv.Itoa(s.Customers),
			strconv.Itoa(s.Sales),
			strconv.Itoa(s.Linked),
			fmt.Sprintf("%.2f%%", s.Coverage),
			(time.Duration(s.DurationMs) * time.Millisecond).String(),
		})
	}

	return []Data{
		countTable("Match methods", "Method", "Records", rep.Methods),
		countTable("Confidence tiers", "Tier", "Sales", rep.Tiers),
		countTable("Issues", "Category", "Count", rep.Errors),
		countTable("Dropped", "Reason", "Count", rep.Dropped),
		stores,
	}
}

func countTable[K ~string](title, key, value string, counts map[K]int) Data {
	d := Data{
		Title:           title,
		Headers:         []string{key, value},
		ColumnAlignment: countAlignment,
	}
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		d.Rows = append(d.Rows, []string{string(k), strconv.Itoa(counts[k])})
	}
	return d
}

// WriteReport renders a run report. The table format prints the summary
// lines followed by the count tables; json and yaml encode the whole report.
func WriteReport(w io.Writer, format Format, rep *consolidate.Report) error {
	if format != FormatTable {
		return NewFormatter(format).Format(w, rep)
	}
	if _, err := io.WriteString(w, rep.String()); err != nil {
		return err
	}
	return NewFormatter(FormatTable).Format(w, ReportTables(rep))
}
