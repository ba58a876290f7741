package consolidate

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/ledgermap/pkg/constants"
	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/provenance"
	"github.com/agentstation/ledgermap/pkg/records"
)

// Output column layouts.
var (
	CustomerColumns = []string{
		"id", "source_system", "store_id", "match_method", "confidence_tier",
		"name", "email", "phone", "birthdate", "legacy_ids", "lineage_count",
	}
	SaleColumns = []string{
		"id", "source_system", "store_id", "match_method", "confidence_tier",
		"sale_number", "customer_id", "total", "down_payment", "notes", "adjusted",
	}
	PaymentColumns = []string{"sale_id", "method", "amount"}
	LineageColumns = []string{
		"customer_id", "source_system", "store_id", "source_record_id", "match_method", "confidence_tier",
	}
	ReviewColumns = []string{
		"row_id", "source_system", "store_id", "source_record_id", "name", "strategy", "candidates", "reason",
	}
)

// listSeparator joins multi-valued cells.
const listSeparator = "|"

// Write writes every output file of the dataset into dir, creating it if
// needed. Each file is replaced atomically.
func (d *Dataset) Write(dir string) error {
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", dir, err)
	}
	writers := []struct {
		name  string
		write func(io.Writer) error
	}{
		{constants.CustomersFile, d.WriteCustomers},
		{constants.SalesFile, d.WriteSales},
		{constants.PaymentsFile, d.WritePayments},
		{constants.LineageFile, d.WriteLineage},
		{constants.ReviewFile, d.WriteReview},
		{constants.ReportFile, d.WriteReport},
	}
	for _, w := range writers {
		if err := writeFile(filepath.Join(dir, w.name), w.write); err != nil {
			return err
		}
	}
	return provenance.Save(filepath.Join(dir, constants.ProvenanceFile), d.Provenance)
}

// WriteCustomers writes the canonical customers as CSV.
func (d *Dataset) WriteCustomers(w io.Writer) error {
	rows := make([][]string, 0, len(d.Customers))
	for _, e := range d.Customers {
		birthdate := ""
		if e.HasBirthdate() {
			birthdate = e.Birthdate.Format(time.DateOnly)
		}
		rows = append(rows, []string{
			e.UUID, string(e.Source), string(e.Store), string(e.Method), string(e.Tier),
			e.Name, e.Email, e.Phone, birthdate,
			strings.Join(e.LegacyIDs, listSeparator),
			strconv.Itoa(len(e.Lineage)),
		})
	}
	return writeCSV(w, CustomerColumns, rows)
}

// WriteSales writes the consolidated sales as CSV.
func (d *Dataset) WriteSales(w io.Writer) error {
	rows := make([][]string, 0, len(d.Sales))
	for _, s := range d.Sales {
		rows = append(rows, []string{
			s.UUID, string(s.Source), string(s.Store), string(s.CustomerMethod), string(s.CustomerTier),
			s.SaleNumber, s.CustomerID,
			s.Total.StringFixed(2), s.DownPayment.StringFixed(2),
			s.Notes, strconv.FormatBool(s.Adjusted),
		})
	}
	return writeCSV(w, SaleColumns, rows)
}

// WritePayments writes the per-method breakdown of every sale.
func (d *Dataset) WritePayments(w io.Writer) error {
	var rows [][]string
	for _, s := range d.Sales {
		for _, p := range s.Payments {
			rows = append(rows, []string{s.UUID, p.Method, p.Amount.StringFixed(2)})
		}
	}
	return writeCSV(w, PaymentColumns, rows)
}

// WriteLineage writes one row per source record linked to a customer.
func (d *Dataset) WriteLineage(w io.Writer) error {
	var rows [][]string
	for _, e := range d.Customers {
		for _, l := range e.Lineage {
			rows = append(rows, []string{
				e.UUID, string(l.SourceSystem), string(l.Store), l.SourceRecordID,
				string(l.MatchMethod), string(l.Confidence),
			})
		}
	}
	return writeCSV(w, LineageColumns, rows)
}

// WriteReview writes the records left for manual review.
func (d *Dataset) WriteReview(w io.Writer) error {
	rows := make([][]string, 0, len(d.Review))
	for _, r := range d.Review {
		rows = append(rows, reviewRow(r))
	}
	return writeCSV(w, ReviewColumns, rows)
}

func reviewRow(r records.ReviewItem) []string {
	return []string{
		r.RowID, string(r.Source), string(r.Store), r.RecordID, r.Name,
		r.Strategy, strings.Join(r.Candidates, listSeparator), r.Reason,
	}
}

// WriteReport writes the report as YAML.
func (d *Dataset) WriteReport(w io.Writer) error {
	data, err := yaml.MarshalWithOptions(d.Report, yaml.UseLiteralStyleIfMultiline(true))
	if err != nil {
		return errors.WrapParse("yaml", constants.ReportFile, err)
	}
	_, err = w.Write(data)
	return err
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// writeFile writes through a temporary file in the same directory and
// renames it into place.
func writeFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := bw.Flush(); err != nil {
		_ = tmp.Close()
		return errors.WrapIO("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapIO("close", path, err)
	}
	if err := os.Chmod(tmpPath, constants.FilePermissions); err != nil {
		return errors.WrapIO("chmod", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.WrapIO("move", path, err)
	}
	return nil
}
