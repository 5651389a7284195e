/*
Package export renders report rows for people and spreadsheets.

PURPOSE:
  The report package produces formatted rows; this package only lays them
  out. CSV uses ';' as separator so French spreadsheets open it without an
  import wizard. Tables are for terminals.

SEE ALSO:
  - report/row.go: Row and Field
  - api/reports.go: ?format=csv
  - cmd/amortir: table output
*/
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/report"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Separator is the CSV field delimiter.
const Separator = ';'

// ContentType is the media type of WriteCSV output.
const ContentType = "text/csv; charset=utf-8"

// WriteCSV writes rows with a header taken from the first row's field
// names. An empty report writes nothing.
func WriteCSV(w io.Writer, rows []report.Row) error {
	if len(rows) == 0 {
		return nil
	}

	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = Separator

	header := rows[0].Names()
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("row %d has %d fields, header has %d", i, len(row), len(header))
		}
		if err := csvWriter.Write(row.Values()); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// Filename suggests a download name for a report kind.
func Filename(kind report.Kind) string {
	switch kind {
	case report.KindDotations:
		return "etat_dotations.csv"
	case report.KindInventaire:
		return "inventaire_immobilisations.csv"
	case report.KindCerfa:
		return "etat_cerfa.csv"
	default:
		return fmt.Sprintf("rapport_%s.csv", kind)
	}
}

// WriteTable renders rows as a boxed text table.
func WriteTable(w io.Writer, title string, rows []report.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	if len(rows) == 0 {
		t.Render()
		return
	}

	header := table.Row{}
	for _, name := range rows[0].Names() {
		header = append(header, name)
	}
	t.AppendHeader(header)
	for _, row := range rows {
		r := table.Row{}
		for _, v := range row.Values() {
			r = append(r, v)
		}
		t.AppendRow(r)
	}
	t.Render()
}
