package export_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/export"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []report.Row {
	return []report.Row{
		{{Name: "code", Value: "CHF02"}, {Name: "libelle", Value: "FAUTEUILS; DIRECTION"}, {Name: "dotation", Value: "0.00"}},
		{{Name: "code", Value: "218200"}, {Name: "libelle", Value: "MATERIEL DE TRANSPORT"}, {Name: "dotation", Value: "6250.00"}},
	}
}

func TestWriteCSV_SemicolonWithHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, sampleRows()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "code;libelle;dotation", lines[0])
	assert.Equal(t, `CHF02;"FAUTEUILS; DIRECTION";0.00`, lines[1])
	assert.Equal(t, "218200;MATERIEL DE TRANSPORT;6250.00", lines[2])

	// Round trip through a reader using the same separator
	r := csv.NewReader(strings.NewReader(buf.String()))
	r.Comma = export.Separator
	records, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "FAUTEUILS; DIRECTION", records[1][1])
}

func TestWriteCSV_EmptyAndMismatched(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteCSV(&buf, nil))
	assert.Empty(t, buf.String())

	rows := sampleRows()
	rows[1] = rows[1][:2]
	assert.Error(t, export.WriteCSV(&buf, rows))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "etat_dotations.csv", export.Filename(report.KindDotations))
	assert.Equal(t, "inventaire_immobilisations.csv", export.Filename(report.KindInventaire))
	assert.Equal(t, "etat_cerfa.csv", export.Filename(report.KindCerfa))
	assert.Equal(t, "rapport_autre.csv", export.Filename(report.Kind("autre")))
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	export.WriteTable(&buf, "Dotations 2024", sampleRows())

	out := buf.String()
	assert.Contains(t, out, "Dotations 2024")
	assert.Contains(t, out, "CHF02")
	assert.Contains(t, out, "6250.00")
}
