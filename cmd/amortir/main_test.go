package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts, err := parseArgs(args, io.Discard)
	require.NoError(t, err)

	var out bytes.Buffer
	err = run(context.Background(), opts, &out, zap.NewNop())
	return out.String(), err
}

func readCSV(t *testing.T, data string) [][]string {
	t.Helper()
	r := csv.NewReader(strings.NewReader(data))
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestParseArgs_Defaults(t *testing.T) {
	opts, err := parseArgs(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "schedule", opts.Command)
	assert.Equal(t, "12-31", opts.FiscalYearEnd)
	assert.Equal(t, 4, opts.Workers)

	opts, err = parseArgs([]string{"-csv", "-exercice", "2024", "cerfa"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "cerfa", opts.Command)
	assert.Equal(t, 2024, opts.FiscalYear)
	assert.True(t, opts.CSV)

	_, err = parseArgs([]string{"-exercice", "soon"}, io.Discard)
	assert.Error(t, err)
}

func TestSchedule_SingleAssetTable(t *testing.T) {
	out, err := runCLI(t, "-asset", "215400")
	require.NoError(t, err)

	assert.Contains(t, out, "215400 MATERIEL INDUSTRIEL (DECLINING, 5 ans, 15000.00)")
	assert.Contains(t, out, "4200.00")
	assert.Contains(t, out, "2281.50")
	assert.NotContains(t, out, "CHF02")
}

func TestSchedule_CSV(t *testing.T) {
	out, err := runCLI(t, "-csv", "-asset", "CHF02")
	require.NoError(t, err)

	records := readCSV(t, out)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"code", "exercice", "base", "joursDetention", "dotation", "amortissementCumule", "valeurNette"}, records[0])
	assert.Equal(t, "148.89", records[1][4])
	assert.Equal(t, "148.90", records[3][4])
	assert.Equal(t, "0.00", records[3][6])
}

func TestSchedule_UnknownAsset(t *testing.T) {
	_, err := runCLI(t, "-asset", "NOPE")
	assert.ErrorContains(t, err, "not found")
}

func TestDotations_CSVFromDataset(t *testing.T) {
	// GIVEN: A dataset file with one linear asset acquired mid-year
	// WHEN: The 2023 dotations are exported
	// THEN: The first-year charge is prorated over 184 days

	path := filepath.Join(t.TempDir(), "register.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
familles:
  - {code: MOB, libelle: MOBILIER, typeAmortissement: LINEAIRE, duree: 5}
immobilisations:
  - code: BUR01
    libelle: BUREAUX
    famille: MOB
    dateAcquisition: "2023-07-01"
    valeurOrigine: 12000.00
`), 0o600))

	out, err := runCLI(t, "-data", path, "-exercice", "2023", "-csv", "dotations")
	require.NoError(t, err)

	records := readCSV(t, out)
	require.Len(t, records, 2)
	header := records[0]
	require.Equal(t, "dotation", header[9])
	assert.Equal(t, "1209.86", records[1][9])
}

func TestInventaireAndCerfaTables(t *testing.T) {
	out, err := runCLI(t, "-date", "2024-12-31", "inventaire")
	require.NoError(t, err)
	assert.Contains(t, out, "Inventaire au 2024-12-31")
	assert.Contains(t, out, "ACTIVE")

	out, err = runCLI(t, "-exercice", "2021", "cerfa")
	require.NoError(t, err)
	assert.Contains(t, out, "CERFA exercice 2021")
	assert.Contains(t, out, "TOTAL")
}

func TestRun_Errors(t *testing.T) {
	_, err := runCLI(t, "bilan")
	assert.ErrorContains(t, err, "unknown command")

	_, err = runCLI(t, "-fiscal-year-end", "13-01")
	assert.Error(t, err)

	_, err = runCLI(t, "-date", "31/12/2024", "inventaire")
	assert.Error(t, err)

	_, err = runCLI(t, "-data", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
