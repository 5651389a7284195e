/*
main.go - Command-line depreciation calculator

PURPOSE:
  Computes schedules and reports from a YAML asset dataset without a
  server or database. Output is a text table, or CSV with -csv.

USAGE:
  amortir [flags] [schedule|dotations|inventaire|cerfa]

  schedule    one table per asset (default), or only -asset CODE
  dotations   charges of -exercice
  inventaire  register as of -date
  cerfa       per-family movements of -exercice

FLAGS:
  -data             YAML dataset (default: the embedded demo register)
  -asset            restrict "schedule" to one asset code
  -exercice         fiscal year label (default: current fiscal year)
  -date             inventory date YYYY-MM-DD (default: today)
  -fiscal-year-end  closing day MM-DD (default: 12-31)
  -workers          parallel schedule builds (default: 4)
  -csv              write ';'-separated CSV instead of tables

EXAMPLES:
  amortir -asset 215400
  amortir -data register.yaml -exercice 2024 -csv dotations > dotations.csv
  amortir -fiscal-year-end 06-30 cerfa

SEE ALSO:
  - factory/dataset.go: Dataset format
  - export/csv.go: CSV and table rendering
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/depreciation"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/export"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/factory"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/report"
	"go.uber.org/zap"
)

// options are the parsed command line.
type options struct {
	Command       string
	DataPath      string
	AssetCode     string
	FiscalYear    int
	AsOf          string
	FiscalYearEnd string
	Workers       int
	CSV           bool
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "amortir: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(context.Background(), opts, os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "amortir: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("amortir", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.DataPath, "data", "", "YAML dataset (default: embedded demo register)")
	fs.StringVar(&opts.AssetCode, "asset", "", "asset code for the schedule command")
	fs.IntVar(&opts.FiscalYear, "exercice", 0, "fiscal year label (default: current)")
	fs.StringVar(&opts.AsOf, "date", "", "inventory date YYYY-MM-DD (default: today)")
	fs.StringVar(&opts.FiscalYearEnd, "fiscal-year-end", fiscal.CalendarYear.String(), "fiscal year closing day MM-DD")
	fs.IntVar(&opts.Workers, "workers", report.DefaultWorkers, "parallel schedule builds")
	fs.BoolVar(&opts.CSV, "csv", false, "write CSV instead of tables")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.Command = "schedule"
	if fs.NArg() > 0 {
		opts.Command = fs.Arg(0)
	}
	return opts, nil
}

func run(ctx context.Context, opts options, out io.Writer, logger *zap.Logger) error {
	cal, err := fiscal.ParseCalendar(opts.FiscalYearEnd)
	if err != nil {
		return fmt.Errorf("-fiscal-year-end: %w", err)
	}

	catalog, err := loadCatalog(opts.DataPath)
	if err != nil {
		return err
	}

	builder := depreciation.NewBuilder(cal)
	projector := report.New(builder, opts.Workers, logger)

	fy := opts.FiscalYear
	if fy == 0 {
		fy = cal.YearOf(fiscal.Today())
	}

	var (
		kind  report.Kind
		title string
		rows  []report.Row
	)
	switch opts.Command {
	case "schedule":
		return writeSchedules(out, builder, catalog.Assets, opts)
	case string(report.KindDotations):
		kind, title = report.KindDotations, fmt.Sprintf("Dotations exercice %d", fy)
		rows, err = projector.Dotations(ctx, catalog.Assets, fy)
	case string(report.KindInventaire):
		asOf := fiscal.Today()
		if opts.AsOf != "" {
			if asOf, err = fiscal.ParseDate(opts.AsOf); err != nil {
				return fmt.Errorf("-date: %w", err)
			}
		}
		kind, title = report.KindInventaire, "Inventaire au "+asOf.String()
		rows, err = projector.Inventaire(ctx, catalog.Assets, asOf)
	case string(report.KindCerfa):
		kind, title = report.KindCerfa, fmt.Sprintf("CERFA exercice %d", fy)
		rows, err = projector.Cerfa(ctx, catalog.Assets, fy)
	default:
		return fmt.Errorf("unknown command %q (use schedule, dotations, inventaire or cerfa)", opts.Command)
	}

	var rejected *report.RejectionError
	if err != nil && !errors.As(err, &rejected) {
		return err
	}

	if opts.CSV {
		if werr := export.WriteCSV(out, rows); werr != nil {
			return werr
		}
	} else {
		export.WriteTable(out, title, rows)
	}
	if rejected != nil {
		return fmt.Errorf("%s: %w", kind, rejected)
	}
	return nil
}

func loadCatalog(path string) (factory.Catalog, error) {
	var (
		ds  factory.Dataset
		err error
	)
	if path == "" {
		ds, err = factory.Seed()
	} else {
		ds, err = factory.LoadDataset(path)
	}
	if err != nil {
		return factory.Catalog{}, err
	}
	return ds.Resolve()
}

func writeSchedules(out io.Writer, builder depreciation.Builder, assets []asset.Record, opts options) error {
	found := false
	var rows []report.Row
	for _, r := range assets {
		if opts.AssetCode != "" && r.Code != opts.AssetCode {
			continue
		}
		found = true

		s, err := builder.Build(r)
		if err != nil {
			return err
		}
		if opts.CSV {
			rows = append(rows, report.ScheduleRows(s)...)
			continue
		}
		title := fmt.Sprintf("%s %s (%s, %d ans, %s)", r.Code, r.Label, r.Method, r.UsefulLifeYears, r.OriginalValue.StringFixed(2))
		export.WriteTable(out, title, report.ScheduleRows(s))
	}
	if opts.AssetCode != "" && !found {
		return fmt.Errorf("asset %q not found", opts.AssetCode)
	}
	if opts.CSV {
		return export.WriteCSV(out, rows)
	}
	return nil
}
