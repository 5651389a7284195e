/*
projector.go - Report projection over depreciation schedules

PURPOSE:
  Flattens assets and their schedules into rows for the known report
  shapes. The projector formats values but never renders or writes them:
  CSV and JSON output belong to export/ and api/.

REPORTS:
  Dotations   one row per asset with its charge for a fiscal year
              (0 when the schedule does not cover that year)
  Inventaire  one row per asset as of a date: static fields, accumulated
              depreciation, net book value, ACTIVE/DISPOSED status
  Cerfa       one row per family plus TOTAL: gross values and
              depreciation movements of a fiscal year

BATCHES:
  Schedules are computed with at most Workers goroutines. Each build reads
  its own Record copy, so workers share nothing; results are joined back
  in input order and rows keep that order.

REJECTIONS:
  An asset that fails to build is left out of the rows and listed in a
  *RejectionError. Data errors are logged at warn level, ComputationErrors
  at error level.

SEE ALSO:
  - depreciation/builder.go: Schedule construction
  - export/csv.go: CSV rendering of rows
*/
package report

import (
	"context"
	"errors"
	"sort"
	"strconv"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/depreciation"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Kind names a report shape.
type Kind string

const (
	KindDotations  Kind = "dotations"
	KindInventaire Kind = "inventaire"
	KindCerfa      Kind = "cerfa"
)

// Asset status values of the inventaire.
const (
	StatusActive   = "ACTIVE"
	StatusDisposed = "DISPOSED"
)

// TotalFamily labels the grand-total row of the CERFA report.
const TotalFamily = "TOTAL"

// DefaultWorkers is used when Projector.Workers is not positive.
const DefaultWorkers = 4

// =============================================================================
// PROJECTOR
// =============================================================================

// Projector builds report rows from asset snapshots.
type Projector struct {
	Builder depreciation.Builder
	Workers int
	Logger  *zap.Logger
}

// New returns a Projector. A nil logger disables logging.
func New(builder depreciation.Builder, workers int, logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{Builder: builder, Workers: workers, Logger: logger}
}

type computed struct {
	record   asset.Record
	schedule depreciation.Schedule
}

// Schedules computes the schedule of every asset. It returns the successful
// results in input order and a *RejectionError for the others. A cancelled
// context stops the batch and is returned as is.
func (p *Projector) Schedules(ctx context.Context, assets []asset.Record) ([]depreciation.Schedule, error) {
	results, err := p.compute(ctx, assets)
	schedules := make([]depreciation.Schedule, len(results))
	for i, c := range results {
		schedules[i] = c.schedule
	}
	return schedules, err
}

func (p *Projector) compute(ctx context.Context, assets []asset.Record) ([]computed, error) {
	workers := p.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	schedules := make([]depreciation.Schedule, len(assets))
	errs := make([]error, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range assets {
		i := i // per-iteration copy; go directive is below 1.22
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			schedules[i], errs[i] = p.Builder.Build(assets[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]computed, 0, len(assets))
	var rejections []Rejection
	for i, r := range assets {
		if errs[i] != nil {
			p.logRejection(r, errs[i])
			rejections = append(rejections, Rejection{Code: r.Code, Err: errs[i]})
			continue
		}
		results = append(results, computed{record: r, schedule: schedules[i]})
	}
	if len(rejections) > 0 {
		return results, &RejectionError{Rejections: rejections}
	}
	return results, nil
}

func (p *Projector) logRejection(r asset.Record, err error) {
	logger := p.Logger
	if logger == nil {
		return
	}
	if errors.Is(err, depreciation.ErrComputation) {
		logger.Error("depreciation computation failed", zap.String("asset", r.Code), zap.Error(err))
		return
	}
	logger.Warn("asset rejected from report", zap.String("asset", r.Code), zap.Error(err))
}

func (p *Projector) calendar() fiscal.Calendar {
	if p.Builder.Calendar.EndMonth == 0 {
		return fiscal.CalendarYear
	}
	return p.Builder.Calendar
}

// =============================================================================
// DOTATIONS - Charges of one fiscal year
// =============================================================================

// Dotations returns one row per accepted asset with its charge for
// fiscalYear.
func (p *Projector) Dotations(ctx context.Context, assets []asset.Record, fiscalYear int) ([]Row, error) {
	results, err := p.compute(ctx, assets)
	if err != nil && !isRejection(err) {
		return nil, err
	}

	rows := make([]Row, 0, len(results))
	for _, c := range results {
		charge := decimal.Zero
		if e, ok := c.schedule.Entry(fiscalYear); ok {
			charge = e.Charge
		}
		accumulated := c.schedule.AccumulatedAt(fiscalYear)

		b := &rowBuilder{}
		b.text("code", c.record.Code).
			text("libelle", c.record.Label).
			text("famille", c.record.FamilyCode).
			text("localisation", c.record.LocationCode).
			date("dateAcquisition", c.record.AcquisitionDate).
			amount("valeurOrigine", c.record.OriginalValue).
			text("typeAmortissement", string(c.record.Method)).
			text("duree", strconv.Itoa(c.record.UsefulLifeYears)).
			text("exercice", strconv.Itoa(fiscalYear)).
			amount("dotation", charge).
			amount("amortissementCumule", accumulated).
			amount("valeurNette", c.record.OriginalValue.Sub(accumulated))
		rows = append(rows, b.build())
	}
	return rows, err
}

// =============================================================================
// INVENTAIRE - Asset register as of a date
// =============================================================================

// Inventaire returns one row per accepted asset as of asOf. Accumulated
// depreciation includes the current fiscal year's charge prorated by the
// days held so far.
func (p *Projector) Inventaire(ctx context.Context, assets []asset.Record, asOf fiscal.Date) ([]Row, error) {
	results, err := p.compute(ctx, assets)
	if err != nil && !isRejection(err) {
		return nil, err
	}

	cal := p.calendar()
	rows := make([]Row, 0, len(results))
	for _, c := range results {
		accumulated := AccumulatedAsOf(c.schedule, c.record, cal, asOf)
		nbv := c.record.OriginalValue.Sub(accumulated)

		status := StatusActive
		if c.record.IsDisposed(asOf) {
			status = StatusDisposed
		}

		b := &rowBuilder{}
		b.text("code", c.record.Code).
			text("libelle", c.record.Label).
			text("famille", c.record.FamilyCode).
			text("localisation", c.record.LocationCode).
			date("dateAcquisition", c.record.AcquisitionDate).
			amount("valeurOrigine", c.record.OriginalValue).
			text("typeAmortissement", string(c.record.Method)).
			text("duree", strconv.Itoa(c.record.UsefulLifeYears)).
			amount("amortissementCumule", accumulated).
			amount("valeurNette", nbv).
			date("dateCession", c.record.DisposalDate).
			text("statut", status).
			text("amorti", strconv.FormatBool(nbv.LessThan(depreciation.Epsilon)))
		rows = append(rows, b.build())
	}
	return rows, err
}

// AccumulatedAsOf returns the accumulated depreciation of r on asOf: every
// closed fiscal year in full plus the current year's charge prorated by
// the days held up to asOf.
func AccumulatedAsOf(s depreciation.Schedule, r asset.Record, cal fiscal.Calendar, asOf fiscal.Date) decimal.Decimal {
	fy := cal.YearOf(asOf)
	accumulated := s.AccumulatedAt(fy - 1)

	e, ok := s.Entry(fy)
	if !ok {
		return accumulated
	}

	period := cal.Period(fy)
	start := fiscal.Max(period.Start, r.AcquisitionDate)
	end := asOf
	if r.HasDisposal() {
		end = fiscal.Min(end, r.DisposalDate)
	}
	if end.Before(start) {
		return accumulated
	}

	elapsed := fiscal.DaysInclusive(start, end)
	if elapsed >= e.HeldDays {
		return e.Accumulated
	}
	partial := e.Charge.Mul(decimal.NewFromInt(int64(elapsed))).
		Div(decimal.NewFromInt(int64(e.HeldDays))).
		Round(2)
	return accumulated.Add(partial)
}

// =============================================================================
// CERFA - Fixed assets and depreciation movements per family
// =============================================================================

type cerfaTotals struct {
	grossOpen    decimal.Decimal
	acquisitions decimal.Decimal
	disposals    decimal.Decimal
	deprOpen     decimal.Decimal
	charges      decimal.Decimal
	reversals    decimal.Decimal
}

func (t *cerfaTotals) add(o cerfaTotals) {
	t.grossOpen = t.grossOpen.Add(o.grossOpen)
	t.acquisitions = t.acquisitions.Add(o.acquisitions)
	t.disposals = t.disposals.Add(o.disposals)
	t.deprOpen = t.deprOpen.Add(o.deprOpen)
	t.charges = t.charges.Add(o.charges)
	t.reversals = t.reversals.Add(o.reversals)
}

func (t cerfaTotals) row(family string) Row {
	b := &rowBuilder{}
	b.text("famille", family).
		amount("valeurBruteOuverture", t.grossOpen).
		amount("acquisitions", t.acquisitions).
		amount("cessions", t.disposals).
		amount("valeurBruteCloture", t.grossOpen.Add(t.acquisitions).Sub(t.disposals)).
		amount("amortissementsOuverture", t.deprOpen).
		amount("dotations", t.charges).
		amount("reprises", t.reversals).
		amount("amortissementsCloture", t.deprOpen.Add(t.charges).Sub(t.reversals))
	return b.build()
}

// Cerfa returns the movements of fiscalYear grouped by family, sorted by
// family code, followed by a TOTAL row. Assets disposed before the year or
// acquired after it are left out.
func (p *Projector) Cerfa(ctx context.Context, assets []asset.Record, fiscalYear int) ([]Row, error) {
	results, err := p.compute(ctx, assets)
	if err != nil && !isRejection(err) {
		return nil, err
	}

	period := p.calendar().Period(fiscalYear)
	byFamily := map[string]*cerfaTotals{}
	for _, c := range results {
		r := c.record
		if r.AcquisitionDate.After(period.End) {
			continue
		}
		if r.HasDisposal() && r.DisposalDate.Before(period.Start) {
			continue
		}

		var t cerfaTotals
		if r.AcquisitionDate.Before(period.Start) {
			t.grossOpen = r.OriginalValue
			t.deprOpen = c.schedule.AccumulatedAt(fiscalYear - 1)
		} else {
			t.acquisitions = r.OriginalValue
		}
		if e, ok := c.schedule.Entry(fiscalYear); ok {
			t.charges = e.Charge
		}
		if period.Contains(r.DisposalDate) {
			t.disposals = r.OriginalValue
			t.reversals = c.schedule.AccumulatedAt(fiscalYear)
		}

		acc, ok := byFamily[r.FamilyCode]
		if !ok {
			acc = &cerfaTotals{}
			byFamily[r.FamilyCode] = acc
		}
		acc.add(t)
	}

	families := make([]string, 0, len(byFamily))
	for f := range byFamily {
		families = append(families, f)
	}
	sort.Strings(families)

	rows := make([]Row, 0, len(families)+1)
	var total cerfaTotals
	for _, f := range families {
		rows = append(rows, byFamily[f].row(f))
		total.add(*byFamily[f])
	}
	rows = append(rows, total.row(TotalFamily))
	return rows, err
}

func isRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}
