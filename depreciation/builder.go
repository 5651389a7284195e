/*
builder.go - Schedule construction

PURPOSE:
  The Builder drives a Policy across successive fiscal years and produces
  the full depreciation schedule (plan d'amortissement) of one asset.

STATES:
  INITIALIZED  asset validated, remaining = OriginalValue, year = 0
  ITERATING    ask the policy for the year's charge, clamp it, append an
               entry, advance the year and the remaining balance
  TERMINATED   remaining balance reached 0, or the disposal year was
               emitted

  Exhausting the policy horizon with a balance left is a ComputationError.

DETERMINISM:
  Build reads only its Record argument and keeps all iteration state in
  local variables. Two builds of the same snapshot are identical and any
  number of builds may run concurrently.

EXAMPLE:
  s, err := depreciation.Compute(rec)
  for _, e := range s.Entries {
      fmt.Println(e.FiscalYear, e.Charge, e.Accumulated, e.NetBookValue)
  }

SEE ALSO:
  - policy.go: Per-year charge rules
  - report/projector.go: Aggregates schedules into report rows
*/
package depreciation

import (
	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/shopspring/decimal"
)

// Epsilon is the tolerance under which a balance counts as fully depreciated.
var Epsilon = decimal.New(1, -2)

// =============================================================================
// SCHEDULE
// =============================================================================

// Entry is one fiscal year of a schedule.
type Entry struct {
	FiscalYear   int
	Charge       decimal.Decimal
	Accumulated  decimal.Decimal
	NetBookValue decimal.Decimal
	Basis        Basis
	HeldDays     int
}

// Schedule is the ordered plan of one asset. It belongs to the caller.
type Schedule struct {
	AssetCode     string
	Method        asset.Method
	OriginalValue decimal.Decimal
	Entries       []Entry

	// Disposed is true when the plan was cut short by a disposal.
	Disposed bool
}

// Entry returns the entry for fiscal year fy.
func (s Schedule) Entry(fy int) (Entry, bool) {
	for _, e := range s.Entries {
		if e.FiscalYear == fy {
			return e, true
		}
	}
	return Entry{}, false
}

// AccumulatedAt returns accumulated depreciation at the close of fiscal
// year fy: zero before the first entry, frozen after the last one.
func (s Schedule) AccumulatedAt(fy int) decimal.Decimal {
	acc := decimal.Zero
	for _, e := range s.Entries {
		if e.FiscalYear > fy {
			break
		}
		acc = e.Accumulated
	}
	return acc
}

// Total returns the sum of all charges.
func (s Schedule) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Entries {
		total = total.Add(e.Charge)
	}
	return total
}

// Last returns the final entry; ok is false for an empty schedule.
func (s Schedule) Last() (Entry, bool) {
	if len(s.Entries) == 0 {
		return Entry{}, false
	}
	return s.Entries[len(s.Entries)-1], true
}

// FullyDepreciated reports whether the net book value reached zero.
func (s Schedule) FullyDepreciated() bool {
	last, ok := s.Last()
	return ok && last.NetBookValue.LessThan(Epsilon)
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder computes schedules against a fiscal calendar. It carries
// configuration only, so one Builder may be shared freely.
type Builder struct {
	Calendar fiscal.Calendar
}

// NewBuilder returns a Builder for the given calendar.
func NewBuilder(cal fiscal.Calendar) Builder {
	return Builder{Calendar: cal}
}

// Compute builds the schedule of r on calendar fiscal years.
func Compute(r asset.Record) (Schedule, error) {
	return NewBuilder(fiscal.CalendarYear).Build(r)
}

// Build validates r, selects its policy and iterates to termination.
func (b Builder) Build(r asset.Record) (Schedule, error) {
	policy, err := PolicyFor(r)
	if err != nil {
		return Schedule{}, err
	}
	return b.run(r, policy)
}

func (b Builder) run(r asset.Record, policy Policy) (Schedule, error) {
	cal := b.Calendar
	if cal.EndMonth == 0 {
		cal = fiscal.CalendarYear
	}

	firstYear := cal.YearOf(r.AcquisitionDate)
	disposalYear := 0
	if r.HasDisposal() {
		disposalYear = cal.YearOf(r.DisposalDate)
	}

	// INITIALIZED
	remaining := r.OriginalValue
	accumulated := decimal.Zero
	basis := policy.InitialBasis()
	horizon := policy.Horizon(heldDays(cal.Period(firstYear), r))

	schedule := Schedule{
		AssetCode:     r.Code,
		Method:        policy.Method(),
		OriginalValue: r.OriginalValue,
		Entries:       make([]Entry, 0, horizon),
	}

	// ITERATING
	for year := 0; year < horizon; year++ {
		period := cal.Period(firstYear + year)
		disposal := r.HasDisposal() && period.Label == disposalYear
		days := heldDays(period, r)

		charge := policy.Charge(Step{
			Year:      year,
			Remaining: remaining,
			HeldDays:  days,
			Disposal:  disposal,
			Final:     year == horizon-1,
			Basis:     basis,
		})

		if charge.Amount.IsNegative() {
			return Schedule{}, &ComputationError{Code: r.Code, Year: period.Label, Reason: "negative charge " + charge.Amount.String()}
		}
		amount := charge.Amount
		if amount.GreaterThan(remaining) {
			amount = remaining
		}
		// A sub-cent residue is folded into the charge that leaves it.
		if !disposal && remaining.Sub(amount).LessThan(Epsilon) {
			amount = remaining
		}

		remaining = remaining.Sub(amount)
		accumulated = accumulated.Add(amount)
		basis = charge.Basis

		if remaining.IsNegative() {
			return Schedule{}, &ComputationError{Code: r.Code, Year: period.Label, Reason: "negative remaining balance"}
		}

		schedule.Entries = append(schedule.Entries, Entry{
			FiscalYear:   period.Label,
			Charge:       amount,
			Accumulated:  accumulated,
			NetBookValue: r.OriginalValue.Sub(accumulated),
			Basis:        charge.Basis,
			HeldDays:     days,
		})

		// TERMINATED
		if disposal {
			schedule.Disposed = true
			return schedule, nil
		}
		if remaining.IsZero() {
			return schedule, nil
		}
	}

	return Schedule{}, &ComputationError{
		Code:   r.Code,
		Year:   firstYear + horizon - 1,
		Reason: "balance " + remaining.StringFixed(2) + " left after the useful-life horizon",
	}
}

// heldDays counts the days of period during which r was on the books,
// capped at DaysPerYear.
func heldDays(period fiscal.Period, r asset.Record) int {
	start := fiscal.Max(period.Start, r.AcquisitionDate)
	end := period.End
	if r.HasDisposal() {
		end = fiscal.Min(end, r.DisposalDate)
	}
	days := fiscal.DaysInclusive(start, end)
	if days > DaysPerYear {
		return DaysPerYear
	}
	return days
}
