/*
policy.go - Depreciation policies (linear and declining-balance)

PURPOSE:
  A Policy computes one fiscal year's depreciation charge. It is chosen
  once per asset by PolicyFor and then driven year by year by the Builder.
  Policies are pure: they read the Step they are given and return a Charge.

POLICIES:
  Linear (amortissement linéaire):
    base = OriginalValue / UsefulLifeYears
    year 0        = base x heldDays / 365   (prorata temporis)
    middle years  = base
    final year    = remaining balance (absorbs rounding drift)

  Declining (amortissement dégressif):
    rate = DeclineRate / UsefulLifeYears
    year 0        = OriginalValue x rate x heldDays / 365
    year k >= 1   = remaining x rate, until remaining / (N - k) catches up;
                    from then on the straight-line remainder, permanently
    final year    = remaining balance (one remaining year)

CROSSOVER STATE:
  The switch from declining to straight line is the only state a plan
  carries between years. It travels in Step.Basis / Charge.Basis and is
  owned by the Builder's iteration, never by the policy value.

ROUNDING:
  Every charge is rounded half-up to cents and clamped to the remaining
  balance, so accumulated amounts are exact at 2 decimals.

SEE ALSO:
  - builder.go: Drives a Policy across fiscal years
  - asset/record.go: Record invariants checked by PolicyFor
*/
package depreciation

import (
	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/shopspring/decimal"
)

// DaysPerYear is the proration denominator for prorata temporis.
const DaysPerYear = 365

var daysPerYear = decimal.NewFromInt(DaysPerYear)

// =============================================================================
// POLICY - Interface for one year's charge
// =============================================================================

// Basis tells which rule produced a charge.
type Basis string

const (
	BasisDeclining    Basis = "DECLINING"
	BasisStraightLine Basis = "STRAIGHT_LINE"
)

// Step is everything a policy needs to price one fiscal year.
type Step struct {
	// Year is the 0-based index from the acquisition fiscal year.
	Year int

	// Remaining is the depreciable balance before this year's charge.
	Remaining decimal.Decimal

	// HeldDays is how many days of the fiscal year the asset was held,
	// capped at DaysPerYear.
	HeldDays int

	// Disposal is true when the asset leaves the books during this year.
	Disposal bool

	// Final is true for the last year of the policy's horizon.
	Final bool

	// Basis is the crossover state carried from the previous year.
	Basis Basis
}

// Charge is a policy's answer for one year.
type Charge struct {
	Amount decimal.Decimal
	Basis  Basis
}

// Policy computes yearly depreciation charges for one asset.
type Policy interface {
	// Method returns the asset method this policy implements.
	Method() asset.Method

	// InitialBasis is the crossover state of year 0.
	InitialBasis() Basis

	// Horizon returns how many fiscal years the plan spans given the
	// days held in the acquisition year.
	Horizon(firstYearDays int) int

	// Charge returns the charge for the year described by s.
	Charge(s Step) Charge
}

// PolicyFor validates r and selects its policy. This is the single place
// where the method tag is inspected.
func PolicyFor(r asset.Record) (Policy, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	switch r.Method {
	case asset.MethodLinear:
		return Linear{Value: r.OriginalValue, Life: r.UsefulLifeYears}, nil
	case asset.MethodDeclining:
		return Declining{Value: r.OriginalValue, Life: r.UsefulLifeYears, Coefficient: r.DeclineRate.Decimal}, nil
	default:
		return nil, &asset.UnsupportedMethodError{Code: r.Code, Method: r.Method}
	}
}

// =============================================================================
// LINEAR
// =============================================================================

// Linear spreads the original value evenly over the useful life.
type Linear struct {
	Value decimal.Decimal
	Life  int
}

func (Linear) Method() asset.Method { return asset.MethodLinear }
func (Linear) InitialBasis() Basis  { return BasisStraightLine }

// Horizon is one extra fiscal year when the first year is prorated,
// since the days not charged in year 0 are charged after year N-1.
func (p Linear) Horizon(firstYearDays int) int {
	if firstYearDays >= DaysPerYear {
		return p.Life
	}
	return p.Life + 1
}

func (p Linear) Charge(s Step) Charge {
	base := p.Value.Div(decimal.NewFromInt(int64(p.Life)))

	var amount decimal.Decimal
	switch {
	case s.Final && !s.Disposal:
		amount = s.Remaining
	case s.Year == 0 || s.Disposal:
		amount = prorate(base, s.HeldDays)
	default:
		amount = base.Round(2)
	}
	return Charge{Amount: clamp(amount, s.Remaining), Basis: BasisStraightLine}
}

// =============================================================================
// DECLINING
// =============================================================================

// Declining applies an accelerated rate to the remaining balance and
// switches to the straight-line remainder once that becomes larger.
type Declining struct {
	Value       decimal.Decimal
	Life        int
	Coefficient decimal.Decimal
}

func (Declining) Method() asset.Method { return asset.MethodDeclining }
func (Declining) InitialBasis() Basis  { return BasisDeclining }

// Horizon is always the useful life: the last year has a single
// remaining year, so the straight-line remainder takes the whole balance.
func (p Declining) Horizon(int) int { return p.Life }

// Rate returns the effective declining rate (1/N x coefficient).
func (p Declining) Rate() decimal.Decimal {
	return p.Coefficient.Div(decimal.NewFromInt(int64(p.Life)))
}

func (p Declining) Charge(s Step) Charge {
	life := decimal.NewFromInt(int64(p.Life))

	if s.Final && !s.Disposal {
		return Charge{Amount: s.Remaining, Basis: BasisStraightLine}
	}
	if s.Year == 0 {
		full := p.Value.Mul(p.Coefficient).Div(life)
		return Charge{Amount: clamp(prorate(full, s.HeldDays), s.Remaining), Basis: BasisDeclining}
	}

	remainingYears := p.Life - s.Year
	if remainingYears < 1 {
		remainingYears = 1
	}
	declining := s.Remaining.Mul(p.Coefficient).Div(life)
	straight := s.Remaining.Div(decimal.NewFromInt(int64(remainingYears)))

	basis := s.Basis
	if basis != BasisStraightLine && straight.GreaterThanOrEqual(declining) {
		basis = BasisStraightLine
	}

	amount := declining
	if basis == BasisStraightLine {
		amount = straight
	}
	if s.Disposal {
		amount = prorate(amount, s.HeldDays)
	} else {
		amount = amount.Round(2)
	}
	return Charge{Amount: clamp(amount, s.Remaining), Basis: basis}
}

// =============================================================================
// HELPERS
// =============================================================================

// prorate returns amount x days / 365 rounded to cents.
func prorate(amount decimal.Decimal, days int) decimal.Decimal {
	if days >= DaysPerYear {
		return amount.Round(2)
	}
	return amount.Mul(decimal.NewFromInt(int64(days))).Div(daysPerYear).Round(2)
}

func clamp(amount, remaining decimal.Decimal) decimal.Decimal {
	if amount.GreaterThan(remaining) {
		return remaining
	}
	return amount
}
