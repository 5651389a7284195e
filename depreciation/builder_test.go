package depreciation_test

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/depreciation"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func linearAsset(value string, acquired string, life int) asset.Record {
	return asset.Record{
		Code:            "LIN-1",
		Label:           "Linear test asset",
		FamilyCode:      "MOB",
		LocationCode:    "SS",
		AcquisitionDate: fiscal.MustParseDate(acquired),
		OriginalValue:   dec(value),
		Method:          asset.MethodLinear,
		UsefulLifeYears: life,
	}
}

func decliningAsset(value string, acquired string, life int, rate string) asset.Record {
	r := linearAsset(value, acquired, life)
	r.Code = "DEG-1"
	r.Method = asset.MethodDeclining
	return r.WithDeclineRate(dec(rate))
}

type row struct {
	year   int
	charge string
	acc    string
	nbv    string
}

func assertEntries(t *testing.T, s depreciation.Schedule, want []row) {
	t.Helper()
	require.Len(t, s.Entries, len(want))
	for i, w := range want {
		e := s.Entries[i]
		assert.Equal(t, w.year, e.FiscalYear, "entry %d year", i)
		assert.Equal(t, w.charge, e.Charge.StringFixed(2), "entry %d (%d) charge", i, w.year)
		assert.Equal(t, w.acc, e.Accumulated.StringFixed(2), "entry %d (%d) accumulated", i, w.year)
		assert.Equal(t, w.nbv, e.NetBookValue.StringFixed(2), "entry %d (%d) net book value", i, w.year)
	}
}

// =============================================================================
// LINEAR
// =============================================================================

func TestCompute_Linear_ProratedFirstYear(t *testing.T) {
	// GIVEN: 12000.00 acquired 2023-07-01, 5 years linear
	// WHEN: Computing the schedule
	// THEN: 2023 is 184/365 of 2400, 2024-2027 are flat, 2028 zeroes out

	s, err := depreciation.Compute(linearAsset("12000.00", "2023-07-01", 5))
	require.NoError(t, err)

	assertEntries(t, s, []row{
		{2023, "1209.86", "1209.86", "10790.14"},
		{2024, "2400.00", "3609.86", "8390.14"},
		{2025, "2400.00", "6009.86", "5990.14"},
		{2026, "2400.00", "8409.86", "3590.14"},
		{2027, "2400.00", "10809.86", "1190.14"},
		{2028, "1190.14", "12000.00", "0.00"},
	})
	assert.False(t, s.Disposed)
	assert.True(t, s.FullyDepreciated())
	assert.Equal(t, 184, s.Entries[0].HeldDays)
}

func TestCompute_Linear_FullFirstYear(t *testing.T) {
	// GIVEN: Acquired on the first day of the fiscal year
	// THEN: Exactly N entries, the last absorbing rounding drift

	s, err := depreciation.Compute(linearAsset("446.68", "1999-01-01", 3))
	require.NoError(t, err)

	assertEntries(t, s, []row{
		{1999, "148.89", "148.89", "297.79"},
		{2000, "148.89", "297.78", "148.90"},
		{2001, "148.90", "446.68", "0.00"},
	})
}

func TestCompute_Linear_LeapYearAcquisitionCapsFraction(t *testing.T) {
	// GIVEN: Acquired January 1 of a leap year (366 days held)
	// THEN: Year 0 is charged exactly one base, never more

	s, err := depreciation.Compute(linearAsset("1000.00", "2024-01-01", 4))
	require.NoError(t, err)
	require.Len(t, s.Entries, 4)
	assert.Equal(t, "250.00", s.Entries[0].Charge.StringFixed(2))
	assert.Equal(t, depreciation.DaysPerYear, s.Entries[0].HeldDays)
}

func TestCompute_Linear_SingleYearLife(t *testing.T) {
	s, err := depreciation.Compute(linearAsset("999.99", "2022-01-01", 1))
	require.NoError(t, err)
	assertEntries(t, s, []row{{2022, "999.99", "999.99", "0.00"}})

	prorated, err := depreciation.Compute(linearAsset("730.00", "2022-07-02", 1))
	require.NoError(t, err)
	assertEntries(t, prorated, []row{
		{2022, "366.00", "366.00", "364.00"},
		{2023, "364.00", "730.00", "0.00"},
	})
}

// =============================================================================
// DISPOSAL
// =============================================================================

func TestCompute_DisposalTruncatesSchedule(t *testing.T) {
	// GIVEN: The 12000.00 asset disposed on 2025-03-31
	// THEN: 2023, 2024 and a 2025 entry prorated to 90/365, nothing after

	r := linearAsset("12000.00", "2023-07-01", 5).WithDisposal(fiscal.MustParseDate("2025-03-31"))
	s, err := depreciation.Compute(r)
	require.NoError(t, err)

	assertEntries(t, s, []row{
		{2023, "1209.86", "1209.86", "10790.14"},
		{2024, "2400.00", "3609.86", "8390.14"},
		{2025, "591.78", "4201.64", "7798.36"},
	})
	assert.True(t, s.Disposed)
	assert.False(t, s.FullyDepreciated())
	assert.Equal(t, 90, s.Entries[2].HeldDays)
}

func TestCompute_DisposalInAcquisitionYear(t *testing.T) {
	r := linearAsset("3650.00", "2024-02-01", 5).WithDisposal(fiscal.MustParseDate("2024-02-10"))
	s, err := depreciation.Compute(r)
	require.NoError(t, err)

	// 730 per year x 10 days / 365
	assertEntries(t, s, []row{{2024, "20.00", "20.00", "3630.00"}})
	assert.True(t, s.Disposed)
}

func TestCompute_DisposalAfterFullDepreciation(t *testing.T) {
	r := linearAsset("900.00", "2020-01-01", 3).WithDisposal(fiscal.MustParseDate("2030-06-30"))
	s, err := depreciation.Compute(r)
	require.NoError(t, err)

	assert.Len(t, s.Entries, 3)
	assert.False(t, s.Disposed)
	assert.True(t, s.FullyDepreciated())
}

func TestCompute_DisposalInFinalYear(t *testing.T) {
	r := linearAsset("12000.00", "2023-07-01", 5).WithDisposal(fiscal.MustParseDate("2028-03-31"))
	s, err := depreciation.Compute(r)
	require.NoError(t, err)

	require.Len(t, s.Entries, 6)
	last, _ := s.Last()
	assert.Equal(t, "591.78", last.Charge.StringFixed(2))
	assert.Equal(t, "598.36", last.NetBookValue.StringFixed(2))
	assert.True(t, s.Disposed)
}

// =============================================================================
// DECLINING
// =============================================================================

func TestCompute_Declining_CrossoverToStraightLine(t *testing.T) {
	// GIVEN: 15000.00 acquired 2020-03-15, 5 years, coefficient 1.75 (35%)
	// WHEN: Computing the schedule
	// THEN: Declining charges until the straight-line remainder catches up

	s, err := depreciation.Compute(decliningAsset("15000.00", "2020-03-15", 5, "1.75"))
	require.NoError(t, err)

	assertEntries(t, s, []row{
		{2020, "4200.00", "4200.00", "10800.00"},
		{2021, "3780.00", "7980.00", "7020.00"},
		{2022, "2457.00", "10437.00", "4563.00"},
		{2023, "2281.50", "12718.50", "2281.50"},
		{2024, "2281.50", "15000.00", "0.00"},
	})

	bases := []depreciation.Basis{}
	for _, e := range s.Entries {
		bases = append(bases, e.Basis)
	}
	assert.Equal(t, []depreciation.Basis{
		depreciation.BasisDeclining,
		depreciation.BasisDeclining,
		depreciation.BasisDeclining,
		depreciation.BasisStraightLine,
		depreciation.BasisStraightLine,
	}, bases)
}

func TestCompute_Declining_EarlyCrossoverKeepsStraightLine(t *testing.T) {
	// GIVEN: 4-year life with coefficient 1.25 (31.25%), full first year
	// THEN: Crossover in year 1, straight-line remainder afterwards

	s, err := depreciation.Compute(decliningAsset("10000.00", "2021-01-01", 4, "1.25"))
	require.NoError(t, err)

	assertEntries(t, s, []row{
		{2021, "3125.00", "3125.00", "6875.00"},
		{2022, "2291.67", "5416.67", "4583.33"},
		{2023, "2291.67", "7708.34", "2291.66"},
		{2024, "2291.66", "10000.00", "0.00"},
	})
	assert.Equal(t, depreciation.BasisDeclining, s.Entries[0].Basis)
	for _, e := range s.Entries[1:] {
		assert.Equal(t, depreciation.BasisStraightLine, e.Basis)
	}
}

func TestCompute_Declining_DisposalProratesRuleCharge(t *testing.T) {
	r := decliningAsset("15000.00", "2020-03-15", 5, "1.75").WithDisposal(fiscal.MustParseDate("2021-06-30"))
	s, err := depreciation.Compute(r)
	require.NoError(t, err)

	// 3780.00 x 181 / 365
	require.Len(t, s.Entries, 2)
	assert.Equal(t, "1874.47", s.Entries[1].Charge.StringFixed(2))
	assert.True(t, s.Disposed)
}

func TestCompute_Declining_CoefficientAboveLife(t *testing.T) {
	// A rate above 100% is clamped to the balance and ends in year 0.
	s, err := depreciation.Compute(decliningAsset("500.00", "2022-01-01", 2, "3"))
	require.NoError(t, err)
	assertEntries(t, s, []row{{2022, "500.00", "500.00", "0.00"}})
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCompute_RejectsInvalidAssets(t *testing.T) {
	zero := linearAsset("0", "2022-01-01", 3)
	_, err := depreciation.Compute(zero)
	assert.ErrorIs(t, err, asset.ErrInvalidAsset)

	noLife := linearAsset("100", "2022-01-01", 0)
	_, err = depreciation.Compute(noLife)
	assert.ErrorIs(t, err, asset.ErrInvalidAsset)

	noRate := linearAsset("100", "2022-01-01", 5)
	noRate.Method = asset.MethodDeclining
	_, err = depreciation.Compute(noRate)
	assert.ErrorIs(t, err, asset.ErrInvalidAsset)

	land := linearAsset("100", "2022-01-01", 5)
	land.Method = asset.MethodNone
	_, err = depreciation.Compute(land)
	assert.ErrorIs(t, err, asset.ErrUnsupportedMethod)
	assert.NotErrorIs(t, err, depreciation.ErrComputation)
}

func TestPolicyFor_SelectsVariantOnce(t *testing.T) {
	p, err := depreciation.PolicyFor(linearAsset("100", "2022-01-01", 5))
	require.NoError(t, err)
	assert.IsType(t, depreciation.Linear{}, p)
	assert.Equal(t, asset.MethodLinear, p.Method())

	p, err = depreciation.PolicyFor(decliningAsset("100", "2022-01-01", 5, "1.75"))
	require.NoError(t, err)
	require.IsType(t, depreciation.Declining{}, p)
	assert.Equal(t, "0.35", p.(depreciation.Declining).Rate().StringFixed(2))
	assert.Equal(t, 5, p.Horizon(100))
}

func TestComputationError_Classification(t *testing.T) {
	err := error(&depreciation.ComputationError{Code: "X", Year: 2030, Reason: "balance left"})
	assert.ErrorIs(t, err, depreciation.ErrComputation)
	assert.False(t, asset.IsClientError(err))
	assert.Contains(t, err.Error(), "2030")
}

// =============================================================================
// FISCAL CALENDAR
// =============================================================================

func TestBuilder_NonCalendarFiscalYear(t *testing.T) {
	// GIVEN: Fiscal years closing June 30
	// WHEN: An asset is acquired 2024-01-01 (182 days before the 2024 close)
	// THEN: Year labels follow the closing year

	b := depreciation.NewBuilder(fiscal.Calendar{EndMonth: time.June, EndDay: 30})
	s, err := b.Build(linearAsset("3650.00", "2024-01-01", 2))
	require.NoError(t, err)

	// 1825 x 182 / 365 = 910.00
	assertEntries(t, s, []row{
		{2024, "910.00", "910.00", "2740.00"},
		{2025, "1825.00", "2735.00", "915.00"},
		{2026, "915.00", "3650.00", "0.00"},
	})
}

// =============================================================================
// PROPERTIES
// =============================================================================

func randomAssets(n int) []asset.Record {
	rng := rand.New(rand.NewSource(42))
	start := fiscal.NewDate(2010, time.January, 1)
	out := make([]asset.Record, 0, n)
	for i := 0; i < n; i++ {
		cents := rng.Int63n(5_000_000) + 1
		acquired := start.AddDays(rng.Intn(365 * 10))
		life := rng.Intn(12) + 1
		value := decimal.New(cents, -2)

		r := asset.Record{
			Code:            fmt.Sprintf("A%04d", i),
			AcquisitionDate: acquired,
			OriginalValue:   value,
			Method:          asset.MethodLinear,
			UsefulLifeYears: life,
		}
		if i%2 == 1 {
			coefficients := []string{"1.25", "1.75", "2.25"}
			r.Method = asset.MethodDeclining
			r = r.WithDeclineRate(dec(coefficients[rng.Intn(len(coefficients))]))
		}
		out = append(out, r)
	}
	return out
}

func TestProperties_ZeroingAndMonotonicity(t *testing.T) {
	for _, r := range randomAssets(400) {
		s, err := depreciation.Compute(r)
		require.NoError(t, err, r.Code)

		bound := r.UsefulLifeYears
		if r.Method == asset.MethodLinear {
			bound++
		}
		assert.LessOrEqual(t, len(s.Entries), bound, r.Code)

		// Sum of charges equals the original value
		assert.True(t, s.Total().Sub(r.OriginalValue).Abs().LessThan(depreciation.Epsilon), "%s total %s", r.Code, s.Total())

		prevNBV := r.OriginalValue
		prevAcc := decimal.Zero
		crossed := false
		for i, e := range s.Entries {
			assert.False(t, e.Charge.IsNegative(), r.Code)
			assert.True(t, e.Accumulated.GreaterThanOrEqual(prevAcc), r.Code)
			assert.True(t, e.NetBookValue.LessThanOrEqual(prevNBV), r.Code)
			assert.False(t, e.NetBookValue.IsNegative(), r.Code)
			assert.True(t, e.NetBookValue.Equal(r.OriginalValue.Sub(e.Accumulated)), r.Code)
			if i > 0 {
				assert.Equal(t, s.Entries[i-1].FiscalYear+1, e.FiscalYear, r.Code)
			}
			if crossed {
				assert.Equal(t, depreciation.BasisStraightLine, e.Basis, "%s crossover must be permanent", r.Code)
			}
			crossed = crossed || e.Basis == depreciation.BasisStraightLine
			prevNBV, prevAcc = e.NetBookValue, e.Accumulated
		}

		last, ok := s.Last()
		require.True(t, ok)
		assert.True(t, last.NetBookValue.IsZero(), "%s ends at %s", r.Code, last.NetBookValue)
	}
}

func TestProperties_DisposalInYearK(t *testing.T) {
	cal := fiscal.CalendarYear
	for _, r := range randomAssets(200) {
		full, err := depreciation.Compute(r)
		require.NoError(t, err)

		k := len(full.Entries) / 2
		disposalYear := full.Entries[k].FiscalYear
		disposal := fiscal.Max(r.AcquisitionDate, cal.Period(disposalYear).Start.AddDays(40))
		if !cal.Period(disposalYear).Contains(disposal) {
			continue
		}

		s, err := depreciation.Compute(r.WithDisposal(disposal))
		require.NoError(t, err)
		require.Len(t, s.Entries, k+1, r.Code)
		assert.Equal(t, disposalYear, s.Entries[k].FiscalYear)
		assert.True(t, s.Disposed)
		for i := 0; i < k; i++ {
			assert.True(t, full.Entries[i].Charge.Equal(s.Entries[i].Charge), "%s year %d unchanged", r.Code, i)
		}
	}
}

func TestProperties_Idempotent(t *testing.T) {
	for _, r := range randomAssets(50) {
		a, err := depreciation.Compute(r)
		require.NoError(t, err)
		b, err := depreciation.Compute(r)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestProperties_ConcurrentBuildsAgree(t *testing.T) {
	assets := randomAssets(64)
	want := make([]depreciation.Schedule, len(assets))
	for i, r := range assets {
		s, err := depreciation.Compute(r)
		require.NoError(t, err)
		want[i] = s
	}

	b := depreciation.NewBuilder(fiscal.CalendarYear)
	got := make([]depreciation.Schedule, len(assets))
	var wg sync.WaitGroup
	for i := range assets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = b.Build(assets[i])
		}(i)
	}
	wg.Wait()

	assert.Equal(t, want, got)
}

func TestSchedule_AccumulatedAt(t *testing.T) {
	s, err := depreciation.Compute(linearAsset("12000.00", "2023-07-01", 5))
	require.NoError(t, err)

	assert.True(t, s.AccumulatedAt(2022).IsZero())
	assert.Equal(t, "3609.86", s.AccumulatedAt(2024).StringFixed(2))
	assert.Equal(t, "12000.00", s.AccumulatedAt(2040).StringFixed(2))

	_, ok := s.Entry(2030)
	assert.False(t, ok)
	e, ok := s.Entry(2025)
	require.True(t, ok)
	assert.Equal(t, "2400.00", e.Charge.StringFixed(2))
}
