package fiscal_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDaysInclusive(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     int
	}{
		{"second half of 2023", "2023-07-01", "2023-12-31", 184},
		{"first quarter of 2025", "2025-01-01", "2025-03-31", 90},
		{"same day", "2024-02-29", "2024-02-29", 1},
		{"leap year", "2024-01-01", "2024-12-31", 366},
		{"reversed", "2024-02-01", "2024-01-01", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fiscal.DaysInclusive(fiscal.MustParseDate(tt.from), fiscal.MustParseDate(tt.to))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := fiscal.ParseDate("2023-07-01")
	require.NoError(t, err)
	assert.Equal(t, 2023, d.Year())
	assert.Equal(t, time.July, d.Month())
	assert.Equal(t, "2023-07-01", d.String())

	empty, err := fiscal.ParseDate("")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())

	_, err = fiscal.ParseDate("01/07/2023")
	assert.Error(t, err)
}

func TestDate_JSON(t *testing.T) {
	type payload struct {
		At    fiscal.Date `json:"at"`
		Until fiscal.Date `json:"until"`
	}

	out, err := json.Marshal(payload{At: fiscal.NewDate(2025, time.March, 31)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"at":"2025-03-31","until":null}`, string(out))

	var in payload
	require.NoError(t, json.Unmarshal([]byte(`{"at":"2020-03-15","until":""}`), &in))
	assert.True(t, in.At.Equal(fiscal.NewDate(2020, time.March, 15)))
	assert.True(t, in.Until.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"at":"15/03/2020"}`), &in))
}

// =============================================================================
// CALENDAR
// =============================================================================

func TestCalendarYear_Period(t *testing.T) {
	p := fiscal.CalendarYear.Period(2024)
	assert.Equal(t, "2024-01-01", p.Start.String())
	assert.Equal(t, "2024-12-31", p.End.String())
	assert.Equal(t, 366, p.Days())
	assert.True(t, p.Contains(fiscal.MustParseDate("2024-06-15")))
	assert.False(t, p.Contains(fiscal.MustParseDate("2025-01-01")))
	assert.Equal(t, 2025, p.Next(fiscal.CalendarYear).Label)
}

func TestCalendar_JuneClose(t *testing.T) {
	cal, err := fiscal.ParseCalendar("06-30")
	require.NoError(t, err)

	// GIVEN: A fiscal year closing June 30
	// THEN: Dates after the close belong to the next label
	assert.Equal(t, 2025, cal.YearOf(fiscal.MustParseDate("2025-06-30")))
	assert.Equal(t, 2026, cal.YearOf(fiscal.MustParseDate("2025-07-01")))

	p := cal.Period(2026)
	assert.Equal(t, "2025-07-01", p.Start.String())
	assert.Equal(t, "2026-06-30", p.End.String())
}

func TestParseCalendar_Invalid(t *testing.T) {
	for _, s := range []string{"", "12", "13-01", "02-29", "04-31", "ab-cd"} {
		_, err := fiscal.ParseCalendar(s)
		assert.Error(t, err, s)
	}
	cal, err := fiscal.ParseCalendar("12-31")
	require.NoError(t, err)
	assert.Equal(t, fiscal.CalendarYear, cal)
	assert.Equal(t, "12-31", cal.String())
}
