package fiscal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CALENDAR - Where the fiscal year closes
// =============================================================================

// Calendar defines the closing day of every fiscal year.
// A fiscal year is labelled by the calendar year of its closing date:
// with a June 30 close, fiscal year 2025 runs 2024-07-01 to 2025-06-30.
type Calendar struct {
	EndMonth time.Month
	EndDay   int
}

// CalendarYear closes on December 31.
var CalendarYear = Calendar{EndMonth: time.December, EndDay: 31}

// ParseCalendar parses a closing day written "MM-DD" (e.g. "12-31", "06-30").
func ParseCalendar(s string) (Calendar, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return Calendar{}, fmt.Errorf("invalid fiscal year end %q (use MM-DD)", s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return Calendar{}, fmt.Errorf("invalid fiscal year end month %q: %w", parts[0], err)
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return Calendar{}, fmt.Errorf("invalid fiscal year end day %q: %w", parts[1], err)
	}
	c := Calendar{EndMonth: time.Month(month), EndDay: day}
	return c, c.Validate()
}

// Validate rejects closing days that do not exist in every year.
// February 29 is refused since it only exists in leap years.
func (c Calendar) Validate() error {
	if c.EndMonth < time.January || c.EndMonth > time.December {
		return fmt.Errorf("fiscal year end month %d out of range", c.EndMonth)
	}
	last := time.Date(2023, c.EndMonth+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if c.EndDay < 1 || c.EndDay > last {
		return fmt.Errorf("fiscal year end day %d out of range for %s", c.EndDay, c.EndMonth)
	}
	return nil
}

// String returns the "MM-DD" form.
func (c Calendar) String() string {
	return fmt.Sprintf("%02d-%02d", int(c.EndMonth), c.EndDay)
}

// End returns the closing date of fiscal year label.
func (c Calendar) End(label int) Date {
	return NewDate(label, c.EndMonth, c.EndDay)
}

// YearOf returns the label of the fiscal year containing d.
func (c Calendar) YearOf(d Date) int {
	if d.After(c.End(d.Year())) {
		return d.Year() + 1
	}
	return d.Year()
}

// Period returns the inclusive date range of fiscal year label.
func (c Calendar) Period(label int) Period {
	return Period{
		Label: label,
		Start: c.End(label - 1).AddDays(1),
		End:   c.End(label),
	}
}

// =============================================================================
// PERIOD - One fiscal year
// =============================================================================

// Period is the inclusive [Start, End] range of one fiscal year.
type Period struct {
	Label int
	Start Date
	End   Date
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns the number of days in the period.
func (p Period) Days() int { return DaysInclusive(p.Start, p.End) }

// Next returns the following fiscal year.
func (p Period) Next(c Calendar) Period { return c.Period(p.Label + 1) }

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
