package report

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/depreciation"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/shopspring/decimal"
)

// =============================================================================
// ROW - Ordered field/value pairs
// =============================================================================

// Field is one named, pre-formatted value of a row.
type Field struct {
	Name  string
	Value string
}

// Row keeps fields in report column order. Values are already formatted:
// amounts with 2 decimals, dates as YYYY-MM-DD.
type Row []Field

// Get returns the value of the named field.
func (r Row) Get(name string) (string, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Names returns the field names in order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Values returns the field values in order.
func (r Row) Values() []string {
	values := make([]string, len(r))
	for i, f := range r {
		values[i] = f.Value
	}
	return values
}

// MarshalJSON writes the row as a JSON object preserving field order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// =============================================================================
// FORMATTING
// =============================================================================

type rowBuilder struct {
	row Row
}

func (b *rowBuilder) text(name, value string) *rowBuilder {
	b.row = append(b.row, Field{Name: name, Value: value})
	return b
}

// amount rounds half-up to cents.
func (b *rowBuilder) amount(name string, value decimal.Decimal) *rowBuilder {
	return b.text(name, value.Round(2).StringFixed(2))
}

func (b *rowBuilder) date(name string, d fiscal.Date) *rowBuilder {
	return b.text(name, d.String())
}

func (b *rowBuilder) build() Row { return b.row }

// ScheduleRows flattens a schedule into one row per fiscal year.
func ScheduleRows(s depreciation.Schedule) []Row {
	rows := make([]Row, 0, len(s.Entries))
	for _, e := range s.Entries {
		b := &rowBuilder{}
		b.text("code", s.AssetCode).
			text("exercice", strconv.Itoa(e.FiscalYear)).
			text("base", string(e.Basis)).
			text("joursDetention", strconv.Itoa(e.HeldDays)).
			amount("dotation", e.Charge).
			amount("amortissementCumule", e.Accumulated).
			amount("valeurNette", e.NetBookValue)
		rows = append(rows, b.build())
	}
	return rows
}
