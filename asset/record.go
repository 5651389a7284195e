/*
Package asset defines the fixed-asset record consumed by the depreciation engine.

PURPOSE:
  An immobilisation (capitalized fixed asset) is described by an immutable
  snapshot: Record. The engine only ever reads a copy of a Record, so a
  schedule can never observe a half-updated asset.

KEY CONCEPTS IN THIS FILE (record.go):
  - Method: LINEAR (amortissement linéaire) or DECLINING (dégressif)
  - Record: accounting attributes of one asset
  - Validate: the data-model invariants every computation relies on

IMMUTABILITY:
  Record holds no pointers, slices or maps. Optional values use
  decimal.NullDecimal and the zero fiscal.Date. Passing a Record by value
  is a full copy; With* methods return a new snapshot.

INVARIANTS:
  - OriginalValue > 0
  - UsefulLifeYears >= 1
  - DisposalDate, if set, >= AcquisitionDate
  - DECLINING requires DeclineRate > 1.0

SEE ALSO:
  - catalog.go: Families, locations and accounts (master data)
  - depreciation/policy.go: Chooses a policy from Record.Method
  - factory/asset.go: Builds records from JSON/YAML documents
*/
package asset

import (
	"strings"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/shopspring/decimal"
)

// =============================================================================
// METHOD - Depreciation method tag
// =============================================================================

type Method string

const (
	MethodLinear    Method = "LINEAR"
	MethodDeclining Method = "DECLINING"

	// MethodNone marks non-depreciable families such as land. It is a valid
	// family tag but no policy exists for it.
	MethodNone Method = "NONE"
)

var methodAliases = map[string]Method{
	"LINEAR":    MethodLinear,
	"LINEAIRE":  MethodLinear,
	"LINÉAIRE":  MethodLinear,
	"DECLINING": MethodDeclining,
	"DEGRESSIF": MethodDeclining,
	"DÉGRESSIF": MethodDeclining,
	"NONE":      MethodNone,
	"AUCUN":     MethodNone,
}

// NormalizeMethod maps a user-supplied tag (including the French labels
// LINEAIRE, DEGRESSIF and AUCUN) to its canonical Method. Unknown tags are
// returned upper-cased so the caller can report them.
func NormalizeMethod(tag string) Method {
	key := strings.ToUpper(strings.TrimSpace(tag))
	if m, ok := methodAliases[key]; ok {
		return m
	}
	return Method(key)
}

// IsDepreciable returns true for the methods a schedule can be built with.
func (m Method) IsDepreciable() bool {
	return m == MethodLinear || m == MethodDeclining
}

// IsValid returns true for any known tag, depreciable or not.
func (m Method) IsValid() bool {
	return m.IsDepreciable() || m == MethodNone
}

func (m Method) String() string { return string(m) }

// =============================================================================
// RECORD - Immutable asset snapshot
// =============================================================================

type Record struct {
	Code            string
	Label           string
	FamilyCode      string
	LocationCode    string
	AcquisitionDate fiscal.Date
	OriginalValue   decimal.Decimal
	Method          Method
	UsefulLifeYears int

	// DeclineRate multiplies the straight-line rate (1.75 on a 5-year
	// life gives 35%). Only meaningful for DECLINING.
	DeclineRate decimal.NullDecimal

	// DisposalDate is zero while the asset is held.
	DisposalDate fiscal.Date
}

// New validates r and returns it. It is the entry point for every write path.
func New(r Record) (Record, error) {
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Validate checks the data-model invariants. The method is checked first
// so an unknown tag is reported as unsupported rather than invalid.
func (r Record) Validate() error {
	if !r.Method.IsDepreciable() {
		return &UnsupportedMethodError{Code: r.Code, Method: r.Method}
	}
	if strings.TrimSpace(r.Code) == "" {
		return invalid(r.Code, "code", "is required")
	}
	if r.AcquisitionDate.IsZero() {
		return invalid(r.Code, "acquisitionDate", "is required")
	}
	if !r.OriginalValue.IsPositive() {
		return invalid(r.Code, "originalValue", "must be greater than 0")
	}
	if r.UsefulLifeYears < 1 {
		return invalid(r.Code, "usefulLifeYears", "must be at least 1")
	}
	if !r.DisposalDate.IsZero() && r.DisposalDate.Before(r.AcquisitionDate) {
		return invalid(r.Code, "disposalDate", "must not precede the acquisition date")
	}
	if r.Method == MethodDeclining {
		if !r.DeclineRate.Valid {
			return invalid(r.Code, "declineRate", "is required for declining-balance assets")
		}
		if r.DeclineRate.Decimal.LessThanOrEqual(decimal.NewFromInt(1)) {
			return invalid(r.Code, "declineRate", "must be greater than 1.0")
		}
	}
	return nil
}

// IsDisposed reports whether the asset left the books on or before asOf.
func (r Record) IsDisposed(asOf fiscal.Date) bool {
	return !r.DisposalDate.IsZero() && r.DisposalDate.BeforeOrEqual(asOf)
}

// HasDisposal reports whether a disposal date is recorded.
func (r Record) HasDisposal() bool { return !r.DisposalDate.IsZero() }

// =============================================================================
// SNAPSHOT UPDATES - Each returns a new Record
// =============================================================================

func (r Record) WithLabel(label string) Record {
	r.Label = label
	return r
}

func (r Record) WithLocation(code string) Record {
	r.LocationCode = code
	return r
}

func (r Record) WithDisposal(d fiscal.Date) Record {
	r.DisposalDate = d
	return r
}

func (r Record) WithDeclineRate(rate decimal.Decimal) Record {
	r.DeclineRate = decimal.NullDecimal{Decimal: rate, Valid: true}
	return r
}
