package asset

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MASTER DATA - Families, locations and accounts
// =============================================================================

// Family groups assets that share a default depreciation plan
// (e.g. "MOB" furniture, 10 years linear).
type Family struct {
	Code            string
	Label           string
	Method          Method
	UsefulLifeYears int
	DeclineRate     decimal.NullDecimal
}

// Validate checks a family definition. NONE families carry no life.
func (f Family) Validate() error {
	if strings.TrimSpace(f.Code) == "" {
		return invalid(f.Code, "family.code", "is required")
	}
	if !f.Method.IsValid() {
		return &UnsupportedMethodError{Code: f.Code, Method: f.Method}
	}
	if f.Method.IsDepreciable() && f.UsefulLifeYears < 1 {
		return invalid(f.Code, "family.usefulLifeYears", "must be at least 1")
	}
	if f.DeclineRate.Valid && f.DeclineRate.Decimal.LessThanOrEqual(decimal.NewFromInt(1)) {
		return invalid(f.Code, "family.declineRate", "must be greater than 1.0")
	}
	return nil
}

// Location is where an asset physically sits.
type Location struct {
	Code  string
	Label string
}

// Account is a fixed-asset ledger account with its depreciation (28xxxx)
// and expense (68xxxx) counterparts.
type Account struct {
	Code                string
	Label               string
	DepreciationAccount string
	ExpenseAccount      string
}
