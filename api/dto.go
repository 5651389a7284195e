/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request bodies reuse
  the factory documents (AssetDoc, FamilyDoc, LocationDoc, AccountDoc) so
  the API, the YAML datasets and the CLI share one wire format.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

AMOUNTS:
  Money is written as a fixed two-decimal string ("2400.00") so clients
  never see float rounding.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/asset.go: Request documents and their validation tags
*/
package api

import (
	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/depreciation"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/factory"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/report"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SCHEDULE
// =============================================================================

// EntryDTO is one fiscal year of a schedule.
type EntryDTO struct {
	FiscalYear   int    `json:"exercice"`
	Charge       string `json:"dotation"`
	Accumulated  string `json:"amortissementCumule"`
	NetBookValue string `json:"valeurNette"`
	Basis        string `json:"base"`
	HeldDays     int    `json:"joursDetention"`
}

// ScheduleDTO is the depreciation plan of one asset.
type ScheduleDTO struct {
	Code          string     `json:"code"`
	Method        string     `json:"typeAmortissement"`
	OriginalValue string     `json:"valeurOrigine"`
	Disposed      bool       `json:"cede"`
	Total         string     `json:"totalDotations"`
	Entries       []EntryDTO `json:"annuites"`
}

func toScheduleDTO(s depreciation.Schedule) ScheduleDTO {
	entries := make([]EntryDTO, len(s.Entries))
	for i, e := range s.Entries {
		entries[i] = EntryDTO{
			FiscalYear:   e.FiscalYear,
			Charge:       money(e.Charge),
			Accumulated:  money(e.Accumulated),
			NetBookValue: money(e.NetBookValue),
			Basis:        string(e.Basis),
			HeldDays:     e.HeldDays,
		}
	}
	return ScheduleDTO{
		Code:          s.AssetCode,
		Method:        string(s.Method),
		OriginalValue: money(s.OriginalValue),
		Disposed:      s.Disposed,
		Total:         money(s.Total()),
		Entries:       entries,
	}
}

// =============================================================================
// MASTER DATA
// =============================================================================

func toLocationDoc(l asset.Location) factory.LocationDoc {
	return factory.LocationDoc{Code: l.Code, Label: l.Label}
}

func toAccountDoc(a asset.Account) factory.AccountDoc {
	return factory.AccountDoc{
		Code:                a.Code,
		Label:               a.Label,
		DepreciationAccount: a.DepreciationAccount,
		ExpenseAccount:      a.ExpenseAccount,
	}
}

// =============================================================================
// REPORTS
// =============================================================================

// ReportResponse wraps report rows. Rejected lists assets that could not be
// computed and are missing from Rows.
type ReportResponse struct {
	Kind     report.Kind  `json:"rapport"`
	Rows     []report.Row `json:"lignes"`
	Rejected []string     `json:"rejetees,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Details string               `json:"details,omitempty"`
	Fields  []factory.FieldIssue `json:"fields,omitempty"`
}

func money(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
