/*
Package factory converts asset documents (JSON or YAML) into records.

PURPOSE:
  Assets arrive from the REST API as JSON and from datasets as YAML. Both
  use the same document types, with the French field names of the
  original bookkeeping screens. The factory fills what the document
  leaves out from the asset's family and from the legal declining-balance
  coefficients, then hands the result to asset.New for validation.

DOCUMENT SCHEMA:
  {
    "code": "215400",
    "libelle": "MATERIEL INDUSTRIEL",
    "famille": "MI",
    "localisation": "U1",
    "dateAcquisition": "2020-03-15",
    "valeurOrigine": "15000.00",
    "typeAmortissement": "DEGRESSIF",
    "duree": 5,
    "coefficient": "1.75",
    "dateCession": null
  }

DEFAULTS:
  typeAmortissement, duree and coefficient fall back to the family. A
  DECLINING asset with no coefficient gets the legal one for its life:
    3-4 years  1.25
    5-6 years  1.75
    > 6 years  2.25
  There is none under 3 years; such an asset fails validation.

USAGE:
  doc := factory.AssetDoc{...}
  if err := factory.Check(doc); err != nil { ... }   // shape (400)
  rec, err := factory.Resolve(doc, &family)          // invariants (422)

SEE ALSO:
  - dataset.go: Families, locations, accounts and assets in one YAML file
  - asset/record.go: Record invariants
*/
package factory

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// AMOUNT - Decimal readable from JSON and YAML
// =============================================================================

// Amount is a decimal that YAML can decode from a number or a string.
// JSON support comes from the embedded decimal.Decimal.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount { return Amount{Decimal: d} }

// MustAmount parses s and panics on error. Intended for tests and fixtures.
func MustAmount(s string) Amount { return Amount{Decimal: decimal.RequireFromString(s)} }

func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", value.Line)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q: %w", value.Line, value.Value, err)
	}
	a.Decimal = d
	return nil
}

func (a Amount) MarshalYAML() (interface{}, error) {
	return a.Decimal.String(), nil
}

func (a *Amount) nullable() decimal.NullDecimal {
	if a == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: a.Decimal, Valid: true}
}

func amountPtr(d decimal.NullDecimal) *Amount {
	if !d.Valid {
		return nil
	}
	return &Amount{Decimal: d.Decimal}
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// AssetDoc is the wire form of an asset.
type AssetDoc struct {
	Code            string  `json:"code" yaml:"code" validate:"required,code"`
	Label           string  `json:"libelle" yaml:"libelle" validate:"required,max=200"`
	FamilyCode      string  `json:"famille" yaml:"famille" validate:"omitempty,code"`
	LocationCode    string  `json:"localisation" yaml:"localisation" validate:"omitempty,code"`
	AcquisitionDate string  `json:"dateAcquisition" yaml:"dateAcquisition" validate:"required,datetime=2006-01-02"`
	OriginalValue   Amount  `json:"valeurOrigine" yaml:"valeurOrigine"`
	Method          string  `json:"typeAmortissement,omitempty" yaml:"typeAmortissement,omitempty"`
	UsefulLifeYears int     `json:"duree,omitempty" yaml:"duree,omitempty" validate:"gte=0,lte=100"`
	DeclineRate     *Amount `json:"coefficient,omitempty" yaml:"coefficient,omitempty"`
	DisposalDate    string  `json:"dateCession,omitempty" yaml:"dateCession,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// FamilyDoc is the wire form of an asset family.
type FamilyDoc struct {
	Code            string  `json:"code" yaml:"code" validate:"required,code"`
	Label           string  `json:"libelle" yaml:"libelle" validate:"required,max=200"`
	Method          string  `json:"typeAmortissement" yaml:"typeAmortissement" validate:"required"`
	UsefulLifeYears int     `json:"duree" yaml:"duree" validate:"gte=0,lte=100"`
	DeclineRate     *Amount `json:"coefficient,omitempty" yaml:"coefficient,omitempty"`
}

// LocationDoc is the wire form of a location.
type LocationDoc struct {
	Code  string `json:"code" yaml:"code" validate:"required,code"`
	Label string `json:"libelle" yaml:"libelle" validate:"required,max=200"`
}

// AccountDoc is the wire form of a ledger account.
type AccountDoc struct {
	Code                string `json:"code" yaml:"code" validate:"required,numeric,min=3,max=10"`
	Label               string `json:"libelle" yaml:"libelle" validate:"required,max=200"`
	DepreciationAccount string `json:"compteAmortissement" yaml:"compteAmortissement" validate:"omitempty,numeric,min=3,max=10"`
	ExpenseAccount      string `json:"compteDotation" yaml:"compteDotation" validate:"omitempty,numeric,min=3,max=10"`
}

// =============================================================================
// DOCUMENT VALIDATION
// =============================================================================

// ErrInvalidDocument is returned when a document is malformed.
var ErrInvalidDocument = errors.New("invalid document")

// DocumentError lists the fields that failed validation.
type DocumentError struct {
	Fields []FieldIssue
}

// FieldIssue is one failed validation rule.
type FieldIssue struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func (e *DocumentError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " (" + f.Rule + ")"
	}
	return "invalid document: " + strings.Join(parts, ", ")
}

func (e *DocumentError) Unwrap() error {
	return ErrInvalidDocument
}

var codePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,31}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)

	if err := v.RegisterValidation("code", func(fl validator.FieldLevel) bool {
		return codePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("failed to register code validation: %v", err))
	}
	return v
}

// Check validates the shape of a document (required fields, formats).
// Domain invariants are checked later by Resolve.
func Check(doc interface{}) error {
	err := validate.Struct(doc)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	issues := make([]FieldIssue, len(verrs))
	for i, fe := range verrs {
		issues[i] = FieldIssue{Field: fe.Field(), Rule: fe.Tag()}
	}
	return &DocumentError{Fields: issues}
}

// =============================================================================
// RESOLUTION - Documents to domain values
// =============================================================================

// LegalCoefficient returns the declining-balance coefficient for a useful
// life. ok is false under 3 years, where declining balance is not allowed.
func LegalCoefficient(years int) (decimal.Decimal, bool) {
	switch {
	case years >= 3 && years <= 4:
		return decimal.RequireFromString("1.25"), true
	case years >= 5 && years <= 6:
		return decimal.RequireFromString("1.75"), true
	case years > 6:
		return decimal.RequireFromString("2.25"), true
	default:
		return decimal.Decimal{}, false
	}
}

// Resolve builds a validated record from doc. family may be nil; when set,
// it supplies the method, life and coefficient the document omits.
func Resolve(doc AssetDoc, family *asset.Family) (asset.Record, error) {
	code := strings.TrimSpace(doc.Code)

	acquired, err := fiscal.ParseDate(doc.AcquisitionDate)
	if err != nil {
		return asset.Record{}, &asset.InvalidAssetError{Code: code, Field: "dateAcquisition", Reason: err.Error()}
	}
	disposed, err := fiscal.ParseDate(doc.DisposalDate)
	if err != nil {
		return asset.Record{}, &asset.InvalidAssetError{Code: code, Field: "dateCession", Reason: err.Error()}
	}

	rec := asset.Record{
		Code:            code,
		Label:           strings.TrimSpace(doc.Label),
		FamilyCode:      strings.TrimSpace(doc.FamilyCode),
		LocationCode:    strings.TrimSpace(doc.LocationCode),
		AcquisitionDate: acquired,
		OriginalValue:   doc.OriginalValue.Decimal,
		Method:          asset.NormalizeMethod(doc.Method),
		UsefulLifeYears: doc.UsefulLifeYears,
		DeclineRate:     doc.DeclineRate.nullable(),
		DisposalDate:    disposed,
	}

	if family != nil {
		if rec.Method == "" {
			rec.Method = family.Method
		}
		if rec.UsefulLifeYears == 0 {
			rec.UsefulLifeYears = family.UsefulLifeYears
		}
		if !rec.DeclineRate.Valid && rec.Method == asset.MethodDeclining {
			rec.DeclineRate = family.DeclineRate
		}
	}
	if !rec.DeclineRate.Valid && rec.Method == asset.MethodDeclining {
		if coef, ok := LegalCoefficient(rec.UsefulLifeYears); ok {
			rec = rec.WithDeclineRate(coef)
		}
	}

	return asset.New(rec)
}

// DocFromRecord is the inverse of Resolve.
func DocFromRecord(r asset.Record) AssetDoc {
	return AssetDoc{
		Code:            r.Code,
		Label:           r.Label,
		FamilyCode:      r.FamilyCode,
		LocationCode:    r.LocationCode,
		AcquisitionDate: r.AcquisitionDate.String(),
		OriginalValue:   NewAmount(r.OriginalValue),
		Method:          string(r.Method),
		UsefulLifeYears: r.UsefulLifeYears,
		DeclineRate:     amountPtr(r.DeclineRate),
		DisposalDate:    r.DisposalDate.String(),
	}
}

// ResolveFamily converts and validates a family document.
func ResolveFamily(doc FamilyDoc) (asset.Family, error) {
	f := asset.Family{
		Code:            strings.TrimSpace(doc.Code),
		Label:           strings.TrimSpace(doc.Label),
		Method:          asset.NormalizeMethod(doc.Method),
		UsefulLifeYears: doc.UsefulLifeYears,
		DeclineRate:     doc.DeclineRate.nullable(),
	}
	if err := f.Validate(); err != nil {
		return asset.Family{}, err
	}
	return f, nil
}

// FamilyDocFrom is the inverse of ResolveFamily.
func FamilyDocFrom(f asset.Family) FamilyDoc {
	return FamilyDoc{
		Code:            f.Code,
		Label:           f.Label,
		Method:          string(f.Method),
		UsefulLifeYears: f.UsefulLifeYears,
		DeclineRate:     amountPtr(f.DeclineRate),
	}
}

func jsonName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}
