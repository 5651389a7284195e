package factory

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DATASET - Master data and assets in one YAML document
// =============================================================================

// Dataset is the YAML file format used for seeding and by cmd/amortir.
//
//	familles:
//	  - {code: MOB, libelle: MOBILIER, typeAmortissement: LINEAIRE, duree: 10}
//	localisations:
//	  - {code: SS, libelle: SIEGE SOCIAL}
//	comptes:
//	  - {code: "215400", libelle: MATERIEL INDUSTRIEL, compteAmortissement: "281540", compteDotation: "681540"}
//	immobilisations:
//	  - code: CHF02
//	    ...
type Dataset struct {
	Families  []FamilyDoc   `yaml:"familles"`
	Locations []LocationDoc `yaml:"localisations"`
	Accounts  []AccountDoc  `yaml:"comptes"`
	Assets    []AssetDoc    `yaml:"immobilisations"`
}

// Catalog is a resolved Dataset.
type Catalog struct {
	Families  []asset.Family
	Locations []asset.Location
	Accounts  []asset.Account
	Assets    []asset.Record
}

// FamilyByCode returns the family with the given code, or nil.
func (c Catalog) FamilyByCode(code string) *asset.Family {
	for i := range c.Families {
		if c.Families[i].Code == code {
			return &c.Families[i]
		}
	}
	return nil
}

//go:embed seed.yaml
var seedYAML []byte

// Seed returns the demo dataset shipped with the service.
func Seed() (Dataset, error) {
	return ParseDataset(bytes.NewReader(seedYAML))
}

// ParseDataset decodes a dataset. Unknown keys are rejected.
func ParseDataset(r io.Reader) (Dataset, error) {
	var ds Dataset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		if errors.Is(err, io.EOF) {
			return Dataset{}, nil
		}
		return Dataset{}, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return ds, nil
}

// LoadDataset reads a dataset file.
func LoadDataset(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, err
	}
	defer f.Close()
	return ParseDataset(f)
}

// Resolve checks and converts every document. Families are resolved first
// so assets can inherit their defaults. Errors name the failing entry.
func (ds Dataset) Resolve() (Catalog, error) {
	var c Catalog

	for i, doc := range ds.Families {
		if err := Check(doc); err != nil {
			return Catalog{}, fmt.Errorf("familles[%d]: %w", i, err)
		}
		f, err := ResolveFamily(doc)
		if err != nil {
			return Catalog{}, fmt.Errorf("familles[%d]: %w", i, err)
		}
		c.Families = append(c.Families, f)
	}

	for i, doc := range ds.Locations {
		if err := Check(doc); err != nil {
			return Catalog{}, fmt.Errorf("localisations[%d]: %w", i, err)
		}
		c.Locations = append(c.Locations, asset.Location{Code: doc.Code, Label: doc.Label})
	}

	for i, doc := range ds.Accounts {
		if err := Check(doc); err != nil {
			return Catalog{}, fmt.Errorf("comptes[%d]: %w", i, err)
		}
		c.Accounts = append(c.Accounts, asset.Account{
			Code:                doc.Code,
			Label:               doc.Label,
			DepreciationAccount: doc.DepreciationAccount,
			ExpenseAccount:      doc.ExpenseAccount,
		})
	}

	seen := make(map[string]bool, len(ds.Assets))
	for i, doc := range ds.Assets {
		if err := Check(doc); err != nil {
			return Catalog{}, fmt.Errorf("immobilisations[%d]: %w", i, err)
		}
		if seen[doc.Code] {
			return Catalog{}, fmt.Errorf("immobilisations[%d]: duplicate code %q", i, doc.Code)
		}
		seen[doc.Code] = true

		rec, err := Resolve(doc, c.FamilyByCode(doc.FamilyCode))
		if err != nil {
			return Catalog{}, fmt.Errorf("immobilisations[%d]: %w", i, err)
		}
		c.Assets = append(c.Assets, rec)
	}

	return c, nil
}
