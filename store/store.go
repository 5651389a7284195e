/*
Package store defines persistence for assets and master data.

PURPOSE:
  The depreciation engine never touches storage: it receives Record
  snapshots and returns schedules. This package is the CRUD collaborator
  that keeps those snapshots between requests.

  Schedules are never stored. They are derived data, recomputed from the
  current snapshot on every read.

KEY INTERFACES:
  AssetStore:   asset records (immobilisations)
  CatalogStore: families, locations, accounts
  Store:        both, plus Close

SEMANTICS:
  Save*   upserts by code
  Get*    returns ErrNotFound for an unknown code
  List*   returns every entry ordered by code
  Delete* returns ErrNotFound for an unknown code and ErrInUse for a
          family or location still referenced by an asset

IMPLEMENTATIONS:
  - store/sqlite: SQLite (production)
  - store/memory: maps guarded by a RWMutex (tests, demos)

SEE ALSO:
  - storetest/storetest.go: Behaviour shared by every implementation
*/
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/factory"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when no entry has the requested code.
	ErrNotFound = errors.New("not found")

	// ErrInUse is returned when deleting an entry other entries reference.
	ErrInUse = errors.New("still referenced")
)

// =============================================================================
// INTERFACES
// =============================================================================

// AssetStore persists asset snapshots.
type AssetStore interface {
	SaveAsset(ctx context.Context, r asset.Record) error
	GetAsset(ctx context.Context, code string) (asset.Record, error)
	ListAssets(ctx context.Context) ([]asset.Record, error)
	DeleteAsset(ctx context.Context, code string) error
}

// CatalogStore persists master data.
type CatalogStore interface {
	SaveFamily(ctx context.Context, f asset.Family) error
	GetFamily(ctx context.Context, code string) (asset.Family, error)
	ListFamilies(ctx context.Context) ([]asset.Family, error)
	DeleteFamily(ctx context.Context, code string) error

	SaveLocation(ctx context.Context, l asset.Location) error
	GetLocation(ctx context.Context, code string) (asset.Location, error)
	ListLocations(ctx context.Context) ([]asset.Location, error)
	DeleteLocation(ctx context.Context, code string) error

	SaveAccount(ctx context.Context, a asset.Account) error
	GetAccount(ctx context.Context, code string) (asset.Account, error)
	ListAccounts(ctx context.Context) ([]asset.Account, error)
	DeleteAccount(ctx context.Context, code string) error
}

// Store is the full persistence surface used by the API.
type Store interface {
	AssetStore
	CatalogStore
	Close() error
}

// =============================================================================
// SEEDING
// =============================================================================

// Load writes every entry of c. Master data goes first so that assets
// always find their family.
func Load(ctx context.Context, s Store, c factory.Catalog) error {
	for _, f := range c.Families {
		if err := s.SaveFamily(ctx, f); err != nil {
			return fmt.Errorf("failed to save family %s: %w", f.Code, err)
		}
	}
	for _, l := range c.Locations {
		if err := s.SaveLocation(ctx, l); err != nil {
			return fmt.Errorf("failed to save location %s: %w", l.Code, err)
		}
	}
	for _, a := range c.Accounts {
		if err := s.SaveAccount(ctx, a); err != nil {
			return fmt.Errorf("failed to save account %s: %w", a.Code, err)
		}
	}
	for _, r := range c.Assets {
		if err := s.SaveAsset(ctx, r); err != nil {
			return fmt.Errorf("failed to save asset %s: %w", r.Code, err)
		}
	}
	return nil
}

// SeedIfEmpty loads c only when the store holds no family and no asset.
// It reports whether anything was written.
func SeedIfEmpty(ctx context.Context, s Store, c factory.Catalog) (bool, error) {
	families, err := s.ListFamilies(ctx)
	if err != nil {
		return false, err
	}
	assets, err := s.ListAssets(ctx)
	if err != nil {
		return false, err
	}
	if len(families) > 0 || len(assets) > 0 {
		return false, nil
	}
	return true, Load(ctx, s, c)
}
