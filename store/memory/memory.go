// Package memory provides an in-memory store.Store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/store"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store keeps every entry in maps keyed by code. Records are values, so
// callers always receive copies.
type Store struct {
	mu        sync.RWMutex
	assets    map[string]asset.Record
	families  map[string]asset.Family
	locations map[string]asset.Location
	accounts  map[string]asset.Account
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		assets:    make(map[string]asset.Record),
		families:  make(map[string]asset.Family),
		locations: make(map[string]asset.Location),
		accounts:  make(map[string]asset.Account),
	}
}

func (m *Store) Close() error { return nil }

// =============================================================================
// ASSETS
// =============================================================================

func (m *Store) SaveAsset(_ context.Context, r asset.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[r.Code] = r
	return nil
}

func (m *Store) GetAsset(_ context.Context, code string) (asset.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.assets[code]
	if !ok {
		return asset.Record{}, store.ErrNotFound
	}
	return r, nil
}

func (m *Store) ListAssets(_ context.Context) ([]asset.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.assets), nil
}

func (m *Store) DeleteAsset(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return deleteKey(m.assets, code)
}

// =============================================================================
// FAMILIES
// =============================================================================

func (m *Store) SaveFamily(_ context.Context, f asset.Family) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.families[f.Code] = f
	return nil
}

func (m *Store) GetFamily(_ context.Context, code string) (asset.Family, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.families[code]
	if !ok {
		return asset.Family{}, store.ErrNotFound
	}
	return f, nil
}

func (m *Store) ListFamilies(_ context.Context) ([]asset.Family, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.families), nil
}

func (m *Store) DeleteFamily(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.referenced(func(r asset.Record) bool { return r.FamilyCode == code }) {
		return store.ErrInUse
	}
	return deleteKey(m.families, code)
}

// =============================================================================
// LOCATIONS
// =============================================================================

func (m *Store) SaveLocation(_ context.Context, l asset.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[l.Code] = l
	return nil
}

func (m *Store) GetLocation(_ context.Context, code string) (asset.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.locations[code]
	if !ok {
		return asset.Location{}, store.ErrNotFound
	}
	return l, nil
}

func (m *Store) ListLocations(_ context.Context) ([]asset.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.locations), nil
}

func (m *Store) DeleteLocation(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.referenced(func(r asset.Record) bool { return r.LocationCode == code }) {
		return store.ErrInUse
	}
	return deleteKey(m.locations, code)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (m *Store) SaveAccount(_ context.Context, a asset.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.Code] = a
	return nil
}

func (m *Store) GetAccount(_ context.Context, code string) (asset.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[code]
	if !ok {
		return asset.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (m *Store) ListAccounts(_ context.Context) ([]asset.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.accounts), nil
}

func (m *Store) DeleteAccount(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return deleteKey(m.accounts, code)
}

// =============================================================================
// HELPERS
// =============================================================================

// referenced must be called with the lock held.
func (m *Store) referenced(match func(asset.Record) bool) bool {
	for _, r := range m.assets {
		if match(r) {
			return true
		}
	}
	return false
}

func sortedValues[V any](entries map[string]V) []V {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]V, 0, len(keys))
	for _, k := range keys {
		out = append(out, entries[k])
	}
	return out
}

func deleteKey[V any](entries map[string]V, code string) error {
	if _, ok := entries[code]; !ok {
		return store.ErrNotFound
	}
	delete(entries, code)
	return nil
}
