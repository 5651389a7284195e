/*
Package sqlite provides a SQLite-backed store.Store.

PURPOSE:
  Persists asset snapshots and master data. Schedules are not stored:
  they are recomputed from the current snapshot on every read.

KEY TABLES:
  assets:     immobilisations (one row per code)
  families:   asset families and their default plan
  locations:  physical locations
  accounts:   fixed-asset ledger accounts

STORAGE FORMATS:
  Amounts are stored as TEXT in decimal notation so no value ever passes
  through a float. Dates are TEXT in YYYY-MM-DD. Optional values
  (decline_rate, disposal_date) are NULL when absent.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.
  ":memory:" databases are limited to one connection since each
  connection would otherwise open its own empty database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  s, err := sqlite.New("./data/immobilisations.db")
  if err != nil {
      log.Fatal(err)
  }
  defer s.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - store/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/store"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ store.Store = (*Store)(nil)

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if strings.Contains(dbPath, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS families (
		code TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		method TEXT NOT NULL,
		useful_life_years INTEGER NOT NULL DEFAULT 0,
		decline_rate TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS locations (
		code TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accounts (
		code TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		depreciation_account TEXT,
		expense_account TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assets (
		code TEXT PRIMARY KEY,
		label TEXT NOT NULL,
		family_code TEXT,
		location_code TEXT,
		acquisition_date TEXT NOT NULL,
		original_value TEXT NOT NULL,
		method TEXT NOT NULL,
		useful_life_years INTEGER NOT NULL,
		decline_rate TEXT,
		disposal_date TEXT,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assets_family
		ON assets(family_code);
	CREATE INDEX IF NOT EXISTS idx_assets_location
		ON assets(location_code);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ASSETS
// =============================================================================

func (s *Store) SaveAsset(ctx context.Context, r asset.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO assets (code, label, family_code, location_code, acquisition_date,
			original_value, method, useful_life_years, decline_rate, disposal_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			label = excluded.label,
			family_code = excluded.family_code,
			location_code = excluded.location_code,
			acquisition_date = excluded.acquisition_date,
			original_value = excluded.original_value,
			method = excluded.method,
			useful_life_years = excluded.useful_life_years,
			decline_rate = excluded.decline_rate,
			disposal_date = excluded.disposal_date,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.Code, r.Label,
		nullString(r.FamilyCode), nullString(r.LocationCode),
		r.AcquisitionDate.String(),
		r.OriginalValue.String(),
		string(r.Method),
		r.UsefulLifeYears,
		nullDecimal(r.DeclineRate),
		nullString(r.DisposalDate.String()),
		now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save asset: %w", err)
	}
	return nil
}

const assetColumns = `code, label, family_code, location_code, acquisition_date,
	original_value, method, useful_life_years, decline_rate, disposal_date`

func (s *Store) GetAsset(ctx context.Context, code string) (asset.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+assetColumns+" FROM assets WHERE code = ?", code)
	r, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return asset.Record{}, store.ErrNotFound
	}
	return r, err
}

func (s *Store) ListAssets(ctx context.Context) ([]asset.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+assetColumns+" FROM assets ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []asset.Record
	for rows.Next() {
		r, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAsset(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByCode(ctx, "assets", code)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAsset(row scanner) (asset.Record, error) {
	var (
		r                            asset.Record
		family, location, rate, sold sql.NullString
		acquired, value, method      string
	)
	if err := row.Scan(&r.Code, &r.Label, &family, &location, &acquired,
		&value, &method, &r.UsefulLifeYears, &rate, &sold); err != nil {
		return asset.Record{}, err
	}

	r.FamilyCode = family.String
	r.LocationCode = location.String
	r.Method = asset.Method(method)

	var err error
	if r.AcquisitionDate, err = fiscal.ParseDate(acquired); err != nil {
		return asset.Record{}, fmt.Errorf("asset %s: %w", r.Code, err)
	}
	if r.DisposalDate, err = fiscal.ParseDate(sold.String); err != nil {
		return asset.Record{}, fmt.Errorf("asset %s: %w", r.Code, err)
	}
	if r.OriginalValue, err = decimal.NewFromString(value); err != nil {
		return asset.Record{}, fmt.Errorf("asset %s: invalid original value: %w", r.Code, err)
	}
	if r.DeclineRate, err = parseNullDecimal(rate); err != nil {
		return asset.Record{}, fmt.Errorf("asset %s: invalid decline rate: %w", r.Code, err)
	}
	return r, nil
}

// =============================================================================
// FAMILIES
// =============================================================================

func (s *Store) SaveFamily(ctx context.Context, f asset.Family) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO families (code, label, method, useful_life_years, decline_rate, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			label = excluded.label,
			method = excluded.method,
			useful_life_years = excluded.useful_life_years,
			decline_rate = excluded.decline_rate,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		f.Code, f.Label, string(f.Method), f.UsefulLifeYears, nullDecimal(f.DeclineRate), now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save family: %w", err)
	}
	return nil
}

func (s *Store) GetFamily(ctx context.Context, code string) (asset.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT code, label, method, useful_life_years, decline_rate FROM families WHERE code = ?", code)
	f, err := scanFamily(row)
	if errors.Is(err, sql.ErrNoRows) {
		return asset.Family{}, store.ErrNotFound
	}
	return f, err
}

func (s *Store) ListFamilies(ctx context.Context) ([]asset.Family, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT code, label, method, useful_life_years, decline_rate FROM families ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []asset.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) DeleteFamily(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnreferenced(ctx, "family_code", code); err != nil {
		return err
	}
	return s.deleteByCode(ctx, "families", code)
}

func scanFamily(row scanner) (asset.Family, error) {
	var (
		f      asset.Family
		method string
		rate   sql.NullString
	)
	if err := row.Scan(&f.Code, &f.Label, &method, &f.UsefulLifeYears, &rate); err != nil {
		return asset.Family{}, err
	}
	f.Method = asset.Method(method)

	var err error
	if f.DeclineRate, err = parseNullDecimal(rate); err != nil {
		return asset.Family{}, fmt.Errorf("family %s: invalid decline rate: %w", f.Code, err)
	}
	return f, nil
}

// =============================================================================
// LOCATIONS
// =============================================================================

func (s *Store) SaveLocation(ctx context.Context, l asset.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO locations (code, label, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			label = excluded.label,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, l.Code, l.Label, now()); err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

func (s *Store) GetLocation(ctx context.Context, code string) (asset.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var l asset.Location
	err := s.db.QueryRowContext(ctx, "SELECT code, label FROM locations WHERE code = ?", code).
		Scan(&l.Code, &l.Label)
	if errors.Is(err, sql.ErrNoRows) {
		return asset.Location{}, store.ErrNotFound
	}
	return l, err
}

func (s *Store) ListLocations(ctx context.Context) ([]asset.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT code, label FROM locations ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []asset.Location
	for rows.Next() {
		var l asset.Location
		if err := rows.Scan(&l.Code, &l.Label); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) DeleteLocation(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUnreferenced(ctx, "location_code", code); err != nil {
		return err
	}
	return s.deleteByCode(ctx, "locations", code)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) SaveAccount(ctx context.Context, a asset.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO accounts (code, label, depreciation_account, expense_account, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			label = excluded.label,
			depreciation_account = excluded.depreciation_account,
			expense_account = excluded.expense_account,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		a.Code, a.Label, nullString(a.DepreciationAccount), nullString(a.ExpenseAccount), now())
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, code string) (asset.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT code, label, depreciation_account, expense_account FROM accounts WHERE code = ?", code)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return asset.Account{}, store.ErrNotFound
	}
	return a, err
}

func (s *Store) ListAccounts(ctx context.Context) ([]asset.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT code, label, depreciation_account, expense_account FROM accounts ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []asset.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAccount(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteByCode(ctx, "accounts", code)
}

func scanAccount(row scanner) (asset.Account, error) {
	var (
		a                    asset.Account
		depreciation, charge sql.NullString
	)
	if err := row.Scan(&a.Code, &a.Label, &depreciation, &charge); err != nil {
		return asset.Account{}, err
	}
	a.DepreciationAccount = depreciation.String
	a.ExpenseAccount = charge.String
	return a, nil
}

// =============================================================================
// ADMIN
// =============================================================================

// Reset clears all data. Use with caution.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"assets", "families", "locations", "accounts"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// deleteByCode must be called with the write lock held. table is never
// user input.
func (s *Store) deleteByCode(ctx context.Context, table, code string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE code = ?", code)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// checkUnreferenced returns store.ErrInUse when an asset points at code
// through column.
func (s *Store) checkUnreferenced(ctx context.Context, column, code string) error {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets WHERE "+column+" = ?", code).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %d asset(s) use %s", store.ErrInUse, n, code)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

func parseNullDecimal(s sql.NullString) (decimal.NullDecimal, error) {
	if !s.Valid || s.String == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
