// Package storetest holds the behaviour every store.Store must share.
// Each implementation runs it from its own tests:
//
//	func TestStore(t *testing.T) {
//	    storetest.Run(t, func(t *testing.T) store.Store { return memory.New() })
//	}
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/factory"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) store.Store

// Run executes the shared suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("AssetRoundTrip", func(t *testing.T) { testAssetRoundTrip(t, newStore(t)) })
	t.Run("AssetUpsertReplacesSnapshot", func(t *testing.T) { testAssetUpsert(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
	t.Run("ListOrderedByCode", func(t *testing.T) { testListOrder(t, newStore(t)) })
	t.Run("DeleteReferencedMasterData", func(t *testing.T) { testInUse(t, newStore(t)) })
	t.Run("CatalogRoundTrip", func(t *testing.T) { testCatalog(t, newStore(t)) })
	t.Run("SeedIfEmpty", func(t *testing.T) { testSeed(t, newStore(t)) })
}

// SampleRecord returns a declining-balance asset with every optional
// field set.
func SampleRecord(code string) asset.Record {
	r := asset.Record{
		Code:            code,
		Label:           "MATERIEL INDUSTRIEL",
		FamilyCode:      "MI",
		LocationCode:    "U1",
		AcquisitionDate: fiscal.MustParseDate("2020-03-15"),
		OriginalValue:   decimal.RequireFromString("15000.50"),
		Method:          asset.MethodDeclining,
		UsefulLifeYears: 5,
	}
	return r.WithDeclineRate(decimal.RequireFromString("1.75")).
		WithDisposal(fiscal.MustParseDate("2023-06-30"))
}

// AssertSameRecord compares records by value. Decimals are compared
// numerically since storage may change their scale.
func AssertSameRecord(t *testing.T, want, got asset.Record) {
	t.Helper()
	assert.Equal(t, want.Code, got.Code)
	assert.Equal(t, want.Label, got.Label)
	assert.Equal(t, want.FamilyCode, got.FamilyCode)
	assert.Equal(t, want.LocationCode, got.LocationCode)
	assert.True(t, want.AcquisitionDate.Equal(got.AcquisitionDate), "acquisition %s != %s", want.AcquisitionDate, got.AcquisitionDate)
	assert.True(t, want.OriginalValue.Equal(got.OriginalValue), "value %s != %s", want.OriginalValue, got.OriginalValue)
	assert.Equal(t, want.Method, got.Method)
	assert.Equal(t, want.UsefulLifeYears, got.UsefulLifeYears)
	assert.Equal(t, want.DeclineRate.Valid, got.DeclineRate.Valid)
	if want.DeclineRate.Valid {
		assert.True(t, want.DeclineRate.Decimal.Equal(got.DeclineRate.Decimal))
	}
	assert.Equal(t, want.DisposalDate.String(), got.DisposalDate.String())
}

func testAssetRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	want := SampleRecord("215400")
	require.NoError(t, s.SaveAsset(ctx, want))

	got, err := s.GetAsset(ctx, "215400")
	require.NoError(t, err)
	AssertSameRecord(t, want, got)

	linear := asset.Record{
		Code:            "CHF02",
		Label:           "FAUTEUILS",
		AcquisitionDate: fiscal.MustParseDate("1999-01-01"),
		OriginalValue:   decimal.RequireFromString("446.68"),
		Method:          asset.MethodLinear,
		UsefulLifeYears: 3,
	}
	require.NoError(t, s.SaveAsset(ctx, linear))
	got, err = s.GetAsset(ctx, "CHF02")
	require.NoError(t, err)
	AssertSameRecord(t, linear, got)
	assert.False(t, got.DeclineRate.Valid)
	assert.True(t, got.DisposalDate.IsZero())
}

func testAssetUpsert(t *testing.T, s store.Store) {
	ctx := context.Background()
	r := SampleRecord("A1")
	require.NoError(t, s.SaveAsset(ctx, r))
	require.NoError(t, s.SaveAsset(ctx, r.WithLabel("PRESSE HYDRAULIQUE").WithDisposal(fiscal.Date{})))

	got, err := s.GetAsset(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "PRESSE HYDRAULIQUE", got.Label)
	assert.False(t, got.HasDisposal())

	all, err := s.ListAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetAsset(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetFamily(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetLocation(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.GetAccount(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.DeleteAsset(ctx, "nope"), store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteFamily(ctx, "nope"), store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteLocation(ctx, "nope"), store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteAccount(ctx, "nope"), store.ErrNotFound)
}

func testListOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, code := range []string{"C", "A", "B"} {
		require.NoError(t, s.SaveAsset(ctx, SampleRecord(code)))
		require.NoError(t, s.SaveLocation(ctx, asset.Location{Code: code, Label: "L" + code}))
	}

	assets, err := s.ListAssets(ctx)
	require.NoError(t, err)
	codes := []string{}
	for _, r := range assets {
		codes = append(codes, r.Code)
	}
	assert.Equal(t, []string{"A", "B", "C"}, codes)

	locations, err := s.ListLocations(ctx)
	require.NoError(t, err)
	require.Len(t, locations, 3)
	assert.Equal(t, "A", locations[0].Code)
}

func testInUse(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.SaveFamily(ctx, asset.Family{Code: "MI", Label: "MATERIEL INDUSTRIEL", Method: asset.MethodDeclining, UsefulLifeYears: 5}))
	require.NoError(t, s.SaveLocation(ctx, asset.Location{Code: "U1", Label: "USINE 1"}))
	require.NoError(t, s.SaveAsset(ctx, SampleRecord("215400")))

	err := s.DeleteFamily(ctx, "MI")
	assert.True(t, errors.Is(err, store.ErrInUse), "got %v", err)
	assert.ErrorIs(t, s.DeleteLocation(ctx, "U1"), store.ErrInUse)

	require.NoError(t, s.DeleteAsset(ctx, "215400"))
	assert.NoError(t, s.DeleteFamily(ctx, "MI"))
	assert.NoError(t, s.DeleteLocation(ctx, "U1"))
}

func testCatalog(t *testing.T, s store.Store) {
	ctx := context.Background()
	family := asset.Family{
		Code:            "MI",
		Label:           "MATERIEL INDUSTRIEL",
		Method:          asset.MethodDeclining,
		UsefulLifeYears: 5,
		DeclineRate:     decimal.NullDecimal{Decimal: decimal.RequireFromString("1.75"), Valid: true},
	}
	require.NoError(t, s.SaveFamily(ctx, family))
	got, err := s.GetFamily(ctx, "MI")
	require.NoError(t, err)
	assert.Equal(t, family.Label, got.Label)
	assert.Equal(t, family.Method, got.Method)
	assert.True(t, got.DeclineRate.Valid)
	assert.Equal(t, "1.75", got.DeclineRate.Decimal.StringFixed(2))

	account := asset.Account{Code: "215400", Label: "MATERIEL INDUSTRIEL", DepreciationAccount: "281540", ExpenseAccount: "681540"}
	require.NoError(t, s.SaveAccount(ctx, account))
	gotAccount, err := s.GetAccount(ctx, "215400")
	require.NoError(t, err)
	assert.Equal(t, account, gotAccount)

	require.NoError(t, s.SaveAccount(ctx, asset.Account{Code: "201000", Label: "FRAIS"}))
	accounts, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "201000", accounts[0].Code)
	assert.Empty(t, accounts[0].ExpenseAccount)

	require.NoError(t, s.DeleteAccount(ctx, "201000"))
	families, err := s.ListFamilies(ctx)
	require.NoError(t, err)
	assert.Len(t, families, 1)
}

func testSeed(t *testing.T, s store.Store) {
	ctx := context.Background()
	ds, err := factory.Seed()
	require.NoError(t, err)
	catalog, err := ds.Resolve()
	require.NoError(t, err)

	seeded, err := store.SeedIfEmpty(ctx, s, catalog)
	require.NoError(t, err)
	assert.True(t, seeded)

	again, err := store.SeedIfEmpty(ctx, s, catalog)
	require.NoError(t, err)
	assert.False(t, again)

	assets, err := s.ListAssets(ctx)
	require.NoError(t, err)
	assert.Len(t, assets, 3)
	families, err := s.ListFamilies(ctx)
	require.NoError(t, err)
	assert.Len(t, families, 6)
}
