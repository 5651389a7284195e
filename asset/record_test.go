package asset_test

import (
	"errors"
	"testing"

	"github.com/fredclo/Gestion-Comptable-Immobiliation/asset"
	"github.com/fredclo/Gestion-Comptable-Immobiliation/fiscal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validLinear() asset.Record {
	return asset.Record{
		Code:            "218200",
		Label:           "MATERIEL DE TRANSPORT",
		FamilyCode:      "VEH",
		LocationCode:    "AP",
		AcquisitionDate: fiscal.MustParseDate("2021-06-10"),
		OriginalValue:   decimal.RequireFromString("25000.00"),
		Method:          asset.MethodLinear,
		UsefulLifeYears: 4,
	}
}

func TestNew_ValidRecords(t *testing.T) {
	r, err := asset.New(validLinear())
	require.NoError(t, err)
	assert.Equal(t, "218200", r.Code)

	declining := validLinear()
	declining.Method = asset.MethodDeclining
	declining = declining.WithDeclineRate(decimal.RequireFromString("1.25"))
	_, err = asset.New(declining)
	assert.NoError(t, err)
}

func TestValidate_Invariants(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r asset.Record) asset.Record
		field  string
	}{
		{"zero value", func(r asset.Record) asset.Record { r.OriginalValue = decimal.Zero; return r }, "originalValue"},
		{"negative value", func(r asset.Record) asset.Record { r.OriginalValue = decimal.NewFromInt(-5); return r }, "originalValue"},
		{"zero life", func(r asset.Record) asset.Record { r.UsefulLifeYears = 0; return r }, "usefulLifeYears"},
		{"missing code", func(r asset.Record) asset.Record { r.Code = " "; return r }, "code"},
		{"missing acquisition", func(r asset.Record) asset.Record { r.AcquisitionDate = fiscal.Date{}; return r }, "acquisitionDate"},
		{"disposal before acquisition", func(r asset.Record) asset.Record {
			return r.WithDisposal(fiscal.MustParseDate("2020-01-01"))
		}, "disposalDate"},
		{"declining without rate", func(r asset.Record) asset.Record { r.Method = asset.MethodDeclining; return r }, "declineRate"},
		{"declining with rate 1.0", func(r asset.Record) asset.Record {
			r.Method = asset.MethodDeclining
			return r.WithDeclineRate(decimal.NewFromInt(1))
		}, "declineRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.mutate(validLinear()).Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, asset.ErrInvalidAsset)
			assert.True(t, asset.IsClientError(err))

			var inv *asset.InvalidAssetError
			require.True(t, errors.As(err, &inv))
			assert.Equal(t, tt.field, inv.Field)
		})
	}
}

func TestValidate_UnsupportedMethod(t *testing.T) {
	r := validLinear()
	r.Method = asset.NormalizeMethod("aucun")

	err := r.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, asset.ErrUnsupportedMethod)
	assert.NotErrorIs(t, err, asset.ErrInvalidAsset)

	r.Method = asset.Method("SUM_OF_YEARS")
	var unsupported *asset.UnsupportedMethodError
	require.True(t, errors.As(r.Validate(), &unsupported))
	assert.Equal(t, asset.Method("SUM_OF_YEARS"), unsupported.Method)
}

func TestNormalizeMethod(t *testing.T) {
	assert.Equal(t, asset.MethodLinear, asset.NormalizeMethod("LINEAIRE"))
	assert.Equal(t, asset.MethodLinear, asset.NormalizeMethod(" linear "))
	assert.Equal(t, asset.MethodDeclining, asset.NormalizeMethod("Degressif"))
	assert.Equal(t, asset.MethodDeclining, asset.NormalizeMethod("dégressif"))
	assert.Equal(t, asset.MethodNone, asset.NormalizeMethod("AUCUN"))
	assert.Equal(t, asset.Method("FOO"), asset.NormalizeMethod("foo"))
	assert.False(t, asset.Method("FOO").IsValid())
}

func TestWithMethods_ReturnNewSnapshot(t *testing.T) {
	original := validLinear()
	disposed := original.WithDisposal(fiscal.MustParseDate("2024-03-31"))

	assert.True(t, original.DisposalDate.IsZero(), "original snapshot must be untouched")
	assert.True(t, disposed.HasDisposal())
	assert.True(t, disposed.IsDisposed(fiscal.MustParseDate("2024-03-31")))
	assert.False(t, disposed.IsDisposed(fiscal.MustParseDate("2024-03-30")))

	relabelled := original.WithLabel("CAMION").WithLocation("SS")
	assert.Equal(t, "MATERIEL DE TRANSPORT", original.Label)
	assert.Equal(t, "CAMION", relabelled.Label)
	assert.Equal(t, "SS", relabelled.LocationCode)
}

func TestFamily_Validate(t *testing.T) {
	land := asset.Family{Code: "TER", Label: "TERRAINS", Method: asset.MethodNone}
	assert.NoError(t, land.Validate())

	furniture := asset.Family{Code: "MOB", Label: "MOBILIER", Method: asset.MethodLinear}
	assert.ErrorIs(t, furniture.Validate(), asset.ErrInvalidAsset)

	furniture.UsefulLifeYears = 10
	assert.NoError(t, furniture.Validate())

	furniture.Method = asset.Method("X")
	assert.ErrorIs(t, furniture.Validate(), asset.ErrUnsupportedMethod)
}
