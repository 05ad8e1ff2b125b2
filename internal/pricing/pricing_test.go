package pricing

import (
	"errors"
	"testing"

	"ms-travel-sales/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestShippingPrice(t *testing.T) {
	tests := []struct {
		name      string
		weight    string
		surcharge *models.ShippingSurcharge
		want      string
	}{
		{name: "under threshold", weight: "4", want: "10"},
		{name: "at threshold", weight: "10", want: "10"},
		{name: "over threshold", weight: "12.5", want: "15"},
		{name: "with surcharge", weight: "12.5", surcharge: &models.ShippingSurcharge{ExtraFee: dec("3.25")}, want: "18.25"},
		{name: "zero surcharge", weight: "1", surcharge: &models.ShippingSurcharge{ExtraFee: decimal.Zero}, want: "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShippingPrice(dec(tt.weight), DefaultRate(), tt.surcharge)
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestShippingPriceRejectsBadInput(t *testing.T) {
	_, err := ShippingPrice(decimal.Zero, DefaultRate(), nil)
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = ShippingPrice(dec("-1"), DefaultRate(), nil)
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = ShippingPrice(dec("5"), DefaultRate(), &models.ShippingSurcharge{ExtraFee: dec("-0.01")})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestRepriceUsesDestinationRate(t *testing.T) {
	dest := &models.Destination{
		BaseShippingPrice: dec("20"),
		PerKiloExtra:      dec("1.5"),
		BaseWeightKg:      dec("5"),
	}
	pkg := &models.Package{WeightKg: dec("9")}

	require.NoError(t, Reprice(pkg, dest, nil))
	assert.Equal(t, "26", pkg.ShippingPrice.String())
}
