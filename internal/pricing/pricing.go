// Package pricing holds the shipping price rule for packages.
package pricing

import (
	"fmt"

	"ms-travel-sales/internal/models"

	"github.com/shopspring/decimal"
)

var (
	DefaultBasePrice    = decimal.NewFromInt(10)
	DefaultPerKilo      = decimal.NewFromInt(2)
	DefaultBaseWeightKg = decimal.NewFromInt(10)
)

// Rate is the shipping tariff of a destination.
type Rate struct {
	BasePrice    decimal.Decimal
	PerKilo      decimal.Decimal
	BaseWeightKg decimal.Decimal
}

func DefaultRate() Rate {
	return Rate{BasePrice: DefaultBasePrice, PerKilo: DefaultPerKilo, BaseWeightKg: DefaultBaseWeightKg}
}

// RateFor reads the tariff stored on a destination.
func RateFor(dest *models.Destination) Rate {
	return Rate{
		BasePrice:    dest.BaseShippingPrice,
		PerKilo:      dest.PerKiloExtra,
		BaseWeightKg: dest.BaseWeightKg,
	}
}

// ShippingPrice returns base + max(0, weight - baseWeight) * perKilo, plus
// the surcharge extra fee when a surcharge record exists.
func ShippingPrice(weight decimal.Decimal, rate Rate, surcharge *models.ShippingSurcharge) (decimal.Decimal, error) {
	if !weight.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: weight must be positive, got %s", models.ErrValidation, weight)
	}

	price := rate.BasePrice
	if over := weight.Sub(rate.BaseWeightKg); over.IsPositive() {
		price = price.Add(over.Mul(rate.PerKilo))
	}

	if surcharge != nil {
		if surcharge.ExtraFee.IsNegative() {
			return decimal.Zero, fmt.Errorf("%w: surcharge must not be negative", models.ErrValidation)
		}
		price = price.Add(surcharge.ExtraFee)
	}
	return price.Round(2), nil
}

// Reprice recomputes a package's price at save time.
func Reprice(pkg *models.Package, dest *models.Destination, surcharge *models.ShippingSurcharge) error {
	price, err := ShippingPrice(pkg.WeightKg, RateFor(dest), surcharge)
	if err != nil {
		return err
	}
	pkg.ShippingPrice = price
	return nil
}
