package models

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/shopspring/decimal"
)

// Invalid wraps the field errors of a request so callers can match ErrValidation.
func Invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// Known rejects enum values whose Valid method reports false. Empty values pass.
var Known = validation.By(func(value interface{}) error {
	if validation.IsEmpty(value) {
		return nil
	}
	if e, ok := value.(interface{ Valid() bool }); ok && !e.Valid() {
		return fmt.Errorf("unknown value %q", value)
	}
	return nil
})

// Positive requires a decimal greater than zero.
var Positive = validation.By(func(value interface{}) error {
	d, ok := decimalValue(value)
	if !ok || !d.IsPositive() {
		return errors.New("must be positive")
	}
	return nil
})

// NotNegative rejects decimals below zero. A nil pointer passes.
var NotNegative = validation.By(func(value interface{}) error {
	d, ok := decimalValue(value)
	if ok && d.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
})

func decimalValue(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, false
		}
		return *v, true
	}
	return decimal.Zero, false
}
