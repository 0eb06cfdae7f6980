// Package quantize enforces the minimum tradable gold unit. Every amount
// bought through the platform is a whole number of 0.1 g units; amounts that
// are not are rejected with the nearest valid values, never silently rounded.
// The one exception is the fiat-to-grams conversion, where the platform picks
// the grams and may therefore round.
package quantize

import (
	"goldvault/internal/apperr"

	"github.com/shopspring/decimal"
)

// MinUnit is the minimum tradable increment in grams.
var MinUnit = decimal.RequireFromString("0.1")

var (
	ten = decimal.NewFromInt(10)
	// epsilon tolerates binary floating error on amounts that arrive as
	// JSON numbers before being converted to decimals.
	epsilon = decimal.New(1, -9)
)

// IsValidUnit reports whether g is a positive whole multiple of MinUnit.
func IsValidUnit(g decimal.Decimal) bool {
	if g.LessThanOrEqual(decimal.Zero) {
		return false
	}
	scaled := g.Mul(ten)
	return scaled.Sub(scaled.Round(0)).Abs().LessThanOrEqual(epsilon)
}

// RoundToUnit rounds g to the nearest multiple of MinUnit.
func RoundToUnit(g decimal.Decimal) decimal.Decimal {
	return g.Mul(ten).Round(0).Div(ten)
}

// SuggestedBounds returns the nearest valid amounts at or below and at or
// above g. The lower bound never drops below MinUnit.
func SuggestedBounds(g decimal.Decimal) (lower, upper decimal.Decimal) {
	scaled := g.Mul(ten)
	lower = scaled.Floor().Div(ten)
	upper = scaled.Ceil().Div(ten)
	if lower.LessThan(MinUnit) {
		lower = MinUnit
	}
	if upper.LessThan(MinUnit) {
		upper = MinUnit
	}
	return lower, upper
}

// Validate fails with an InvalidQuantity error when g is not a valid unit
// amount. The error carries the two nearest valid amounts.
func Validate(g decimal.Decimal) error {
	if IsValidUnit(g) {
		return nil
	}
	lower, upper := SuggestedBounds(g)
	return apperr.InvalidQuantity(lower, upper,
		"gold amount %s g is not a multiple of %s g; nearest valid amounts are %s g and %s g",
		g, MinUnit, lower, upper)
}

// FiatToGrams converts a fiat amount into grams at the given price per gram,
// rounded to the nearest valid unit. Callers must recompute the fiat actually
// charged as grams * price, since rounding moves the effective fiat amount.
func FiatToGrams(fiatAmount, pricePerGram decimal.Decimal) (decimal.Decimal, error) {
	if pricePerGram.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, apperr.BadRequest("price per gram must be positive, got %s", pricePerGram)
	}
	if fiatAmount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, apperr.BadRequest("fiat amount must be positive, got %s", fiatAmount)
	}
	g := RoundToUnit(fiatAmount.Div(pricePerGram))
	if err := Validate(g); err != nil {
		return decimal.Zero, err
	}
	return g, nil
}
