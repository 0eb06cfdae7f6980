package quantize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldvault/internal/apperr"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestIsValidUnit(t *testing.T) {
	cases := []struct {
		in    string
		valid bool
	}{
		{"0.1", true},
		{"0.2", true},
		{"1", true},
		{"2.5", true},
		{"100.0", true},
		{"0", false},
		{"-0.1", false},
		{"0.05", false},
		{"0.14", false},
		{"1.25", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.valid, IsValidUnit(dec(tc.in)), "IsValidUnit(%s)", tc.in)
	}
}

func TestIsValidUnitToleratesFloatNoise(t *testing.T) {
	// 0.1+0.2 as float64 is 0.30000000000000004; the epsilon must absorb it.
	g := decimal.NewFromFloat(0.1 + 0.2)
	assert.True(t, IsValidUnit(g))
}

func TestRoundToUnitIdempotent(t *testing.T) {
	for _, s := range []string{"0.04", "0.05", "0.14", "0.15", "0.492", "3.33", "7"} {
		once := RoundToUnit(dec(s))
		twice := RoundToUnit(once)
		assert.True(t, once.Equal(twice), "RoundToUnit not idempotent for %s: %s vs %s", s, once, twice)
	}
}

func TestSuggestedBounds(t *testing.T) {
	cases := []struct {
		in, lower, upper string
	}{
		{"0.14", "0.1", "0.2"},
		{"0.05", "0.1", "0.1"}, // lower clamps at the minimum unit
		{"1.25", "1.2", "1.3"},
		{"0.2", "0.2", "0.2"},
	}
	for _, tc := range cases {
		lower, upper := SuggestedBounds(dec(tc.in))
		assert.True(t, lower.Equal(dec(tc.lower)), "lower(%s) = %s, want %s", tc.in, lower, tc.lower)
		assert.True(t, upper.Equal(dec(tc.upper)), "upper(%s) = %s, want %s", tc.in, upper, tc.upper)
	}
}

func TestValidateCarriesSuggestions(t *testing.T) {
	err := Validate(dec("0.14"))
	require.Error(t, err)
	var e *apperr.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, apperr.KindInvalidQuantity, e.Kind)
	require.NotNil(t, e.SuggestedLower)
	require.NotNil(t, e.SuggestedUpper)
	assert.True(t, e.SuggestedLower.Equal(dec("0.1")))
	assert.True(t, e.SuggestedUpper.Equal(dec("0.2")))

	assert.NoError(t, Validate(dec("0.3")))
}

func TestFiatToGrams(t *testing.T) {
	cases := []struct {
		fiat, price, grams string
	}{
		{"123", "250", "0.5"}, // 0.492 rounds up
		{"100", "250", "0.4"},
		{"1000", "250", "4"},
		{"30", "300", "0.1"},
	}
	for _, tc := range cases {
		g, err := FiatToGrams(dec(tc.fiat), dec(tc.price))
		require.NoError(t, err, "FiatToGrams(%s, %s)", tc.fiat, tc.price)
		assert.True(t, g.Equal(dec(tc.grams)), "FiatToGrams(%s, %s) = %s, want %s", tc.fiat, tc.price, g, tc.grams)
	}
}

func TestFiatToGramsRejectsAmountsBelowHalfUnit(t *testing.T) {
	// 10/250 = 0.04 g rounds to 0, which is not a tradable amount.
	_, err := FiatToGrams(dec("10"), dec("250"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidQuantity, apperr.KindOf(err))
}

func TestFiatToGramsRejectsBadInputs(t *testing.T) {
	_, err := FiatToGrams(dec("100"), decimal.Zero)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	_, err = FiatToGrams(decimal.Zero, dec("250"))
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}
