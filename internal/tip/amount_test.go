package tip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

func newValidator(t *testing.T) *AmountValidator {
	t.Helper()
	v, err := NewAmountValidator(DefaultPolicy())
	require.NoError(t, err)
	return v
}

func TestValidate_Valid(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	tests := []struct {
		text string
		want Amount
	}{
		{"0.01", 10_000_000},
		{"0.001", 1_000_000},
		{"0.5", 500_000_000},
		{"1", 1_000_000_000},
		{" 2.5 ", 2_500_000_000},
		{".25", 250_000_000},
		{"3.", 3_000_000_000},
		{"0.123456789", 123_456_789},
		{"0.5000000000", 500_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got, err := v.Validate(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_Invalid(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	for _, text := range []string{
		"", "   ", "abc", "0", "0.0", "-1", "+1", "1,000", "1,5", "1e3", "1.2.3",
		"1 000", "0x10", "NaN", "Inf", "1.0000000001", "99999999999999999999",
	} {
		t.Run(text, func(t *testing.T) {
			t.Parallel()
			_, err := v.Validate(text)
			require.ErrorIs(t, err, ErrInvalidAmount)
			assert.Equal(t, tjerr.ExitInput, tjerr.ExitCode(err))
		})
	}
}

func TestValidate_BelowMinimumNeverInvalid(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	for _, text := range []string{"0.0001", "0.0009", "0.000999999", "0.0000000001", "0.00000000000001"} {
		t.Run(text, func(t *testing.T) {
			t.Parallel()
			_, err := v.Validate(text)
			require.ErrorIs(t, err, ErrBelowMinimum)
			assert.NotErrorIs(t, err, ErrInvalidAmount)
			assert.Equal(t, "0.001 SOL", tjerr.Details(err)["minimum"])
		})
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	units, err := v.Validate("0.01")
	require.NoError(t, err)
	assert.Equal(t, Amount(10_000_000), units)
	assert.Equal(t, "0.01", FormatAmount(units, 9))

	for _, text := range []string{"0.001", "1.5", "12.000000001", "1", "25", "10.5"} {
		units, err := v.Validate(text)
		require.NoError(t, err)
		assert.Equal(t, text, FormatAmount(units, 9))
	}
}

func TestFormatAmount_WholeUnits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		units Amount
		want  string
	}{
		{0, "0"},
		{1_000_000_000, "1"},
		{20_000_000_000, "20"},
		{1_500_000_000, "1.5"},
		{5000, "0.000005"},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, FormatAmount(tc.units, 9))
		})
	}

	v := newValidator(t)
	units, err := v.Validate("1.000")
	require.NoError(t, err)
	assert.Equal(t, "1", FormatAmount(units, 9))
}

func TestNewAmountValidator_BadPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		policy Policy
	}{
		{"zero minimum", Policy{MinTip: "0", Decimals: 9}},
		{"unparsable minimum", Policy{MinTip: "abc", Decimals: 9}},
		{"minimum finer than decimals", Policy{MinTip: "0.0001", Decimals: 2}},
		{"negative decimals", Policy{MinTip: "1", Decimals: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewAmountValidator(tt.policy)
			require.ErrorIs(t, err, tjerr.ErrConfigInvalid)
		})
	}
}

func TestQuickAmounts(t *testing.T) {
	t.Parallel()
	v := newValidator(t)

	got, err := v.QuickAmounts([]string{"0.001", "0.01", "0.10", "0.5"})
	require.NoError(t, err)
	assert.Equal(t, []QuickAmount{
		{Text: "0.001", Units: 1_000_000},
		{Text: "0.01", Units: 10_000_000},
		{Text: "0.1", Units: 100_000_000},
		{Text: "0.5", Units: 500_000_000},
	}, got)

	_, err = v.QuickAmounts([]string{"0.01", "0.0001"})
	require.ErrorIs(t, err, ErrBelowMinimum)
	assert.Equal(t, Amount(1_000_000), v.Minimum())
}
