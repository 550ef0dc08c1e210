package tip

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mrz1836/tipjar/internal/chain"
	tjerr "github.com/mrz1836/tipjar/pkg/errors"
)

// Amount is a tip in the smallest indivisible unit.
type Amount uint64

// Policy holds the tipping constants.
type Policy struct {
	MinTip      string // Minimum tip in display units
	Decimals    int    // Display unit = 10^Decimals smallest units
	FeeLamports uint64 // Fee headroom required on top of the amount
	Symbol      string
}

// DefaultPolicy returns the native SOL tipping policy.
func DefaultPolicy() Policy {
	return Policy{
		MinTip:      "0.001",
		Decimals:    9,
		FeeLamports: 5000,
		Symbol:      "SOL",
	}
}

// FormatAmount formats smallest units for display without trailing zeros,
// so whole amounts render as integers ("1", not "1.0"). It inverts
// AmountValidator.Validate for canonical text, i.e. text without trailing
// fractional zeros.
func FormatAmount(units Amount, decimals int) string {
	return strings.TrimSuffix(chain.FormatUnits(uint64(units), decimals), ".0")
}

// AmountValidator parses user-entered tip amounts. It performs no I/O.
type AmountValidator struct {
	policy   Policy
	min      decimal.Decimal
	minUnits Amount
}

// NewAmountValidator validates the policy and returns a validator.
func NewAmountValidator(p Policy) (*AmountValidator, error) {
	if p.Decimals < 0 || p.Decimals > 18 {
		return nil, tjerr.WithDetails(tjerr.ErrConfigInvalid, map[string]string{"policy.decimals": "must be between 0 and 18"})
	}
	minDec, err := decimal.NewFromString(p.MinTip)
	if err != nil || !minDec.IsPositive() {
		return nil, tjerr.WithDetails(tjerr.ErrConfigInvalid, map[string]string{"policy.min_tip": p.MinTip})
	}
	v := &AmountValidator{policy: p, min: minDec}
	minUnits, err := v.toUnits(p.MinTip, minDec)
	if err != nil {
		return nil, tjerr.WithDetails(tjerr.ErrConfigInvalid, map[string]string{"policy.min_tip": p.MinTip})
	}
	v.minUnits = minUnits
	return v, nil
}

// Policy returns the validator's policy.
func (v *AmountValidator) Policy() Policy {
	return v.policy
}

// Minimum returns the minimum tip in smallest units.
func (v *AmountValidator) Minimum() Amount {
	return v.minUnits
}

// Validate parses amountText in display units and returns smallest units.
//
// Only plain decimals are accepted: digits with at most one '.', no sign,
// exponent, grouping separator or inner space. A value at or below zero is
// ErrInvalidAmount; a positive value under the minimum is ErrBelowMinimum,
// checked before precision so tiny amounts always report the minimum.
func (v *AmountValidator) Validate(amountText string) (Amount, error) {
	text := strings.TrimSpace(amountText)
	details := map[string]string{"amount": text}

	if !isPlainDecimal(text) {
		return 0, tjerr.WithDetails(ErrInvalidAmount, details)
	}
	d, err := decimal.NewFromString(text)
	if err != nil || !d.IsPositive() {
		return 0, tjerr.WithDetails(ErrInvalidAmount, details)
	}
	if d.LessThan(v.min) {
		details["minimum"] = v.policy.MinTip + " " + v.policy.Symbol
		return 0, tjerr.WithDetails(ErrBelowMinimum, details)
	}
	return v.toUnits(text, d)
}

func (v *AmountValidator) toUnits(text string, d decimal.Decimal) (Amount, error) {
	details := map[string]string{"amount": text}
	if !d.Equal(d.Truncate(int32(v.policy.Decimals))) { //nolint:gosec // G115: bounded in NewAmountValidator
		details["max_decimals"] = strconv.Itoa(v.policy.Decimals)
		return 0, tjerr.WithDetails(ErrInvalidAmount, details)
	}
	units, err := chain.ParseDecimalAmount(text, v.policy.Decimals, ErrInvalidAmount)
	if err != nil {
		return 0, tjerr.WithDetails(err, details)
	}
	if !units.IsUint64() || units.Sign() <= 0 {
		return 0, tjerr.WithDetails(ErrInvalidAmount, details)
	}
	return Amount(units.Uint64()), nil
}

// isPlainDecimal reports whether s is digits with at most one '.' and at least one digit.
func isPlainDecimal(s string) bool {
	digits, dots := 0, 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// QuickAmount is a preset tip offered by a UI.
type QuickAmount struct {
	Text  string `json:"text"`
	Units Amount `json:"units"`
}

// QuickAmounts validates preset amounts. Any invalid preset is an error.
func (v *AmountValidator) QuickAmounts(texts []string) ([]QuickAmount, error) {
	out := make([]QuickAmount, 0, len(texts))
	for _, t := range texts {
		units, err := v.Validate(t)
		if err != nil {
			return nil, tjerr.Wrap(err, "quick amount %q", t)
		}
		out = append(out, QuickAmount{Text: FormatAmount(units, v.policy.Decimals), Units: units})
	}
	return out, nil
}
