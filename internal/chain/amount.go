package chain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimalAmount parses a decimal amount string to big.Int with the given decimal places.
// For example, "1.5" with 9 decimals returns 1500000000.
// Digits beyond decimalPlaces are truncated; callers that must reject
// excess precision check it before calling.
//
//nolint:gocognit,gocyclo // Decimal parsing requires sequential validation steps
func ParseDecimalAmount(amount string, decimalPlaces int, invalidAmountErr error) (*big.Int, error) {
	if amount == "" {
		return nil, invalidAmountErr
	}

	if strings.HasPrefix(amount, "-") || strings.HasPrefix(amount, "+") {
		return nil, invalidAmountErr
	}

	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return nil, invalidAmountErr
	}

	intPart := parts[0]
	decPart := ""
	if len(parts) == 2 {
		decPart = parts[1]
	}
	if intPart == "" && decPart == "" {
		return nil, invalidAmountErr
	}

	if intPart == "" {
		intPart = "0"
	}
	for _, c := range intPart {
		if c < '0' || c > '9' {
			return nil, invalidAmountErr
		}
	}
	intVal, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, invalidAmountErr
	}

	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimalPlaces)), nil)
	result := new(big.Int).Mul(intVal, multiplier)

	if decPart != "" {
		for _, c := range decPart {
			if c < '0' || c > '9' {
				return nil, invalidAmountErr
			}
		}

		for len(decPart) < decimalPlaces {
			decPart += "0"
		}
		decPart = decPart[:decimalPlaces]
		if decPart == "" {
			return result, nil
		}

		decVal, ok := new(big.Int).SetString(decPart, 10)
		if !ok {
			return nil, invalidAmountErr
		}

		result = result.Add(result, decVal)
	}

	return result, nil
}

// FormatDecimalAmount converts a big.Int to a human-readable string with the given decimal places.
// Trailing zeros after the decimal point are removed, keeping at least one digit.
// For example, 10000000 with 9 decimals returns "0.01".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0"
	}
	if decimalPlaces <= 0 {
		return amount.String()
	}

	str := amount.String()

	for len(str) <= decimalPlaces {
		str = "0" + str
	}

	decimalPos := len(str) - decimalPlaces
	result := str[:decimalPos] + "." + str[decimalPos:]

	for len(result) > 1 && result[len(result)-1] == '0' && result[len(result)-2] != '.' {
		result = result[:len(result)-1]
	}

	return result
}

// FormatUnits formats an amount held in the smallest unit.
func FormatUnits(units uint64, decimalPlaces int) string {
	return FormatDecimalAmount(new(big.Int).SetUint64(units), decimalPlaces)
}

// FormatFixed formats an amount held in the smallest unit with exactly
// places digits after the decimal point, rounding half away from zero.
// Used where a stable column width matters more than exactness, such as
// the observed balance in an insufficient-funds message.
func FormatFixed(units uint64, decimalPlaces, places int) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(decimalPlaces)) //nolint:gosec // G115: decimal places are small config values
	return d.StringFixed(int32(places))                                                 //nolint:gosec // G115: display precision is a small constant
}
