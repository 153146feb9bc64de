package units

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// FromSmallestUnit converts an integer amount (wei for native, base units for
// tokens) into its display decimal. The conversion is exact.
func FromSmallestUnit(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// ToSmallestUnit converts a user-entered decimal into the asset's smallest
// unit. Fractional digits beyond the asset precision are truncated so the
// result never exceeds what was typed.
func ToSmallestUnit(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", amount.String())
	}
	return amount.Shift(decimals).Truncate(0).BigInt(), nil
}

// ParseSmallestUnit parses a base-10 integer string as carried on the wire.
func ParseSmallestUnit(value string) (*big.Int, error) {
	if value == "" {
		return new(big.Int), nil
	}
	raw, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer amount %q", value)
	}
	return raw, nil
}

// Display rounds a value for presentation. It must never feed back into an
// on-chain amount.
func Display(amount decimal.Decimal, displayDecimals int32) decimal.Decimal {
	return amount.RoundDown(displayDecimals)
}
