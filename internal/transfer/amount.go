package transfer

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"glyph-wallet-go/internal/models"
	"glyph-wallet-go/internal/units"
)

var amountPattern = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

// NormalizeAmount accepts digits with at most one decimal separator. A
// comma separator is rewritten to a dot.
func NormalizeAmount(input string) (string, error) {
	value := strings.ReplaceAll(strings.TrimSpace(input), ",", ".")
	if !amountPattern.MatchString(value) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	return value, nil
}

// ParseAmount reads a normalized input. Empty and lone-separator inputs are
// zero.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSuffix(value, ".")
	if value == "" {
		return decimal.Zero, nil
	}
	if strings.HasPrefix(value, ".") {
		value = "0" + value
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return amount, nil
}

func fractionDigits(value string) int {
	if i := strings.IndexByte(value, '.'); i >= 0 {
		return len(value) - i - 1
	}
	return 0
}

// tokenBalance returns the exact balance in the smallest unit and in token units.
func tokenBalance(token models.TokenBalance) (*big.Int, decimal.Decimal, error) {
	if token.ValueInWei == "" && token.Value != "" {
		value, err := decimal.NewFromString(token.Value)
		if err != nil {
			return nil, decimal.Zero, fmt.Errorf("invalid balance %q for %s: %w", token.Value, token.Symbol, err)
		}
		wei, err := units.ToSmallestUnit(value, token.Decimals)
		if err != nil {
			return nil, decimal.Zero, err
		}
		return wei, value, nil
	}

	wei, err := token.Wei()
	if err != nil {
		return nil, decimal.Zero, err
	}
	return wei, units.FromSmallestUnit(wei, token.Decimals), nil
}
