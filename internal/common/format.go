package common

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	fmt.Println("\n" + strings.Repeat("=", width))
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// ShortHash abbreviates a hash or address for tables.
func ShortHash(value string) string {
	if value == "" {
		return "none"
	}
	if len(value) > 14 {
		return value[:8] + "..." + value[len(value)-4:]
	}
	return value
}

// FormatAmount renders an amount with its symbol, trimming to places.
func FormatAmount(amount decimal.Decimal, places int32, symbol string) string {
	return fmt.Sprintf("%s %s", amount.RoundDown(places).String(), symbol)
}

// FormatFiat renders a fiat amount with two decimals.
func FormatFiat(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%s %s", amount.StringFixed(2), currency)
}
