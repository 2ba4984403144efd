package deliverable

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatPrice normalizes an owner-entered price to "$12.50". Empty input
// yields an empty string.
func FormatPrice(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", nil
	}
	value = strings.TrimPrefix(value, "$")
	value = strings.ReplaceAll(value, ",", "")

	amount, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedPrice, raw)
	}
	if amount.IsNegative() {
		return "", fmt.Errorf("%w: %q is negative", ErrMalformedPrice, raw)
	}
	return "$" + amount.StringFixed(2), nil
}
