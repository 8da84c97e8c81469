// Package phone normalizes patient phone numbers to E.164. The feed is
// Romanian-only, so every accepted form maps onto +40 plus nine digits.
package phone

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	separators = strings.NewReplacer(" ", "", "\t", "", "(", "", ")", "", ".", "", "-", "")
	nineDigits = regexp.MustCompile(`^\d{9}$`)
)

// NormalizeRO canonicalizes a Romanian phone number to +40XXXXXXXXX.
// Accepted inputs: +40..., 40..., or national format starting with 0,
// with any mix of spaces, dots, dashes and parentheses.
func NormalizeRO(input string) (string, error) {
	raw := separators.Replace(strings.TrimSpace(input))
	if raw == "" {
		return "", fmt.Errorf("phone: empty number")
	}

	var digits string
	switch {
	case strings.HasPrefix(raw, "+40"):
		digits = raw[3:]
	case strings.HasPrefix(raw, "40"):
		digits = raw[2:]
	case strings.HasPrefix(raw, "0"):
		digits = raw[1:]
	default:
		return "", fmt.Errorf("phone: invalid Romanian number: %s", input)
	}

	if !nineDigits.MatchString(digits) {
		return "", fmt.Errorf("phone: invalid Romanian number: %s", input)
	}
	return "+40" + digits, nil
}
