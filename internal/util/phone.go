package util

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeMobile converts a mobile number into gateway form: country
// code plus national number without the leading zero, digits only
// ("021 234 567" with code "64" -> "6421234567"). The SMS gateway
// address is {this}@{gateway-domain}. An empty countryCode means NZ.
func NormalizeMobile(raw, countryCode string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("phone is required")
	}
	if countryCode == "" {
		countryCode = "64"
	}

	var digits []rune
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
			continue
		}
		switch r {
		case '+', ' ', '-', '(', ')':
			continue
		default:
			return "", fmt.Errorf("phone contains invalid characters")
		}
	}

	d := string(digits)
	switch {
	case strings.HasPrefix(d, countryCode):
		// already has country code
	case strings.HasPrefix(d, "0"):
		d = countryCode + d[1:]
	default:
		d = countryCode + d
	}

	if len(d) < 10 || len(d) > 13 {
		return "", fmt.Errorf("phone does not look like a valid mobile number")
	}
	return d, nil
}
