package phone

import (
	"errors"
	"strings"
)

const (
	minDigits = 8
	maxDigits = 15
)

// ErrInvalid is returned for input that cannot be a phone number.
var ErrInvalid = errors.New("invalid phone number")

var separators = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "", "\t", "")

// Normalize returns a +<country><number> form. Rules, applied once:
//   - a leading + is kept
//   - a leading 00 becomes +
//   - a leading 0 (trunk prefix) is replaced by +<defaultCC>
//   - anything else gets +<defaultCC> prepended
//
// Normalizing an already normalized number returns it unchanged.
func Normalize(raw, defaultCC string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "whatsapp:")
	s = separators.Replace(s)
	cc := strings.TrimPrefix(strings.TrimSpace(defaultCC), "+")

	var digits string
	switch {
	case strings.HasPrefix(s, "+"):
		digits = s[1:]
	case strings.HasPrefix(s, "00"):
		digits = s[2:]
	case strings.HasPrefix(s, "0"):
		digits = cc + s[1:]
	default:
		digits = cc + s
	}

	if !isDigits(digits) || !isDigits(cc) {
		return "", ErrInvalid
	}
	if len(digits) < minDigits || len(digits) > maxDigits {
		return "", ErrInvalid
	}
	return "+" + digits, nil
}

// Mask hides all but the last four digits, for logs.
func Mask(number string) string {
	if len(number) <= 4 {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
