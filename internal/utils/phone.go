package utils

import (
	"strings"

	"github.com/riteshkumar/core-ledger/internal/errors"
)

var mobilePrefixes = []string{"0412", "0422", "0414", "0424", "0416", "0426"}

// NormalizePhone accepts a Venezuelan mobile number in local, national or
// international form and returns it as +58XXXXXXXXXX.
func NormalizePhone(raw string) (string, error) {
	v := strings.TrimPrefix(strings.TrimSpace(raw), "+")
	v = strings.NewReplacer(" ", "", "-", "").Replace(v)

	if v == "" || strings.IndexFunc(v, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return "", errors.ErrInvalidPhone
	}

	if len(v) == 12 && strings.HasPrefix(v, "58") {
		v = "0" + v[2:]
	}
	if len(v) == 10 && strings.HasPrefix(v, "4") {
		v = "0" + v
	}
	if len(v) != 11 {
		return "", errors.ErrInvalidPhone
	}

	for _, prefix := range mobilePrefixes {
		if strings.HasPrefix(v, prefix) {
			return "+58" + v[1:], nil
		}
	}
	return "", errors.ErrInvalidPhone
}
