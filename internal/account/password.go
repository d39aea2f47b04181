package account

import (
	"unicode"

	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// MinPasswordLength is the shortest accepted wallet password.
const MinPasswordLength = 8

// ValidatePassword enforces the wallet password policy: at least
// MinPasswordLength characters including a letter and a digit.
func ValidatePassword(pw string) error {
	var letter, digit bool
	n := 0
	for _, r := range pw {
		n++
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case n < MinPasswordLength:
		return weak("password must be at least 8 characters")
	case !letter || !digit:
		return weak("password must contain letters and numbers")
	}
	return nil
}

func weak(reason string) error {
	return walleterr.WithDetails(walleterr.ErrWeakPassword, map[string]string{"reason": reason})
}
