package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinLength is the minimum number of characters in a strong password.
const MinLength = 8

// SpecialChars lists the characters a strong password needs at least one of.
const SpecialChars = "@#$%^&+=!"

// IsStrong reports whether p is at least MinLength characters long, contains
// a digit, a lowercase letter, an uppercase letter and one of SpecialChars,
// and contains no whitespace.
func IsStrong(p string) bool {
	if utf8.RuneCountInString(p) < MinLength {
		return false
	}

	var digit, lower, upper, special bool
	for _, r := range p {
		switch {
		case unicode.IsSpace(r):
			return false
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case strings.ContainsRune(SpecialChars, r):
			special = true
		}
	}
	return digit && lower && upper && special
}

// Matches reports whether the confirmation equals the password exactly.
func Matches(p, confirmation string) bool {
	return p == confirmation
}
