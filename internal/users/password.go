package users

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MinPasswordLength = 8

// PasswordReport lists every strength rule a password breaks.
type PasswordReport struct {
	LengthError    bool
	DigitError     bool
	UppercaseError bool
	LowercaseError bool
	SymbolError    bool
}

func CheckPassword(pw string) PasswordReport {
	r := PasswordReport{
		LengthError:    utf8.RuneCountInString(pw) < MinPasswordLength,
		DigitError:     true,
		UppercaseError: true,
		LowercaseError: true,
		SymbolError:    true,
	}
	for _, ch := range pw {
		switch {
		case unicode.IsDigit(ch):
			r.DigitError = false
		case unicode.IsUpper(ch):
			r.UppercaseError = false
		case unicode.IsLower(ch):
			r.LowercaseError = false
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch) || ch == ' ':
			r.SymbolError = false
		}
	}
	return r
}

func (r PasswordReport) OK() bool {
	return !(r.LengthError || r.DigitError || r.UppercaseError || r.LowercaseError || r.SymbolError)
}

// String renders the report the way it is returned to clients:
// "length_error: false, digit_error: true, ..., password_ok: false".
func (r PasswordReport) String() string {
	parts := []string{
		fmt.Sprintf("length_error: %t", r.LengthError),
		fmt.Sprintf("digit_error: %t", r.DigitError),
		fmt.Sprintf("uppercase_error: %t", r.UppercaseError),
		fmt.Sprintf("lowercase_error: %t", r.LowercaseError),
		fmt.Sprintf("symbol_error: %t", r.SymbolError),
		fmt.Sprintf("password_ok: %t", r.OK()),
	}
	return strings.Join(parts, ", ")
}
