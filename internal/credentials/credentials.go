// Package credentials checks password strength and email well-formedness.
//
// The password policy requires one lowercase letter, one uppercase letter, one
// digit and one of @$!%*?&, and rejects any character outside
// [A-Za-z0-9@$!%*?&]. Both halves of the rule apply: a password with every class
// present still fails if it contains, for example, '#'.
package credentials

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const SpecialCharacters = "@$!%*?&"

const maxEmailLength = 254

type Violation string

const (
	MissingLowercase    Violation = "missing_lowercase"
	MissingUppercase    Violation = "missing_uppercase"
	MissingDigit        Violation = "missing_digit"
	MissingSpecial      Violation = "missing_special"
	DisallowedCharacter Violation = "disallowed_character"
)

type PasswordResult struct {
	OK         bool
	Violations []Violation
}

// ValidatePassword never fails on bad input; it reports what is wrong.
func ValidatePassword(candidate string) PasswordResult {
	var lower, upper, digit, special, disallowed int

	for _, r := range candidate {
		switch {
		case r >= 'a' && r <= 'z':
			lower++
		case r >= 'A' && r <= 'Z':
			upper++
		case r >= '0' && r <= '9':
			digit++
		case strings.ContainsRune(SpecialCharacters, r):
			special++
		default:
			disallowed++
		}
	}

	var violations []Violation
	if lower == 0 {
		violations = append(violations, MissingLowercase)
	}
	if upper == 0 {
		violations = append(violations, MissingUppercase)
	}
	if digit == 0 {
		violations = append(violations, MissingDigit)
	}
	if special == 0 {
		violations = append(violations, MissingSpecial)
	}
	if disallowed > 0 {
		violations = append(violations, DisallowedCharacter)
	}

	return PasswordResult{
		OK:         len(violations) == 0,
		Violations: violations,
	}
}

// ViolationCodes flattens violations for JSON error details.
func (r PasswordResult) ViolationCodes() []string {
	codes := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		codes = append(codes, string(v))
	}
	return codes
}

type EmailResult struct {
	OK         bool
	Normalized string
}

var validate = validator.New()

func ValidateEmail(candidate string) EmailResult {
	normalized := NormalizeEmail(candidate)
	if normalized == "" || len(normalized) > maxEmailLength {
		return EmailResult{Normalized: normalized}
	}
	if err := validate.Var(normalized, "required,email"); err != nil {
		return EmailResult{Normalized: normalized}
	}
	return EmailResult{OK: true, Normalized: normalized}
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
