package domain

import (
	"regexp"
	"strings"
)

// SensitiveRule names one sensitive-data heuristic. Findings carry the rule
// name and the column identifier, never a matched value.
type SensitiveRule string

const (
	RuleColumnKeyword     SensitiveRule = "column_name_keyword"
	RuleEmailPattern      SensitiveRule = "email_pattern"
	RuleSSNPattern        SensitiveRule = "ssn_pattern"
	RuleCreditCardPattern SensitiveRule = "credit_card_pattern"
	RulePlaintextPassword SensitiveRule = "plaintext_password"
	RuleHashedPassword    SensitiveRule = "hashed_password"
)

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	ssnRe   = regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`)
	digitRe = regexp.MustCompile(`^[\d\s-]+$`)
	hexRe   = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

// DefaultSensitiveKeywords are the column-name substrings that flag a text
// column regardless of content. A policy file may extend this set.
var DefaultSensitiveKeywords = []string{
	"password", "passwd", "ssn", "social_security", "secret",
	"token", "api_key", "credit_card", "card_number", "cc_num",
}

// MatchesSensitiveName reports whether the column name contains any of the
// given keywords, and which one matched.
func MatchesSensitiveName(column string, keywords []string) (string, bool) {
	lower := strings.ToLower(column)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// LooksLikeEmail reports whether a value matches the email pattern.
func LooksLikeEmail(value string) bool {
	return emailRe.MatchString(value)
}

// LooksLikeSSN reports whether a value matches the US SSN format.
func LooksLikeSSN(value string) bool {
	return ssnRe.MatchString(value)
}

// LooksLikeCreditCard reports whether a value is a 13-19 digit numeric
// string (spaces and dashes ignored) that passes the Luhn checksum.
func LooksLikeCreditCard(value string) bool {
	if !digitRe.MatchString(value) {
		return false
	}
	digits := strings.NewReplacer(" ", "", "-", "").Replace(value)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	return luhnValid(digits)
}

func luhnValid(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return false
		}
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// LooksLikeHashedPassword reports whether a value has the shape of a common
// password digest (64 hex characters, i.e. SHA-256).
func LooksLikeHashedPassword(value string) bool {
	return hexRe.MatchString(value)
}

// LooksLikePlaintextPassword is the inverse heuristic for password columns:
// short, single-token values without digest structure.
func LooksLikePlaintextPassword(value string) bool {
	if LooksLikeHashedPassword(value) {
		return false
	}
	return len(value) < 30 && !strings.ContainsAny(value, " \t\n")
}
