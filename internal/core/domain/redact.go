package domain

import (
	"crypto/sha256"
	"fmt"
)

// RedactParam renders a bound parameter value for audit output without
// persisting sampled data: only the last 4 characters survive, the rest is
// replaced with asterisks. Works correctly with multi-byte strings.
func RedactParam(value any) string {
	if value == nil {
		return "<nil>"
	}
	s := fmt.Sprintf("%v", value)
	runes := []rune(s)
	if len(runes) <= 4 {
		return "***" + s
	}
	masked := make([]rune, len(runes))
	for i := range masked {
		if i < len(runes)-4 {
			masked[i] = '*'
		} else {
			masked[i] = runes[i]
		}
	}
	return string(masked)
}

// RedactParams redacts a parameter list for audit output.
func RedactParams(params []any) []string {
	if len(params) == 0 {
		return nil
	}
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = RedactParam(p)
	}
	return out
}

// FingerprintValue returns a stable digest of a value, used when an audit
// trail needs to correlate repeated parameters without storing them.
func FingerprintValue(value any) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%v", value)))
	return fmt.Sprintf("%x", h[:8])
}

// FingerprintParams fingerprints a parameter list for audit output.
func FingerprintParams(params []any) []string {
	if len(params) == 0 {
		return nil
	}
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = FingerprintValue(p)
	}
	return out
}
