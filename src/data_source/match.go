package datasource

import (
	"fmt"
	"strings"
	"unicode"

	"price-scout/src/models"
)

// -----------------------------------------------------------------------------

// NormalizeMPN upper-cases s and keeps only letters and digits, so
// "ab-12/3 x" and "AB123X" compare equal.
func NormalizeMPN(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// -----------------------------------------------------------------------------

// MatchMPN applies rule to a requested and a matched part number. An empty
// matched value never matches.
func MatchMPN(rule models.MatchRule, requested, matched string) bool {
	requested = strings.TrimSpace(requested)
	matched = strings.TrimSpace(matched)
	if requested == "" || matched == "" {
		return false
	}

	switch rule {
	case models.MatchExact:
		return requested == matched
	case models.MatchCaseInsensitive:
		return strings.EqualFold(requested, matched)
	default:
		return NormalizeMPN(requested) == NormalizeMPN(matched)
	}
}

// -----------------------------------------------------------------------------

// MismatchMessage names the rule so rejected listings can be audited.
func MismatchMessage(rule models.MatchRule, requested, matched string) string {
	if rule == "" {
		rule = models.MatchNormalized
	}
	return fmt.Sprintf("matched %q does not match %q (rule=%s)", matched, requested, rule)
}
