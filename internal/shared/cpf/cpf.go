package cpf

import "strings"

// Package-level helpers for the Brazilian CPF, the normalized voter
// identifier used as the vote-deduplication key.

const length = 11

// Normalize strips every non-digit character.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether the normalized identifier passes the 11-digit
// check-digit scheme. Repdigit sequences (000..., 111...) are rejected.
func Valid(normalized string) bool {
	if len(normalized) != length {
		return false
	}
	allEqual := true
	for i := 1; i < length; i++ {
		if normalized[i] != normalized[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}
	if checkDigit(normalized, 9) != int(normalized[9]-'0') {
		return false
	}
	return checkDigit(normalized, 10) == int(normalized[10]-'0')
}

// checkDigit computes the verification digit over the first n digits using
// descending weights starting at n+1.
func checkDigit(digits string, n int) int {
	sum := 0
	for i := 0; i < n; i++ {
		sum += int(digits[i]-'0') * (n + 1 - i)
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}

// Mask renders an identifier for logs and responses: first three and last
// two digits visible, middle masked. Anything other than a full-length
// identifier masks entirely.
func Mask(raw string) string {
	normalized := Normalize(raw)
	if len(normalized) != length {
		return "***"
	}
	return normalized[:3] + ".***.***-" + normalized[9:]
}
