// Package rut cleans, formats and validates Chilean RUT numbers (body plus a
// modulo-11 check digit).
package rut

import (
	"strconv"
	"strings"
)

// Clean uppercases s and drops everything but digits and K.
func Clean(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= '0' && r <= '9') || r == 'K' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Format renders s as 12.345.678-5. The body is cut to 8 digits.
func Format(s string) string {
	clean := Clean(s)
	if clean == "" {
		return ""
	}
	body, dv := clean[:len(clean)-1], clean[len(clean)-1:]
	if len(body) > 8 {
		body = body[:8]
	}
	var b strings.Builder
	for i, r := range body {
		if i > 0 && (len(body)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String() + "-" + dv
}

// Valid reports whether s has a 7 or 8 digit body and a matching check digit.
func Valid(s string) bool {
	clean := Clean(s)
	if len(clean) < 2 {
		return false
	}
	body, dv := clean[:len(clean)-1], clean[len(clean)-1:]
	if len(body) != 7 && len(body) != 8 {
		return false
	}
	if strings.ContainsRune(body, 'K') {
		return false
	}
	return dv == CheckDigit(body)
}

// CheckDigit computes the modulo-11 verifier for a numeric body.
func CheckDigit(body string) string {
	sum, mult := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * mult
		if mult == 7 {
			mult = 2
		} else {
			mult++
		}
	}
	switch r := 11 - sum%11; r {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return strconv.Itoa(r)
	}
}
