// Package arabic holds the Arabic-Indic digit and decimal-separator
// translations used by the lexer and the number formatter.
package arabic

import (
	"math"
	"strconv"
	"strings"
)

// DecimalSeparator is the Arabic decimal separator (U+066B).
const DecimalSeparator = '٫'

// Infinity is the rendering of an infinite number in the Arabic locale.
const Infinity = "لانهاية"

// IsDigit reports whether r is an Arabic-Indic digit (U+0660..U+0669).
func IsDigit(r rune) bool {
	return r >= '٠' && r <= '٩'
}

// IsAlphabetic reports whether r belongs to the Arabic alphabet blocks the
// dialect accepts in identifiers (U+0621..U+063A and U+0641..U+064A).
func IsAlphabetic(r rune) bool {
	return (r >= 'ء' && r <= 'غ') || (r >= 'ف' && r <= 'ي')
}

// DigitToLatin translates one Arabic-Indic digit or the Arabic decimal
// separator to its ASCII counterpart.
func DigitToLatin(r rune) (rune, bool) {
	if IsDigit(r) {
		return r - '٠' + '0', true
	}
	if r == DecimalSeparator {
		return '.', true
	}
	return 0, false
}

// DigitToArabic translates one ASCII digit or '.' to Arabic-Indic form.
func DigitToArabic(r rune) (rune, bool) {
	if r >= '0' && r <= '9' {
		return r - '0' + '٠', true
	}
	if r == '.' {
		return DecimalSeparator, true
	}
	return 0, false
}

// IsNumber reports whether s is a well-formed Arabic decimal: Arabic-Indic
// digits with at most one interior decimal separator.
func IsNumber(s string) bool {
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, string(DecimalSeparator)) || strings.HasSuffix(s, string(DecimalSeparator)) {
		return false
	}
	sepSeen := false
	for _, r := range s {
		switch {
		case IsDigit(r):
		case r == DecimalSeparator:
			if sepSeen {
				return false
			}
			sepSeen = true
		default:
			return false
		}
	}
	return true
}

// ToLatinNumber rewrites an Arabic decimal into ASCII digits with a '.'
// separator. Returns false when s is not a well-formed Arabic decimal.
func ToLatinNumber(s string) (string, bool) {
	if !IsNumber(s) {
		return "", false
	}
	var b strings.Builder
	for _, r := range s {
		c, _ := DigitToLatin(r)
		b.WriteRune(c)
	}
	return b.String(), true
}

// FormatNumber renders f with Arabic-Indic digits and the Arabic decimal
// separator.
func FormatNumber(f float64) string {
	if math.IsInf(f, 1) {
		return Infinity
	}
	if math.IsInf(f, -1) {
		return "-" + Infinity
	}
	if math.IsNaN(f) {
		return "ليس_رقم"
	}
	latin := strconv.FormatFloat(f, 'f', -1, 64)
	var b strings.Builder
	for _, r := range latin {
		if c, ok := DigitToArabic(r); ok {
			b.WriteRune(c)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
