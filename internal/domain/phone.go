package domain

import "strings"

// NormalizePhone canonicalizes a phone number to bare digits with a leading
// country code, so "(512) 555-1234" and "5125551234" compare equal. Ten-digit
// national numbers get a "1" prepended. Input that does not look like a phone
// number at all is returned stripped of formatting only.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 10 {
		return "1" + digits
	}
	return digits
}

// ValidPhone reports whether a candidate phone number has a plausible digit
// count after normalization.
func ValidPhone(raw string) bool {
	n := len(NormalizePhone(raw))
	return n >= 10 && n <= 15
}

// SamePhone compares two phone numbers ignoring formatting.
func SamePhone(a, b string) bool {
	return NormalizePhone(a) == NormalizePhone(b)
}
