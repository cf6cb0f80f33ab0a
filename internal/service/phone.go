package service

import "strings"

// normalizePhone strips a raw phone number down to its digits, the canonical
// form tutors and students are stored and matched under.
func normalizePhone(raw string) string {
	var b strings.Builder
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// smsPhone renders a stored ten-digit number in the +1 form the SMS gateway
// expects; anything else passes through untouched.
func smsPhone(raw string) string {
	digits := normalizePhone(raw)
	if len(digits) == 10 {
		return "+1" + digits
	}
	if strings.HasPrefix(raw, "+") {
		return raw
	}
	return digits
}
