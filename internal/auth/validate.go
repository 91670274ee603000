package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// sanitizeName trims and limits name to 255 bytes, removing control characters.
func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	if len(name) > 255 {
		name = name[:255]
		for !utf8.ValidString(name) {
			name = name[:len(name)-1]
		}
	}
	return name
}

// isValidEmail accepts local@domain with both parts present and no
// whitespace. Deliverability is not checked; single-label domains such as
// localhost pass.
func isValidEmail(email string) bool {
	if len(email) > 254 || strings.IndexFunc(email, unicode.IsSpace) >= 0 {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return at > 0 && at < len(email)-1
}
