package shortcode

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

// Length of generated short codes. 64^7 possible codes keeps the
// collision probability negligible, but the database unique constraint
// remains the authoritative check.
const Length = 7

// alphabet is the URL-safe character set used for generated codes.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

// customCodePattern validates caller-supplied custom codes.
var customCodePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,10}$`)

// Generate produces a random URL-safe short code of Length characters.
// It gives no exclusivity guarantee; callers must verify uniqueness
// when persisting.
func Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	// len(alphabet) is 64, so masking the low 6 bits indexes the
	// alphabet without modulo bias.
	for i, b := range buf {
		buf[i] = alphabet[b&0x3f]
	}
	return string(buf), nil
}

// ValidCustomCode reports whether a caller-supplied code matches the
// allowed pattern (3-10 characters: letters, digits, underscore, hyphen).
func ValidCustomCode(code string) bool {
	return customCodePattern.MatchString(code)
}
