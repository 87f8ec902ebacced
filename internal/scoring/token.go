package scoring

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

// Crockford alphabet: no I, L, O or U, so codes read back unambiguously.
var crockford = base32.NewEncoding("0123456789ABCDEFGHJKMNPQRSTVWXYZ").WithPadding(base32.NoPadding)

// NewGradingToken mints a human-legible code such as "7KQ2-9XWD-M3TB-0F5A"
// carrying 80 random bits.
func NewGradingToken() string {
	id := uuid.New()
	enc := crockford.EncodeToString(id[:10])

	var b strings.Builder
	b.Grow(19)
	for i := 0; i < len(enc); i += 4 {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(enc[i : i+4])
	}
	return b.String()
}

// IsGradingToken reports whether s has the shape produced by NewGradingToken.
func IsGradingToken(s string) bool {
	if len(s) != 19 {
		return false
	}
	for i, r := range s {
		if i%5 == 4 {
			if r != '-' {
				return false
			}
			continue
		}
		if !strings.ContainsRune("0123456789ABCDEFGHJKMNPQRSTVWXYZ", r) {
			return false
		}
	}
	return true
}
