// Package sharecode generates the share-code/password pair that gates the
// organizer join workflow. Codes avoid the ambiguous glyphs 0/O and 1/I.
package sharecode

import (
	"context"
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

// Charset has exactly 32 characters so a random byte maps to an index
// without modulo bias.
const Charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	CodeLength     = 10
	PasswordLength = 8

	maxAttempts = 50
)

// ExistsFunc reports whether a share code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// GenerateCode produces a share code that is unused at generation time.
// After repeated collisions it falls back to a uuid-derived code and lets the
// store's unique index be the final arbiter.
func GenerateCode(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := randomString(CodeLength)
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:CodeLength], nil
}

// GeneratePassword produces a share password from the same unambiguous
// charset. It is a rotatable secret, not a login credential.
func GeneratePassword() (string, error) {
	return randomString(PasswordLength)
}

// Normalize prepares user-entered share codes for lookup.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = Charset[int(b)%len(Charset)]
	}
	return string(out), nil
}
