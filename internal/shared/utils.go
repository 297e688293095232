// Package shared holds small helpers used by the dev backend and the CLI:
// opaque token generation and wiping of secrets held in memory.
package shared

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString returns size random bytes hex-encoded, so the result
// is 2*size characters long. Used for opaque refresh tokens.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray zeroes b in place. Passwords read from the terminal are
// wiped as soon as the login request has been built.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
