package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString returns size random bytes hex encoded (2*size chars).
// Refresh tokens are minted with it.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray zeroes b in place, e.g. a password once it has been sent.
func WipeByteArray(b []byte) {
	clear(b)
}
