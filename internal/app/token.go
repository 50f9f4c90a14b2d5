package app

import (
	"crypto/rand"
	"encoding/hex"
)

// newHoldToken returns a 32-hex-char opaque handle with 128 bits of entropy.
// Tokens are the only external reference to a hold and are never reused.
func newHoldToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(b)
}
