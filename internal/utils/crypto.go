package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateToken generates a cryptographically secure random token of
// size bytes, hex-encoded.
func GenerateToken(size int) string {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate random token: %v", err))
	}
	return hex.EncodeToString(b)
}

// GenerateSalt generates size cryptographically secure random bytes.
func GenerateSalt(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("failed to generate salt: %v", err))
	}
	return b
}
