package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltBytes         = 16
	digestBytes       = 32
	defaultIterations = 100000
)

// GenerateSalt returns a 16-byte salt from a cryptographically secure
// source, hex-encoded.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword derives a deterministic one-way digest of password and salt.
func HashPassword(password, salt string, iterations int) string {
	if iterations <= 0 {
		iterations = defaultIterations
	}
	digest := pbkdf2.Key([]byte(password), []byte(salt), iterations, digestBytes, sha256.New)
	return hex.EncodeToString(digest)
}

// VerifyPassword recomputes the digest and compares in constant time.
func VerifyPassword(password, hash, salt string, iterations int) bool {
	computed := HashPassword(password, salt, iterations)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
