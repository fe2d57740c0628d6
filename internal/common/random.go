package common

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MakeRandTokenString generates a URL-safe bearer token from size random
// bytes, encoded with unpadded base64url. The result is longer than size
// (4 characters per 3 bytes).
func MakeRandTokenString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// MakeRandAlphanumericString generates a random string of exactly length
// characters drawn from [a-zA-Z0-9], using crypto/rand.
func MakeRandAlphanumericString(length int) (string, error) {
	b := make([]byte, length)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphanumeric[n.Int64()]
	}
	return string(b), nil
}

// TokenPreview returns a short, log-safe prefix of a bearer token. Tokens
// are secrets and must never be logged in full.
func TokenPreview(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}
