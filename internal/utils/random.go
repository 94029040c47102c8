package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

// RandomToken returns n bytes of cryptographically secure random data
// encoded as unpadded URL-safe base64, suitable for cookie values.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// RandomHex is like RandomToken with hex encoding.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
