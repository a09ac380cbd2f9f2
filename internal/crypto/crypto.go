// Package crypto centralizes the hashing and comparison primitives used
// across the backend: password hashing, content checksums, and opaque
// token hashing. Consolidating these avoids the ad hoc sha1/bcrypt calls
// that used to be scattered across the auth and asset services.
package crypto

import (
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // content-addressing checksum, not a security primitive
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = bcrypt.DefaultCost

// SHA1 returns the raw 20-byte SHA-1 digest of data, used as the
// content-addressing checksum for uploaded asset bytes.
func SHA1(data []byte) []byte {
	sum := sha1.Sum(data) //nolint:gosec
	return sum[:]
}

// SHA1Hex returns the hex-encoded SHA-1 digest of data.
func SHA1Hex(data []byte) string {
	return hex.EncodeToString(SHA1(data))
}

// SHA256Hex returns the hex-encoded SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256HexString is a convenience wrapper for hashing a string.
func SHA256HexString(s string) string {
	return SHA256Hex([]byte(s))
}

// SHA256Base64 returns the standard base64 encoding of the SHA-256
// digest of data.
func SHA256Base64(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// BcryptHash hashes a plaintext password for storage.
func BcryptHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("crypto: hashing password: %w", err)
	}
	return string(hash), nil
}

// BcryptCompare reports whether password matches the stored bcrypt hash.
func BcryptCompare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("crypto: reading random bytes: %w", err)
	}
	return buf, nil
}

// RandomToken returns a URL-safe base64 random token of n raw bytes,
// used for API keys and shared-link keys.
func RandomToken(n int) (string, error) {
	buf, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ConstantTimeEqual compares two strings in constant time, used to
// compare presented tokens against stored hashes without a timing
// side channel.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
