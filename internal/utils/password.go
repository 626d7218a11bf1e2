package utils

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2-HMAC-SHA-512 parameters.  The salt doubles as the hash key and is
// generated fresh per user at registration; digest and salt are stored in
// separate columns so verification can recompute the digest byte-for-byte.
const (
	saltLen    = 64
	digestLen  = 64
	iterations = 120_000
)

// NewSalt returns a fresh cryptographically random salt for one user.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// HashPassword derives the keyed digest of a plaintext password with the
// given salt.
func HashPassword(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, iterations, digestLen, sha512.New)
}

// VerifyPassword recomputes the digest with the stored salt and compares it
// to the stored digest in constant time.
func VerifyPassword(password string, salt, digest []byte) bool {
	candidate := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(candidate, digest) == 1
}
