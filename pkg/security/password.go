package security

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// IsHashed reports whether stored looks like a bcrypt hash rather than a legacy plaintext password
func IsHashed(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
}

// CheckPassword compares a login attempt against the stored value.
// Records written before hashing was introduced hold plaintext; those are
// compared in constant time and reported through legacy so callers can rehash.
func CheckPassword(stored, attempt string) (ok bool, legacy bool) {
	if stored == "" {
		return false, false
	}
	if IsHashed(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(attempt)) == nil, false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(attempt)) == 1, true
}
