package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 16
	keySize    = 32
	iterations = 100000
)

// GenerateSalt generates a random salt
func GenerateSalt() (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(salt), nil
}

// HashPassword hashes a password with a salt using PBKDF2
func HashPassword(password, salt string) string {
	saltBytes, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		// If salt decode fails, return empty string (this should never happen with valid salts)
		return ""
	}
	hash := pbkdf2.Key([]byte(password), saltBytes, iterations, keySize, sha256.New)
	return base64.StdEncoding.EncodeToString(hash)
}

// VerifyPassword verifies a password against a hash using constant-time comparison
func VerifyPassword(password, salt, hash string) bool {
	computedHash := HashPassword(password, salt)
	// Use constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(computedHash), []byte(hash)) == 1
}

// EncodeCredential builds the salt:hash string stored in the users table
func EncodeCredential(password string) (string, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s", salt, HashPassword(password, salt)), nil
}

// VerifyCredential checks a password against a stored salt:hash string
func VerifyCredential(password, stored string) bool {
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		return false
	}
	return VerifyPassword(password, parts[0], parts[1])
}
