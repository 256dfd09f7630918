package utils

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// VerifyPassword compares a bcrypt hash with a plain password. Hashes
// written by PHP's password_hash ($2y$) verify as well; anything that is
// not a bcrypt hash never matches.
func VerifyPassword(hash, plain string) bool {
	if plain == "" || !strings.HasPrefix(hash, "$2") {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
