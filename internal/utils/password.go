package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned by HashPassword for inputs bcrypt would
// otherwise reject.
var ErrPasswordTooLong = errors.New("password longer than 72 bytes")

// dummyHash is compared against when no actor matched, so a failed login
// costs the same whether or not the email exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("marketplace-dummy"), bcrypt.MinCost)

// HashPassword returns a bcrypt hash of plain.  cost is clamped to the
// range bcrypt supports.
func HashPassword(plain string, cost int) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	cost = min(max(cost, bcrypt.MinCost), bcrypt.MaxCost)
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.  An empty
// hash is checked against a dummy so the call still takes bcrypt time.
func VerifyPassword(hash, plain string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
