package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for local passwords.
const PasswordCost = 10

// HashPassword hashes a plaintext password with a fresh salt, so two calls on
// the same input produce different hashes.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", fmt.Errorf("%w: password is empty", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: password is too long", ErrInvalidInput)
		}
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with a stored hash. A wrong
// password yields (false, nil); a hash that bcrypt cannot parse yields
// ErrCorruptHash.
func VerifyPassword(hash, password string) (bool, error) {
	if err := CheckHash(hash); err != nil {
		return false, err
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrCorruptHash, err)
	}
}

// CheckHash validates that hash is a well-formed bcrypt hash.
func CheckHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("%w: empty hash", ErrCorruptHash)
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptHash, err)
	}
	return nil
}
