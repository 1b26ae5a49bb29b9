// Package auth provides password hashing and JWT access tokens.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrWrongPassword is returned by VerifyPassword on mismatch.
var ErrWrongPassword = errors.New("wrong password")

// maxPasswordBytes guards against bcrypt's 72-byte input truncation:
// longer inputs would silently collide.
const maxPasswordBytes = 72

// HashPassword returns the bcrypt hash of password at the default cost.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("empty password")
	}
	if len(password) > maxPasswordBytes {
		return "", fmt.Errorf("password exceeds %d bytes", maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares a bcrypt hash with a candidate password.
// Returns ErrWrongPassword on mismatch.
func VerifyPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrWrongPassword
		}
		return fmt.Errorf("verifying password: %w", err)
	}
	return nil
}
