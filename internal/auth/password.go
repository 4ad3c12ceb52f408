package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"introvert/backend/internal/apperr"
)

// HashCost is the bcrypt cost used for new hashes.
var HashCost = 12

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares password with a stored hash. A mismatch is
// apperr.ErrUnauthorized.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", err)
	}
	return nil
}
