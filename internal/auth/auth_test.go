package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"introvert/backend/internal/apperr"
	"introvert/backend/internal/auth"
)

// TestIssueAndVerify round-trips a token through the manager.
func TestIssueAndVerify(t *testing.T) {
	// Arrange
	manager := auth.NewTokenManager("test-secret", time.Hour)

	// Act
	token, err := manager.Issue("user-1", "alice")
	require.NoError(t, err)
	claims, err := manager.Verify(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	manager := auth.NewTokenManager("test-secret", time.Hour)
	other := auth.NewTokenManager("other-secret", time.Hour)
	expired := auth.NewTokenManager("test-secret", -time.Minute)

	foreign, _ := other.Issue("user-1", "alice")
	stale, _ := expired.Issue("user-1", "alice")
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": "user-1", "iss": "introvert"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong secret", token: foreign},
		{name: "expired", token: stale},
		{name: "alg none", token: unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.Verify(tt.token)
			assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		})
	}

	_, err := manager.Verify(stale)
	assert.True(t, auth.IsExpired(err))
}

// TestPasswordHashing covers hash and compare.
func TestPasswordHashing(t *testing.T) {
	// Arrange
	auth.HashCost = 4

	// Act
	hash, err := auth.HashPassword("s3cret!")

	// Assert
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.NoError(t, auth.CheckPassword(hash, "s3cret!"))
	assert.ErrorIs(t, auth.CheckPassword(hash, "wrong"), apperr.ErrUnauthorized)
}
