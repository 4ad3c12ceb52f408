package storage_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"introvert/backend/internal/apperr"
	"introvert/backend/internal/models"
	"introvert/backend/internal/storage"
)

func TestCreateFollowValidation(t *testing.T) {
	store := storage.NewMemoryStorage()

	_, self := store.CreateFollow(models.Follow{FollowerID: "a", FollowingID: "a"})
	_, empty := store.CreateFollow(models.Follow{FollowerID: "a"})
	created, err := store.CreateFollow(models.Follow{FollowerID: "a", FollowingID: "b", Status: models.FollowStatusPending})
	_, dup := store.CreateFollow(models.Follow{FollowerID: "a", FollowingID: "b", Status: models.FollowStatusPending})

	assert.ErrorIs(t, self, apperr.ErrInvalidArgument)
	assert.ErrorIs(t, empty, apperr.ErrInvalidArgument)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.ErrorIs(t, dup, apperr.ErrConflict)
}

// TestAcceptFollowFromRandomMatch accepts an opportunistic follow exactly once.
func TestAcceptFollowFromRandomMatch(t *testing.T) {
	// Arrange
	store := storage.NewMemoryStorage()
	_, err := store.CreateFollow(models.Follow{
		FollowerID:      "a",
		FollowingID:     "b",
		Status:          models.FollowStatusRandomMatchOpportunity,
		FromRandomMatch: true,
	})
	require.NoError(t, err)
	at := time.Now()

	// Act
	accepted, err := store.AcceptFollow("a", "b", at)
	_, again := store.AcceptFollow("a", "b", at)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, models.FollowStatusAccepted, accepted.Status)
	assert.True(t, accepted.FromRandomMatch)
	require.NotNil(t, accepted.AcceptedAt)
	assert.ErrorIs(t, again, apperr.ErrNotFound)
}
