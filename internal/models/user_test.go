package models_test

import (
	"testing"

	"introvert/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestUserEnsureID_GeneratesUUID verifies that EnsureID generates a valid UUID.
func TestUserEnsureID_GeneratesUUID(t *testing.T) {
	// Arrange
	user := &models.User{Username: "alice", Age: 25, Gender: models.GenderFemale}
	assert.Empty(t, user.ID, "User ID should be empty before EnsureID")

	// Act
	user.EnsureID()

	// Assert
	parsed, err := uuid.Parse(user.ID)
	assert.NoError(t, err, "User ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestUserEnsureID_PreservesExistingID verifies that an existing ID is kept.
func TestUserEnsureID_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	user := &models.User{ID: existingID, Username: "bob"}

	user.EnsureID()

	assert.Equal(t, existingID, user.ID)
}

func TestGenderValidation(t *testing.T) {
	tests := []struct {
		gender     models.Gender
		preference bool
		identity   bool
	}{
		{models.GenderMale, true, true},
		{models.GenderFemale, true, true},
		{models.GenderBoth, true, false},
		{models.Gender("other"), false, false},
		{models.Gender(""), false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.gender), func(t *testing.T) {
			assert.Equal(t, tt.preference, tt.gender.ValidPreference())
			assert.Equal(t, tt.identity, tt.gender.ValidIdentity())
		})
	}
}

func TestUserPublic_HidesPrivateFields(t *testing.T) {
	user := models.User{
		ID:           "u1",
		Username:     "carol",
		Email:        "carol@example.com",
		PasswordHash: "hash",
		Online:       true,
		Preferences:  models.DefaultPreferences(),
		Badges:       []string{"bronze_star"},
	}

	public := user.Public()

	assert.Equal(t, "u1", public.ID)
	assert.True(t, public.Online)
	assert.Equal(t, []string{"bronze_star"}, public.Badges)

	public.Badges[0] = "changed"
	assert.Equal(t, "bronze_star", user.Badges[0], "Public must not share the badge slice")
}

func TestUserPublic_RespectsShowOnlineStatus(t *testing.T) {
	user := models.User{ID: "u1", Online: true, Preferences: models.Preferences{ShowOnlineStatus: false}}

	assert.False(t, user.Public().Online)
}

func TestUserHasBadge(t *testing.T) {
	user := models.User{Badges: []string{"bronze_star"}}

	assert.True(t, user.HasBadge("bronze_star"))
	assert.False(t, user.HasBadge("gold_star"))
}
