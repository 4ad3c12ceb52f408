package models

import (
	"time"

	"github.com/google/uuid"
)

// Gender is both a user's own gender and a matchmaking preference; only the
// preference side may be GenderBoth.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderBoth   Gender = "both"
)

// ValidPreference reports whether g can be used as a match preference.
func (g Gender) ValidPreference() bool {
	return g == GenderMale || g == GenderFemale || g == GenderBoth
}

// ValidIdentity reports whether g can be a user's own gender.
func (g Gender) ValidIdentity() bool {
	return g == GenderMale || g == GenderFemale
}

// Preferences holds the matchmaking and visibility settings of a user.
type Preferences struct {
	AllowRandomMatch bool   `json:"allowRandomMatch"`
	ShowOnlineStatus bool   `json:"showOnlineStatus"`
	MatchGender      Gender `json:"matchGender"`
}

// Stats are the social counters shown on a profile.
type Stats struct {
	FollowersCount     int `json:"followersCount"`
	FollowingCount     int `json:"followingCount"`
	RandomMatchFollows int `json:"randomMatchFollows"`
}

// User is a registered identity. Users live for the whole process lifetime;
// Online and LastSeen are driven by the connection registry.
type User struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Age          int         `json:"age"`
	Gender       Gender      `json:"gender"`
	Bio          string      `json:"bio"`
	Online       bool        `json:"isOnline"`
	LastSeen     time.Time   `json:"lastSeen"`
	CreatedAt    time.Time   `json:"createdAt"`
	Preferences  Preferences `json:"preferences"`
	Stats        Stats       `json:"stats"`
	Badges       []string    `json:"badges"`
}

// DefaultPreferences are applied at registration.
func DefaultPreferences() Preferences {
	return Preferences{
		AllowRandomMatch: true,
		ShowOnlineStatus: true,
		MatchGender:      GenderBoth,
	}
}

// EnsureID generates a new UUID for the user if no ID is set yet.
func (u *User) EnsureID() {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
}

// HasBadge reports whether the badge was already awarded.
func (u *User) HasBadge(badge string) bool {
	for _, b := range u.Badges {
		if b == badge {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with u.
func (u User) Clone() User {
	u.Badges = append([]string(nil), u.Badges...)
	return u
}

// PublicUser is the view of a user that other users may see.
type PublicUser struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Age      int      `json:"age"`
	Gender   Gender   `json:"gender"`
	Bio      string   `json:"bio"`
	Online   bool     `json:"isOnline"`
	Badges   []string `json:"badges"`
	Stats    Stats    `json:"stats"`
}

// Public strips private fields from the user.
func (u User) Public() PublicUser {
	online := u.Online
	if !u.Preferences.ShowOnlineStatus {
		online = false
	}
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Age:      u.Age,
		Gender:   u.Gender,
		Bio:      u.Bio,
		Online:   online,
		Badges:   append([]string{}, u.Badges...),
		Stats:    u.Stats,
	}
}
