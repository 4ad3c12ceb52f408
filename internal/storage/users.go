package storage

import (
	"fmt"
	"strings"
	"time"

	"introvert/backend/internal/apperr"
	"introvert/backend/internal/models"
)

// CreateUser stores a new user. Usernames and emails are unique
// (emails case-insensitively).
func (m *Memory) CreateUser(user *models.User) error {
	user.EnsureID()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.Username = strings.TrimSpace(user.Username)

	m.usersMu.Lock()
	defer m.usersMu.Unlock()

	if _, ok := m.users[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, apperr.ErrConflict)
	}
	for _, existing := range m.users {
		if existing.Username == user.Username || (user.Email != "" && existing.Email == user.Email) {
			return fmt.Errorf("user already exists: %w", apperr.ErrConflict)
		}
	}
	stored := user.Clone()
	m.users[user.ID] = &stored
	return nil
}

func (m *Memory) GetUserByID(id string) (models.User, error) {
	m.usersMu.RLock()
	defer m.usersMu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return u.Clone(), nil
}

// GetUserByLogin finds a user by username or email.
func (m *Memory) GetUserByLogin(login string) (models.User, error) {
	login = strings.TrimSpace(login)
	email := strings.ToLower(login)

	m.usersMu.RLock()
	defer m.usersMu.RUnlock()

	for _, u := range m.users {
		if u.Username == login || u.Email == email {
			return u.Clone(), nil
		}
	}
	return models.User{}, fmt.Errorf("user %s: %w", login, apperr.ErrNotFound)
}

// SetPresence flips the online flag. LastSeen is stamped on every transition.
func (m *Memory) SetPresence(id string, online bool, at time.Time) error {
	m.usersMu.Lock()
	defer m.usersMu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	u.Online = online
	u.LastSeen = at
	return nil
}

func (m *Memory) UpdatePreferences(id string, prefs models.Preferences) (models.User, error) {
	if !prefs.MatchGender.ValidPreference() {
		return models.User{}, fmt.Errorf("match gender %q: %w", prefs.MatchGender, apperr.ErrInvalidArgument)
	}

	m.usersMu.Lock()
	defer m.usersMu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	u.Preferences = prefs
	return u.Clone(), nil
}

// RecordFollow updates the counters of both sides of an accepted follow and
// returns the follower.
func (m *Memory) RecordFollow(followerID, followingID string, fromRandomMatch bool) (models.User, error) {
	m.usersMu.Lock()
	defer m.usersMu.Unlock()

	follower, ok := m.users[followerID]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", followerID, apperr.ErrNotFound)
	}
	following, ok := m.users[followingID]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", followingID, apperr.ErrNotFound)
	}
	follower.Stats.FollowingCount++
	following.Stats.FollowersCount++
	if fromRandomMatch {
		follower.Stats.RandomMatchFollows++
	}
	return follower.Clone(), nil
}

// AwardBadge adds the badge once. It reports false when the user already had it.
func (m *Memory) AwardBadge(id, badge string) (bool, error) {
	m.usersMu.Lock()
	defer m.usersMu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return false, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	if u.HasBadge(badge) {
		return false, nil
	}
	u.Badges = append(u.Badges, badge)
	return true, nil
}

// Snapshot returns a point-in-time copy of all users.
func (m *Memory) Snapshot() []models.User {
	m.usersMu.RLock()
	defer m.usersMu.RUnlock()

	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u.Clone())
	}
	return out
}

func (m *Memory) CountUsers() int {
	m.usersMu.RLock()
	defer m.usersMu.RUnlock()
	return len(m.users)
}
