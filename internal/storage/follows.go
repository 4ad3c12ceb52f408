package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"introvert/backend/internal/apperr"
	"introvert/backend/internal/models"
)

// CreateFollow stores a new follow record. At most one record exists per
// ordered (follower, following) pair.
func (m *Memory) CreateFollow(follow models.Follow) (models.Follow, error) {
	if follow.FollowerID == "" || follow.FollowingID == "" {
		return models.Follow{}, fmt.Errorf("follow needs both ends: %w", apperr.ErrInvalidArgument)
	}
	if follow.FollowerID == follow.FollowingID {
		return models.Follow{}, fmt.Errorf("user %s cannot follow itself: %w", follow.FollowerID, apperr.ErrInvalidArgument)
	}
	if follow.ID == "" {
		follow.ID = uuid.New().String()
	}
	if follow.CreatedAt.IsZero() {
		follow.CreatedAt = time.Now()
	}

	m.followsMu.Lock()
	defer m.followsMu.Unlock()

	for _, existing := range m.follows {
		if existing.FollowerID == follow.FollowerID && existing.FollowingID == follow.FollowingID {
			return models.Follow{}, fmt.Errorf("follow %s -> %s: %w", follow.FollowerID, follow.FollowingID, apperr.ErrConflict)
		}
	}
	stored := follow
	m.follows[follow.ID] = &stored
	return follow, nil
}

func (m *Memory) FindFollow(followerID, followingID string) (models.Follow, error) {
	m.followsMu.RLock()
	defer m.followsMu.RUnlock()

	if f := m.findFollowLocked(followerID, followingID); f != nil {
		return *f, nil
	}
	return models.Follow{}, fmt.Errorf("follow %s -> %s: %w", followerID, followingID, apperr.ErrNotFound)
}

// AcceptFollow moves a pending or random match follow to accepted.
func (m *Memory) AcceptFollow(followerID, followingID string, at time.Time) (models.Follow, error) {
	m.followsMu.Lock()
	defer m.followsMu.Unlock()

	f := m.findFollowLocked(followerID, followingID)
	if f == nil || f.Status == models.FollowStatusAccepted {
		return models.Follow{}, fmt.Errorf("no open follow request %s -> %s: %w", followerID, followingID, apperr.ErrNotFound)
	}
	f.Status = models.FollowStatusAccepted
	accepted := at
	f.AcceptedAt = &accepted
	return *f, nil
}

func (m *Memory) findFollowLocked(followerID, followingID string) *models.Follow {
	for _, f := range m.follows {
		if f.FollowerID == followerID && f.FollowingID == followingID {
			return f
		}
	}
	return nil
}
