package chathub

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"introvert/backend/internal/apperr"
	"introvert/backend/internal/models"
	"introvert/backend/internal/storage"
)

// Social handles follow requests between users. It is a producer of
// notifications and the trigger for random match badges.
type Social struct {
	users    storage.UserStore
	follows  storage.FollowStore
	notifier *Notifier
	logger   *slog.Logger
}

func NewSocial(users storage.UserStore, follows storage.FollowStore, notifier *Notifier, logger *slog.Logger) *Social {
	return &Social{users: users, follows: follows, notifier: notifier, logger: logger}
}

// RequestFollow opens a pending follow from followerID to followingID and
// notifies the target.
func (s *Social) RequestFollow(followerID, followingID string) (models.Follow, error) {
	if followerID == followingID {
		return models.Follow{}, fmt.Errorf("cannot follow yourself: %w", apperr.ErrInvalidArgument)
	}
	follower, err := s.users.GetUserByID(followerID)
	if err != nil {
		return models.Follow{}, err
	}
	if _, err := s.users.GetUserByID(followingID); err != nil {
		return models.Follow{}, err
	}

	follow, err := s.follows.CreateFollow(models.Follow{
		FollowerID:  followerID,
		FollowingID: followingID,
		Status:      models.FollowStatusPending,
	})
	if err != nil {
		return models.Follow{}, err
	}

	if _, err := s.notifier.Notify(followingID, models.NotificationFollowRequest, map[string]any{
		"followId":         follow.ID,
		"followerId":       follower.ID,
		"followerUsername": follower.Username,
	}); err != nil {
		s.logger.Warn("follow request notification failed", "user_id", followingID, "error", err)
	}
	return follow, nil
}

// AcceptFollow accepts the follow followerID opened towards userID, either a
// plain request or a random match opportunity. Accepting a random match
// follow counts towards the follower's badges.
func (s *Social) AcceptFollow(userID, followerID string) (models.Follow, error) {
	follow, err := s.follows.AcceptFollow(followerID, userID, time.Now())
	if err != nil {
		return models.Follow{}, err
	}

	follower, err := s.users.RecordFollow(followerID, userID, follow.FromRandomMatch)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("accepted follow for unknown user", "user_id", userID, "follower_id", followerID)
		}
		return follow, err
	}

	accepter, err := s.users.GetUserByID(userID)
	if err == nil {
		if _, err := s.notifier.Notify(followerID, models.NotificationFollowAccepted, map[string]any{
			"followId":        follow.ID,
			"userId":          accepter.ID,
			"username":        accepter.Username,
			"fromRandomMatch": follow.FromRandomMatch,
		}); err != nil {
			s.logger.Warn("follow accepted notification failed", "user_id", followerID, "error", err)
		}
	}

	if follow.FromRandomMatch {
		s.notifier.AwardBadges(follower)
	}
	return follow, nil
}
