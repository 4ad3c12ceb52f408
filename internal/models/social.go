package models

import "time"

type FollowStatus string

const (
	FollowStatusPending                FollowStatus = "pending"
	FollowStatusAccepted               FollowStatus = "accepted"
	FollowStatusRandomMatchOpportunity FollowStatus = "random_match_opportunity"
)

// Follow is a follow request between two users. Records created alongside a
// random match start as FollowStatusRandomMatchOpportunity.
type Follow struct {
	ID              string       `json:"id"`
	FollowerID      string       `json:"followerId"`
	FollowingID     string       `json:"followingId"`
	Status          FollowStatus `json:"status"`
	FromRandomMatch bool         `json:"fromRandomMatch"`
	CreatedAt       time.Time    `json:"createdAt"`
	AcceptedAt      *time.Time   `json:"acceptedAt,omitempty"`
}

// Notification types emitted by the social graph and the badge system.
const (
	NotificationFollowRequest  = "follow_request"
	NotificationFollowAccepted = "follow_accepted"
	NotificationBadgeEarned    = "badge_earned"
	NotificationLike           = "like"
	NotificationComment        = "comment"
	NotificationNewPost        = "new_post"
)

type Notification struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data"`
	Read      bool           `json:"read"`
	ReadAt    *time.Time     `json:"readAt,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
