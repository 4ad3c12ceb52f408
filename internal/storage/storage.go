// Package storage holds the process-lifetime state of the platform: users,
// rooms and their messages, follow records and per-user notifications.
// Everything is kept in memory on purpose; each logical map sits behind its
// own lock and every getter returns copies.
package storage

import (
	"sync"
	"time"

	"introvert/backend/internal/models"
)

type UserStore interface {
	CreateUser(user *models.User) error
	GetUserByID(id string) (models.User, error)
	GetUserByLogin(login string) (models.User, error)
	SetPresence(id string, online bool, at time.Time) error
	UpdatePreferences(id string, prefs models.Preferences) (models.User, error)
	RecordFollow(followerID, followingID string, fromRandomMatch bool) (models.User, error)
	AwardBadge(id, badge string) (bool, error)
	Snapshot() []models.User
	CountUsers() int
}

type RoomStore interface {
	CreateRandomRoom(userA, userB string) string
	CreateCustomRoom(hostID, name string, isPrivate bool, maxParticipants int) (string, error)
	JoinRoom(roomID, userID string) error
	AppendMessage(roomID, messageID string) error
	MembersOf(roomID string) ([]string, error)
	GetRoom(roomID string) (models.Room, error)
	SaveMessage(msg models.Message)
	GetMessage(id string) (models.Message, error)
	RoomMessages(roomID string) ([]models.Message, error)
}

type FollowStore interface {
	CreateFollow(follow models.Follow) (models.Follow, error)
	FindFollow(followerID, followingID string) (models.Follow, error)
	AcceptFollow(followerID, followingID string, at time.Time) (models.Follow, error)
}

type NotificationStore interface {
	PrependNotification(userID string, n models.Notification, limit int)
	ListNotifications(userID string, offset, limit int) ([]models.Notification, int)
	MarkNotificationRead(userID, id string, at time.Time) error
	MarkAllNotificationsRead(userID string, at time.Time) int
	DeleteNotification(userID, id string) error
}

// Storage is everything the hub and the API need from the state layer.
type Storage interface {
	UserStore
	RoomStore
	FollowStore
	NotificationStore
}

// Memory implements Storage with one RWMutex per map. No method calls back
// into another store while holding its lock.
type Memory struct {
	usersMu sync.RWMutex
	users   map[string]*models.User

	roomsMu  sync.RWMutex
	rooms    map[string]*models.Room
	messages map[string]models.Message

	followsMu sync.RWMutex
	follows   map[string]*models.Follow

	notificationsMu sync.RWMutex
	notifications   map[string][]models.Notification
}

var _ Storage = (*Memory)(nil)

// NewMemoryStorage creates empty stores.
func NewMemoryStorage() *Memory {
	return &Memory{
		users:         make(map[string]*models.User),
		rooms:         make(map[string]*models.Room),
		messages:      make(map[string]models.Message),
		follows:       make(map[string]*models.Follow),
		notifications: make(map[string][]models.Notification),
	}
}
