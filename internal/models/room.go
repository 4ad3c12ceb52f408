package models

import "time"

type RoomKind string

const (
	RoomKindRandom RoomKind = "random"
	RoomKindCustom RoomKind = "custom"
)

// Room is a broadcast group with an ordered member list (join order) and the
// ordered ids of the messages sent to it. Rooms are never deleted.
type Room struct {
	ID              string    `json:"id"`
	Kind            RoomKind  `json:"type"`
	Name            string    `json:"name,omitempty"`
	HostID          string    `json:"hostId,omitempty"`
	Members         []string  `json:"participants"`
	MessageIDs      []string  `json:"messages"`
	IsPrivate       bool      `json:"isPrivate"`
	MaxParticipants int       `json:"maxParticipants,omitempty"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
}

// HasMember reports whether userID already joined the room.
func (r *Room) HasMember(userID string) bool {
	for _, id := range r.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with r.
func (r Room) Clone() Room {
	r.Members = append([]string(nil), r.Members...)
	r.MessageIDs = append([]string(nil), r.MessageIDs...)
	return r
}

// Message is immutable once created.
type Message struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"roomId"`
	SenderID       string    `json:"senderId"`
	SenderUsername string    `json:"senderUsername,omitempty"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}
