package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"introvert/backend/internal/apperr"
	"introvert/backend/internal/config"
	"introvert/backend/internal/models"
)

// CreateRandomRoom opens a two-member room for a matched pair. Callers make
// sure userA and userB differ.
func (m *Memory) CreateRandomRoom(userA, userB string) string {
	room := &models.Room{
		ID:        uuid.New().String(),
		Kind:      models.RoomKindRandom,
		Members:   []string{userA, userB},
		IsActive:  true,
		CreatedAt: time.Now(),
	}

	m.roomsMu.Lock()
	m.rooms[room.ID] = room
	m.roomsMu.Unlock()

	return room.ID
}

// CreateCustomRoom opens a hosted room. A non-positive capacity falls back to
// config.DefaultMaxParticipants.
func (m *Memory) CreateCustomRoom(hostID, name string, isPrivate bool, maxParticipants int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("room name is required: %w", apperr.ErrInvalidArgument)
	}
	if maxParticipants <= 0 {
		maxParticipants = config.DefaultMaxParticipants
	}

	room := &models.Room{
		ID:              uuid.New().String(),
		Kind:            models.RoomKindCustom,
		Name:            name,
		HostID:          hostID,
		Members:         []string{hostID},
		IsPrivate:       isPrivate,
		MaxParticipants: maxParticipants,
		IsActive:        true,
		CreatedAt:       time.Now(),
	}

	m.roomsMu.Lock()
	m.rooms[room.ID] = room
	m.roomsMu.Unlock()

	return room.ID, nil
}

// JoinRoom adds userID to the member list. Joining twice is a no-op. Random
// rooms are closed to anyone but the matched pair.
func (m *Memory) JoinRoom(roomID, userID string) error {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return fmt.Errorf("room %s: %w", roomID, apperr.ErrNotFound)
	}
	if room.HasMember(userID) {
		return nil
	}
	if room.Kind == models.RoomKindRandom || len(room.Members) >= room.MaxParticipants {
		return fmt.Errorf("room %s: %w", roomID, apperr.ErrFull)
	}
	room.Members = append(room.Members, userID)
	return nil
}

func (m *Memory) AppendMessage(roomID, messageID string) error {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return fmt.Errorf("room %s: %w", roomID, apperr.ErrNotFound)
	}
	room.MessageIDs = append(room.MessageIDs, messageID)
	return nil
}

func (m *Memory) MembersOf(roomID string) ([]string, error) {
	m.roomsMu.RLock()
	defer m.roomsMu.RUnlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, apperr.ErrNotFound)
	}
	return append([]string(nil), room.Members...), nil
}

func (m *Memory) GetRoom(roomID string) (models.Room, error) {
	m.roomsMu.RLock()
	defer m.roomsMu.RUnlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return models.Room{}, fmt.Errorf("room %s: %w", roomID, apperr.ErrNotFound)
	}
	return room.Clone(), nil
}

// SaveMessage stores a message by id. Messages are immutable, so a second
// save with the same id is ignored.
func (m *Memory) SaveMessage(msg models.Message) {
	m.roomsMu.Lock()
	defer m.roomsMu.Unlock()

	if _, ok := m.messages[msg.ID]; ok {
		return
	}
	m.messages[msg.ID] = msg
}

func (m *Memory) GetMessage(id string) (models.Message, error) {
	m.roomsMu.RLock()
	defer m.roomsMu.RUnlock()

	msg, ok := m.messages[id]
	if !ok {
		return models.Message{}, fmt.Errorf("message %s: %w", id, apperr.ErrNotFound)
	}
	return msg, nil
}

// RoomMessages returns the room history in send order.
func (m *Memory) RoomMessages(roomID string) ([]models.Message, error) {
	m.roomsMu.RLock()
	defer m.roomsMu.RUnlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, apperr.ErrNotFound)
	}
	history := make([]models.Message, 0, len(room.MessageIDs))
	for _, id := range room.MessageIDs {
		if msg, ok := m.messages[id]; ok {
			history = append(history, msg)
		}
	}
	return history, nil
}
