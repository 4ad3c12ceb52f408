package storage

import (
	"fmt"
	"time"

	"introvert/backend/internal/apperr"
	"introvert/backend/internal/models"
)

// PrependNotification puts n in front of the user's list and drops the oldest
// entries beyond limit, read or not.
func (m *Memory) PrependNotification(userID string, n models.Notification, limit int) {
	m.notificationsMu.Lock()
	defer m.notificationsMu.Unlock()

	list := m.notifications[userID]
	next := make([]models.Notification, 0, min(len(list)+1, max(limit, 1)))
	next = append(next, n)
	next = append(next, list...)
	if limit > 0 && len(next) > limit {
		next = next[:limit]
	}
	m.notifications[userID] = next
}

// ListNotifications returns one page (most recent first) and the total size
// of the list.
func (m *Memory) ListNotifications(userID string, offset, limit int) ([]models.Notification, int) {
	m.notificationsMu.RLock()
	defer m.notificationsMu.RUnlock()

	list := m.notifications[userID]
	total := len(list)
	if offset < 0 {
		offset = 0
	}
	if offset >= total || limit <= 0 {
		return []models.Notification{}, total
	}
	end := min(offset+limit, total)
	return append([]models.Notification(nil), list[offset:end]...), total
}

func (m *Memory) MarkNotificationRead(userID, id string, at time.Time) error {
	m.notificationsMu.Lock()
	defer m.notificationsMu.Unlock()

	list := m.notifications[userID]
	for i := range list {
		if list[i].ID == id {
			if !list[i].Read {
				readAt := at
				list[i].Read = true
				list[i].ReadAt = &readAt
			}
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
}

// MarkAllNotificationsRead returns how many entries changed.
func (m *Memory) MarkAllNotificationsRead(userID string, at time.Time) int {
	m.notificationsMu.Lock()
	defer m.notificationsMu.Unlock()

	changed := 0
	list := m.notifications[userID]
	for i := range list {
		if list[i].Read {
			continue
		}
		readAt := at
		list[i].Read = true
		list[i].ReadAt = &readAt
		changed++
	}
	return changed
}

func (m *Memory) DeleteNotification(userID, id string) error {
	m.notificationsMu.Lock()
	defer m.notificationsMu.Unlock()

	list := m.notifications[userID]
	for i := range list {
		if list[i].ID == id {
			m.notifications[userID] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id, apperr.ErrNotFound)
}
