package chathub

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"introvert/backend/internal/config"
	"introvert/backend/internal/models"
	"introvert/backend/internal/observability"
	"introvert/backend/internal/storage"
)

// NotificationPage is one page of a user's notifications, newest first.
type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
	Total         int                   `json:"total"`
	HasMore       bool                  `json:"hasMore"`
}

// Notifier keeps per-user notification lists and pushes new entries to the
// user's private channel. Live delivery is at most once: offline users and
// dropped frames are not retried, the list is the only record.
type Notifier struct {
	users   storage.UserStore
	store   storage.NotificationStore
	emitter Emitter
	limit   int
	logger  *slog.Logger
	now     func() time.Time
}

func NewNotifier(users storage.UserStore, store storage.NotificationStore, emitter Emitter, logger *slog.Logger) *Notifier {
	return &Notifier{
		users:   users,
		store:   store,
		emitter: emitter,
		limit:   config.NotificationLimit,
		logger:  logger,
		now:     time.Now,
	}
}

// Notify records a notification for userID and emits new_notification to
// any live connection of that user.
func (n *Notifier) Notify(userID, kind string, data map[string]any) (models.Notification, error) {
	if _, err := n.users.GetUserByID(userID); err != nil {
		return models.Notification{}, err
	}

	notification := models.Notification{
		ID:        uuid.New().String(),
		Type:      kind,
		Data:      data,
		CreatedAt: n.now(),
	}
	n.store.PrependNotification(userID, notification, n.limit)

	delivered := n.emitter.EmitToUser(userID, models.Envelope{Event: models.EventNewNotification, Data: notification})
	observability.IncNotification(kind, delivered > 0)
	n.logger.Debug("notification created", "user_id", userID, "type", kind, "delivered", delivered)

	event := observability.NewEvent("notification", kind, map[string]string{"userId": userID, "notificationId": notification.ID})
	if err := observability.PublishEvent(context.Background(), observability.RoutingNotifications, event, nil); err != nil {
		n.logger.Debug("notification event not published", "user_id", userID, "error", err)
	}
	return notification, nil
}

// List returns one page. Non-positive page and limit fall back to the
// defaults; limit is capped at the list bound.
func (n *Notifier) List(userID string, page, limit int) (NotificationPage, error) {
	if _, err := n.users.GetUserByID(userID); err != nil {
		return NotificationPage{}, err
	}
	if page < 1 {
		page = config.DefaultNotificationPage
	}
	if limit < 1 {
		limit = config.DefaultNotificationLimit
	}
	limit = min(limit, n.limit)

	offset := (page - 1) * limit
	items, total := n.store.ListNotifications(userID, offset, limit)
	return NotificationPage{
		Notifications: items,
		Page:          page,
		Limit:         limit,
		Total:         total,
		HasMore:       offset+len(items) < total,
	}, nil
}

func (n *Notifier) MarkRead(userID, notificationID string) error {
	return n.store.MarkNotificationRead(userID, notificationID, n.now())
}

func (n *Notifier) MarkAllRead(userID string) int {
	return n.store.MarkAllNotificationsRead(userID, n.now())
}

func (n *Notifier) Delete(userID, notificationID string) error {
	return n.store.DeleteNotification(userID, notificationID)
}

// AwardBadges grants the highest badge the user reached but does not hold
// yet, at most one per call, and notifies them. It returns the badge or "".
func (n *Notifier) AwardBadges(user models.User) string {
	for _, threshold := range config.BadgeThresholds {
		if user.Stats.RandomMatchFollows < threshold.Follows || user.HasBadge(threshold.Badge) {
			continue
		}
		awarded, err := n.users.AwardBadge(user.ID, threshold.Badge)
		if err != nil {
			n.logger.Warn("badge not awarded", "user_id", user.ID, "badge", threshold.Badge, "error", err)
			return ""
		}
		if !awarded {
			continue
		}

		if _, err := n.Notify(user.ID, models.NotificationBadgeEarned, map[string]any{
			"badge":              threshold.Badge,
			"randomMatchFollows": user.Stats.RandomMatchFollows,
		}); err != nil {
			n.logger.Warn("badge notification failed", "user_id", user.ID, "badge", threshold.Badge, "error", err)
		}
		n.logger.Info("badge earned", "user_id", user.ID, "badge", threshold.Badge)
		return threshold.Badge
	}
	return ""
}
