package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"introvert/backend/internal/api/middleware"
	"introvert/backend/internal/config"
)

// ListNotifications pages through the caller's notifications, newest first.
// Unparsable page or limit values fall back to the defaults.
func (h *Handler) ListNotifications(c *gin.Context) {
	page := queryInt(c, "page", config.DefaultNotificationPage)
	limit := queryInt(c, "limit", config.DefaultNotificationLimit)

	result, err := h.Notifier.List(middleware.UserID(c), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": result.Notifications,
		"pagination": gin.H{
			"page":    result.Page,
			"limit":   result.Limit,
			"total":   result.Total,
			"hasMore": result.HasMore,
		},
	})
}

func (h *Handler) MarkAllNotificationsRead(c *gin.Context) {
	updated := h.Notifier.MarkAllRead(middleware.UserID(c))
	c.JSON(http.StatusOK, gin.H{"success": true, "updated": updated})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.Notifier.MarkRead(middleware.UserID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	if err := h.Notifier.Delete(middleware.UserID(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
