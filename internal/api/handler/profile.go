package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"introvert/backend/internal/api/middleware"
	"introvert/backend/internal/models"
)

type preferencesRequest struct {
	AllowRandomMatch *bool         `json:"allowRandomMatch"`
	ShowOnlineStatus *bool         `json:"showOnlineStatus"`
	MatchGender      models.Gender `json:"matchGender"`
}

// UpdatePreferences merges the fields present in the body into the caller's
// current preferences.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	user, err := h.Store.GetUserByID(middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	prefs := user.Preferences
	if req.AllowRandomMatch != nil {
		prefs.AllowRandomMatch = *req.AllowRandomMatch
	}
	if req.ShowOnlineStatus != nil {
		prefs.ShowOnlineStatus = *req.ShowOnlineStatus
	}
	if req.MatchGender != "" {
		prefs.MatchGender = req.MatchGender
	}

	updated, err := h.Store.UpdatePreferences(user.ID, prefs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "preferences": updated.Preferences})
}
