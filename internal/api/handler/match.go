package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"introvert/backend/internal/api/middleware"
	"introvert/backend/internal/models"
)

type findMatchRequest struct {
	GenderPreference models.Gender `json:"genderPreference"`
	MaxRetries       int           `json:"maxRetries"`
}

// FindMatch runs one matchmaking attempt for the caller. The body is optional;
// missing fields fall back to the matcher defaults.
func (h *Handler) FindMatch(c *gin.Context) {
	var req findMatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
			return
		}
	}

	outcome, err := h.Matcher.RequestMatch(c.Request.Context(), models.MatchRequest{
		UserID:           middleware.UserID(c),
		GenderPreference: req.GenderPreference,
		MaxRetries:       req.MaxRetries,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	switch outcome.Status {
	case models.MatchStatusMatched:
		c.JSON(http.StatusOK, gin.H{
			"success":           true,
			"match":             outcome.Candidate,
			"roomId":            outcome.RoomID,
			"followOpportunity": outcome.FollowOpportunityID,
		})
	case models.MatchStatusRetrying:
		c.JSON(http.StatusOK, gin.H{
			"success":    false,
			"message":    "No matches available, trying again...",
			"retries":    outcome.Retries,
			"maxRetries": outcome.MaxRetries,
		})
	default:
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "No matches found after maximum retries"})
	}
}

// CancelMatch drops the caller's pending queue entry.
func (h *Handler) CancelMatch(c *gin.Context) {
	removed, err := h.Matcher.CancelMatch(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "cancelled": removed})
}
