package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"introvert/backend/internal/api/middleware"
	"introvert/backend/internal/apperr"
)

// Follow sends a follow request from the caller to :userId.
func (h *Handler) Follow(c *gin.Context) {
	follow, err := h.Social.RequestFollow(middleware.UserID(c), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "follow": follow})
}

// AcceptFollow accepts the follow :userId sent to the caller.
func (h *Handler) AcceptFollow(c *gin.Context) {
	follow, err := h.Social.AcceptFollow(middleware.UserID(c), c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "follow": follow})
}

// Badges shows the badges of :userId and the count they are earned from.
func (h *Handler) Badges(c *gin.Context) {
	user, err := h.Store.GetUserByID(c.Param("userId"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
			return
		}
		h.respondError(c, err)
		return
	}

	badges := user.Badges
	if badges == nil {
		badges = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"badges":             badges,
		"randomMatchFollows": user.Stats.RandomMatchFollows,
	})
}
