package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"introvert/backend/internal/api/middleware"
	"introvert/backend/internal/apperr"
	"introvert/backend/internal/models"
)

type createRoomRequest struct {
	RoomName        string `json:"roomName" binding:"required"`
	IsPrivate       bool   `json:"isPrivate"`
	MaxParticipants int    `json:"maxParticipants"`
}

// CreateRoom opens a custom room hosted by the caller.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Room name is required"})
		return
	}

	roomID, err := h.Store.CreateCustomRoom(middleware.UserID(c), req.RoomName, req.IsPrivate, req.MaxParticipants)
	if err != nil {
		h.respondError(c, err)
		return
	}
	room, err := h.Store.GetRoom(roomID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "roomId": roomID, "room": room})
}

func (h *Handler) JoinRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	if err := h.Store.JoinRoom(roomID, middleware.UserID(c)); err != nil {
		h.respondError(c, err)
		return
	}
	room, err := h.Store.GetRoom(roomID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}

// RoomMessages returns the room history in send order. Random and private
// rooms look missing to non-members.
func (h *Handler) RoomMessages(c *gin.Context) {
	roomID := c.Param("roomId")
	room, err := h.Store.GetRoom(roomID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if (room.Kind == models.RoomKindRandom || room.IsPrivate) && !room.HasMember(middleware.UserID(c)) {
		h.respondError(c, fmt.Errorf("room %s: %w", roomID, apperr.ErrNotFound))
		return
	}

	messages, err := h.Store.RoomMessages(roomID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}
