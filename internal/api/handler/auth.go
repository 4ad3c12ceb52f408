package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"introvert/backend/internal/apperr"
	"introvert/backend/internal/auth"
	"introvert/backend/internal/models"
)

type registerRequest struct {
	Username string        `json:"username" binding:"required,max=32"`
	Email    string        `json:"email" binding:"required,email"`
	Password string        `json:"password" binding:"required"`
	Age      int           `json:"age" binding:"required,gt=0"`
	Gender   models.Gender `json:"gender" binding:"required,oneof=male female"`
	Bio      string        `json:"bio" binding:"max=500"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and returns it with a token.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "All fields required"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	now := time.Now()
	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Age:          req.Age,
		Gender:       req.Gender,
		Bio:          req.Bio,
		LastSeen:     now,
		CreatedAt:    now,
		Preferences:  models.DefaultPreferences(),
		Badges:       []string{},
	}
	if err := h.Store.CreateUser(user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "User already exists"})
			return
		}
		h.respondError(c, err)
		return
	}

	token, err := h.Tokens.Issue(user.ID, user.Username)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": user, "token": token})
}

// Login accepts a username or an email with the password.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username and password required"})
		return
	}

	user, err := h.Store.GetUserByLogin(req.Username)
	if err == nil {
		err = auth.CheckPassword(user.PasswordHash, req.Password)
	}
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
			return
		}
		h.respondError(c, err)
		return
	}

	token, err := h.Tokens.Issue(user.ID, user.Username)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user, "token": token})
}
