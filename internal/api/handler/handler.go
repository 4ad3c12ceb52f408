package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"introvert/backend/internal/api/middleware"
	"introvert/backend/internal/apperr"
	"introvert/backend/internal/auth"
	"introvert/backend/internal/chathub"
	"introvert/backend/internal/observability"
	"introvert/backend/internal/ratelimit"
	"introvert/backend/internal/storage"
)

// Handler serves the HTTP API and the websocket endpoint.
type Handler struct {
	Store    storage.Storage
	Registry *chathub.Registry
	Router   *chathub.Router
	Matcher  *chathub.MatcherService
	Notifier *chathub.Notifier
	Social   *chathub.Social
	Tokens   *auth.TokenManager

	SendBufferSize int
	Logger         *slog.Logger
}

func NewHandler(
	store storage.Storage,
	registry *chathub.Registry,
	router *chathub.Router,
	matcher *chathub.MatcherService,
	notifier *chathub.Notifier,
	social *chathub.Social,
	tokens *auth.TokenManager,
	sendBufferSize int,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		Store:          store,
		Registry:       registry,
		Router:         router,
		Matcher:        matcher,
		Notifier:       notifier,
		Social:         social,
		Tokens:         tokens,
		SendBufferSize: sendBufferSize,
		Logger:         logger,
	}
}

// RegisterRoutes mounts every endpoint on r. The limiter guards /api only.
func (h *Handler) RegisterRoutes(r *gin.Engine, limiter ratelimit.Limiter) {
	r.Use(observability.HTTPMetricsMiddleware())

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(limiter, h.Logger))

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	secured := api.Group("")
	secured.Use(middleware.AuthMiddleware(h.Tokens, h.Store))

	secured.POST("/social/find-match", h.FindMatch)
	secured.DELETE("/social/find-match", h.CancelMatch)
	secured.POST("/social/create-room", h.CreateRoom)

	secured.POST("/rooms/:roomId/join", h.JoinRoom)
	secured.GET("/rooms/:roomId/messages", h.RoomMessages)

	secured.PUT("/profile/preferences", h.UpdatePreferences)

	secured.POST("/follow/:userId", h.Follow)
	secured.POST("/follow/accept/:userId", h.AcceptFollow)
	secured.GET("/badges/:userId", h.Badges)

	secured.GET("/notifications", h.ListNotifications)
	secured.PUT("/notifications/mark-read", h.MarkAllNotificationsRead)
	secured.PUT("/notifications/:id/read", h.MarkNotificationRead)
	secured.DELETE("/notifications/:id", h.DeleteNotification)
}

// Health reports liveness and a few counters.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "OK",
		"timestamp":         time.Now().UTC(),
		"users":             h.Store.CountUsers(),
		"activeConnections": h.Registry.Count(),
	})
}

// respondError writes {success:false, error} with the status of err's kind.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed", "path", c.FullPath(), "error", err)
		message = "Internal server error"
	}
	c.JSON(status, gin.H{"success": false, "error": message})
}
