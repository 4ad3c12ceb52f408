package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"introvert/backend/internal/auth"
	"introvert/backend/internal/models"
)

const (
	userIDKey   = "userID"
	usernameKey = "username"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type UserLookup interface {
	GetUserByID(id string) (models.User, error)
}

// AuthMiddleware validates the bearer token and makes sure its user still
// exists. Users live only as long as the process, so a token can outlive
// its user.
func AuthMiddleware(tokens TokenVerifier, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "No token provided"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid authorization header"})
			return
		}

		claims, err := tokens.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			message := "Invalid token"
			if auth.IsExpired(err) {
				message = "Token expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": message})
			return
		}

		if _, err := users.GetUserByID(claims.UserID); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "User not found"})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(usernameKey, claims.Username)
		c.Next()
	}
}

// UserID returns the authenticated user id set by AuthMiddleware.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
