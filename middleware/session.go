package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"pdfchat/config"
	"pdfchat/pkg/logger"
	"pdfchat/service"
)

// SessionClaims carries the session identity in the token.
type SessionClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a token binding the client to a session.
func GenerateSessionToken(sessionID string, cfg *config.SessionConfig) (string, time.Time, error) {
	expiresAt := time.Now().Add(time.Duration(cfg.TokenExpireHours) * time.Hour)

	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, expiresAt, nil
}

// SessionAuth validates the bearer token and resolves the live session from
// the store. An evicted or expired session yields 401 so the client knows to
// start a fresh one.
func SessionAuth(cfg *config.SessionConfig, store *service.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		tokenString := parts[1]

		claims := &SessionClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session token"})
			c.Abort()
			return
		}

		session := store.Get(claims.SessionID)
		if session == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired, please start a new session"})
			c.Abort()
			return
		}

		// Store session in context
		c.Set("session", session)
		c.Set("session_id", session.ID)

		// Add to request context for logger
		ctx := context.WithValue(c.Request.Context(), logger.SessionIDKey, session.ID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetSession gets the resolved session from context
func GetSession(c *gin.Context) *service.Session {
	if session, exists := c.Get("session"); exists {
		return session.(*service.Session)
	}
	return nil
}
