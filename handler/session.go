package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pdfchat/config"
	"pdfchat/middleware"
	"pdfchat/service"
)

type SessionHandler struct {
	cfg   *config.SessionConfig
	store *service.SessionStore
}

func NewSessionHandler(cfg *config.SessionConfig, store *service.SessionStore) *SessionHandler {
	return &SessionHandler{cfg: cfg, store: store}
}

// Create starts a new chat session and returns its bearer token.
func (h *SessionHandler) Create(c *gin.Context) {
	session := h.store.Create()

	token, expiresAt, err := middleware.GenerateSessionToken(session.ID, h.cfg)
	if err != nil {
		h.store.Delete(session.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

// Status returns the session's tracker snapshot and usage statistics.
func (h *SessionHandler) Status(c *gin.Context) {
	session := middleware.GetSession(c)
	c.JSON(http.StatusOK, session.Snapshot())
}
