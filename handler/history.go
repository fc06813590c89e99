package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfchat/config"
	"pdfchat/middleware"
)

type HistoryHandler struct {
	window int
}

func NewHistoryHandler(cfg *config.SessionConfig) *HistoryHandler {
	return &HistoryHandler{window: cfg.HistoryWindow}
}

// Get returns the bounded transcript view: the last few exchanges plus the
// full-transcript message count.
func (h *HistoryHandler) Get(c *gin.Context) {
	session := middleware.GetSession(c)
	snap := session.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"history":        session.RecentExchanges(h.window),
		"document":       snap.CurrentDocument,
		"total_messages": len(session.Transcript()),
	})
}

// Clear drops the session transcript.
func (h *HistoryHandler) Clear(c *gin.Context) {
	session := middleware.GetSession(c)
	session.ClearTranscript()

	c.JSON(http.StatusOK, gin.H{"message": "Chat history cleared"})
}
