package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pdfchat/config"
	"pdfchat/middleware"
	"pdfchat/model"
	"pdfchat/pkg/logger"
	"pdfchat/pkg/telemetry"
	"pdfchat/service"
)

type QueryHandler struct {
	backend   *service.BackendClient
	maxLength int
	inst      *telemetry.Instruments
}

func NewQueryHandler(backend *service.BackendClient, cfg *config.Config, inst *telemetry.Instruments) *QueryHandler {
	if inst == nil {
		inst = telemetry.Noop()
	}
	return &QueryHandler{
		backend:   backend,
		maxLength: cfg.Session.MaxQueryLength,
		inst:      inst,
	}
}

// QueryRequest is the client-facing request shape. Clients send "question";
// the backend contract uses "query" and the translation happens here, in one
// place.
type QueryRequest struct {
	Question string `json:"question"`
}

// Query validates a question, appends the user turn to the transcript, and
// relays the question to the backend. The assistant or error turn is
// appended when the relay settles.
func (h *QueryHandler) Query(c *gin.Context) {
	ctx := c.Request.Context()
	session := middleware.GetSession(c)

	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query cannot be empty"})
		return
	}
	// Length is counted in characters, not bytes, matching the backend
	if utf8.RuneCountInString(question) > h.maxLength {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Query is too long (maximum %d characters)", h.maxLength),
		})
		return
	}

	// The user turn is recorded before the relay settles
	session.AppendMessage(model.ChatMessage{
		ID:        uuid.New().String(),
		Role:      model.RoleUser,
		Content:   question,
		CreatedAt: time.Now(),
	})

	start := time.Now()
	result, err := h.backend.QueryDocument(ctx, question)
	latencyMs := float64(time.Since(start).Milliseconds())

	if err != nil {
		session.AppendMessage(model.ChatMessage{
			ID:        uuid.New().String(),
			Role:      model.RoleError,
			Content:   errorContent(err),
			CreatedAt: time.Now(),
		})
		relayError(c, err, "query")
		return
	}

	h.inst.Queries.Add(ctx, 1)

	session.AppendMessage(model.ChatMessage{
		ID:             uuid.New().String(),
		Role:           model.RoleAssistant,
		Content:        result.Response,
		CreatedAt:      time.Now(),
		Sources:        result.Sources,
		ProcessingTime: result.ProcessingTime,
	})
	session.OnQueryResolved(latencyMs)

	logger.Info(ctx, "query processed",
		"chunks_used", result.ChunksUsed,
		"latency_ms", latencyMs,
	)

	c.JSON(http.StatusOK, gin.H{
		"answer":          result.Response,
		"sources":         result.Sources,
		"chunks_used":     result.ChunksUsed,
		"processing_time": result.ProcessingTime,
	})
}

// errorContent picks the transcript text for a failed relay: the backend's
// authoritative detail when there is one, a generic line otherwise.
func errorContent(err error) string {
	var backendErr *service.BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Detail()
	}
	return "Something went wrong processing your request. Please try again."
}
