package model

import (
	"time"
)

// Role of a transcript message
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleError     = "error"
)

// ChatMessage is a single transcript entry. Messages are immutable once
// created and kept in insertion order.
type ChatMessage struct {
	ID             string    `json:"id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Sources        []string  `json:"sources,omitempty"`
	ProcessingTime float64   `json:"processing_time,omitempty"` // milliseconds
}
