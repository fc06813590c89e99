package model

import "time"

// UploadedDocument describes the document currently indexed for a session.
// It is replaced wholesale on each successful upload, never partially updated.
type UploadedDocument struct {
	Filename       string    `json:"filename"`
	Size           int64     `json:"size"`
	Chunks         int       `json:"chunks"`
	ProcessingTime float64   `json:"processing_time"` // milliseconds
	Ready          bool      `json:"ready"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// SessionStats is the rolling per-session usage aggregate.
type SessionStats struct {
	TotalUploads      int     `json:"total_uploads"`
	TotalQueries      int     `json:"total_queries"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
}

// DocumentStatus mirrors the backend's /document-status response and is
// applied wholesale to the session tracker on each poll tick.
type DocumentStatus struct {
	DocumentLoaded  bool    `json:"document_loaded"`
	CurrentDocument string  `json:"current_document"`
	ChatMessages    int     `json:"chat_messages"`
	ReadyForQueries bool    `json:"ready_for_queries"`
	Chunks          int     `json:"chunks,omitempty"`
	DocumentSize    int64   `json:"document_size,omitempty"`
	ProcessingTime  float64 `json:"processing_time,omitempty"`
}
