package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pdfchat/config"
	"pdfchat/model"
)

// Session holds everything the gateway tracks for one browser client: the
// current document, the append-only transcript, the readiness tracker and
// the rolling usage statistics. All state is in-memory and dies with the
// session; the backend owns the authoritative index.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.RWMutex
	document   *model.UploadedDocument
	transcript []model.ChatMessage
	stats      model.SessionStats

	// tracker fields, replaced wholesale on poll ticks
	documentLoaded  bool
	currentDocument string
	messageCount    int
	readyForQueries bool

	uploadInFlight bool
}

// Snapshot is a copy of the session tracker state safe to hand to handlers.
type Snapshot struct {
	SessionID       string                  `json:"session_id"`
	DocumentLoaded  bool                    `json:"document_loaded"`
	CurrentDocument string                  `json:"current_document"`
	MessageCount    int                     `json:"message_count"`
	ReadyForQueries bool                    `json:"ready_for_queries"`
	Document        *model.UploadedDocument `json:"document,omitempty"`
	Stats           model.SessionStats      `json:"stats"`
}

// BeginUpload marks an upload as in flight. It returns false if another
// upload for this session has not settled yet.
func (s *Session) BeginUpload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadInFlight {
		return false
	}
	s.uploadInFlight = true
	return true
}

// EndUpload clears the in-flight upload guard.
func (s *Session) EndUpload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadInFlight = false
}

// OnUploadSucceeded replaces the tracked document wholesale and resets the
// transcript, without waiting for the next poll tick.
func (s *Session) OnUploadSucceeded(doc *model.UploadedDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.document = doc
	s.documentLoaded = true
	s.currentDocument = doc.Filename
	s.readyForQueries = true
	s.messageCount = 0
	s.transcript = nil
	s.stats.TotalUploads++
}

// OnQueryResolved records a settled query: the cumulative counter, the
// incremental mean latency and the two transcript turns it produced.
func (s *Session) OnQueryResolved(latencyMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalQueries++
	n := float64(s.stats.TotalQueries)
	s.stats.AvgResponseTimeMs = (s.stats.AvgResponseTimeMs*(n-1) + latencyMs) / n
	s.messageCount += 2
}

// ApplyStatus replaces the tracker fields wholesale with a poll result.
func (s *Session) ApplyStatus(status *model.DocumentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documentLoaded = status.DocumentLoaded
	s.currentDocument = status.CurrentDocument
	s.messageCount = status.ChatMessages
	s.readyForQueries = status.ReadyForQueries
	if s.document != nil {
		if status.Chunks > 0 {
			s.document.Chunks = status.Chunks
		}
		if status.DocumentSize > 0 {
			s.document.Size = status.DocumentSize
		}
		s.document.Ready = status.ReadyForQueries
	}
}

// AppendMessage adds a message to the transcript in insertion order.
func (s *Session) AppendMessage(msg model.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = append(s.transcript, msg)
}

// Transcript returns a copy of the full append-only transcript.
func (s *Session) Transcript() []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ChatMessage, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// RecentExchanges returns the messages of up to the last window exchanges,
// the bounded view served by the history endpoint. An exchange starts at a
// user turn and runs to the next one, so an error turn following the
// assistant's never gets split off.
func (s *Session) RecentExchanges(window int) []model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	seen := 0
	for i := len(s.transcript) - 1; i >= 0; i-- {
		if s.transcript[i].Role != model.RoleUser {
			continue
		}
		seen++
		if seen == window {
			start = i
			break
		}
	}

	out := make([]model.ChatMessage, len(s.transcript)-start)
	copy(out, s.transcript[start:])
	return out
}

// ClearTranscript drops the transcript but keeps counters and the document.
func (s *Session) ClearTranscript() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcript = nil
}

// Snapshot returns a copy of the tracker state and stats.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SessionID:       s.ID,
		DocumentLoaded:  s.documentLoaded,
		CurrentDocument: s.currentDocument,
		MessageCount:    s.messageCount,
		ReadyForQueries: s.readyForQueries,
		Stats:           s.stats,
	}
	if s.document != nil {
		doc := *s.document
		snap.Document = &doc
	}
	return snap
}

// SessionStore is an in-memory registry of active sessions. Oldest sessions
// are evicted when the store exceeds its cap.
type SessionStore struct {
	sessions    map[string]*Session
	mu          sync.RWMutex
	maxSessions int // 0 = unlimited
}

var (
	globalStore *SessionStore
	storeOnce   sync.Once
)

// NewSessionStore builds a store with the configured session cap.
func NewSessionStore(cfg *config.SessionConfig) *SessionStore {
	maxSessions := cfg.MaxSessions
	if maxSessions < 0 {
		maxSessions = 0
	}
	return &SessionStore{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
	}
}

// InitSessionStore initializes the global session store with configuration
func InitSessionStore(cfg *config.SessionConfig) {
	storeOnce.Do(func() {
		globalStore = NewSessionStore(cfg)
		slog.Info("session store initialized", "max_sessions", globalStore.maxSessions)
	})
}

// GetSessionStore returns the global session store
func GetSessionStore() *SessionStore {
	if globalStore == nil {
		// Fallback initialization with default settings
		globalStore = &SessionStore{
			sessions:    make(map[string]*Session),
			maxSessions: 100,
		}
	}
	return globalStore
}

// Create registers a new session and returns it.
func (s *SessionStore) Create() *Session {
	session := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	s.cleanupIfNeeded()

	return session
}

// Get returns the session with the given id, or nil.
func (s *SessionStore) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Count returns the number of active sessions.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ApplyStatus pushes a poll result to every active session. Trackers are
// replaced wholesale; sessions created after the tick pick up the next one.
func (s *SessionStore) ApplyStatus(status *model.DocumentStatus) {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	for _, session := range sessions {
		session.ApplyStatus(status)
	}
}

// cleanupIfNeeded removes oldest sessions if store exceeds maxSessions
// Must be called with lock held
func (s *SessionStore) cleanupIfNeeded() {
	if s.maxSessions <= 0 {
		return // Unlimited
	}

	if len(s.sessions) <= s.maxSessions {
		return
	}

	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	removeCount := len(sessions) - s.maxSessions
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old session",
			"session_id", sessions[i].ID,
			"created_at", sessions[i].CreatedAt,
		)
		delete(s.sessions, sessions[i].ID)
	}
}
