package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pdfchat/model"
)

// StatusPoller periodically fetches the backend's document status and pushes
// it into the session store. Poll failures are logged and swallowed so a
// transient network issue never blanks out known-good tracker state.
type StatusPoller struct {
	client   *BackendClient
	store    *SessionStore
	interval time.Duration

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once

	mu   sync.RWMutex
	last *model.DocumentStatus
}

func NewStatusPoller(client *BackendClient, store *SessionStore, interval time.Duration) *StatusPoller {
	return &StatusPoller{
		client:   client,
		store:    store,
		interval: interval,
	}
}

// Start launches the polling loop. It returns immediately; the loop runs
// until Stop is called or the parent context is cancelled.
func (p *StatusPoller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}()
}

// Stop cancels the polling loop and waits for it to exit. Safe to call more
// than once.
func (p *StatusPoller) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel == nil {
			return
		}
		p.cancel()
		<-p.done
		slog.Info("status poller stopped")
	})
}

// LastStatus returns a copy of the most recent successful poll result, or
// nil before the first successful tick.
func (p *StatusPoller) LastStatus() *model.DocumentStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	status := *p.last
	return &status
}

func (p *StatusPoller) tick(ctx context.Context) {
	status, err := p.client.DocumentStatus(ctx)
	if err != nil {
		// Leave tracker state unchanged on failure.
		slog.Warn("document status poll failed", "error", err)
		return
	}

	p.mu.Lock()
	p.last = status
	p.mu.Unlock()

	p.store.ApplyStatus(status)
	slog.Debug("document status applied",
		"document_loaded", status.DocumentLoaded,
		"ready_for_queries", status.ReadyForQueries,
	)
}
