package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openclaw/pageqr/widget"
)

// session is one mounted widget driven over HTTP.
type session struct {
	widget    *widget.Widget
	presenter *widget.SnapshotPresenter
	lastSeen  time.Time
}

// Sessions tracks widget sessions by id.
type Sessions struct {
	mu    sync.RWMutex
	items map[string]*session
	now   func() time.Time
}

// NewSessions returns an empty session table.
func NewSessions() *Sessions {
	return &Sessions{items: make(map[string]*session), now: time.Now}
}

// Add registers a mounted widget and returns its id.
func (s *Sessions) Add(w *widget.Widget, p *widget.SnapshotPresenter) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = &session{widget: w, presenter: p, lastSeen: s.now()}
	return id
}

// Get returns the session for id and marks it as used.
func (s *Sessions) Get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[id]
	if ok {
		sess.lastSeen = s.now()
	}
	return sess, ok
}

// Remove unmounts and forgets the session for id.
func (s *Sessions) Remove(id string) bool {
	s.mu.Lock()
	sess, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()

	if ok {
		sess.widget.Unmount()
	}
	return ok
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close unmounts every session.
func (s *Sessions) Close() {
	s.mu.Lock()
	items := s.items
	s.items = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range items {
		sess.widget.Unmount()
	}
}

// StartReaper runs a goroutine that unmounts sessions idle for longer than
// ttl, checking every interval until ctx is cancelled.
func (s *Sessions) StartReaper(ctx context.Context, interval, ttl time.Duration, log *slog.Logger) {
	go s.reapLoop(ctx, interval, ttl, log)
}

func (s *Sessions) reapLoop(ctx context.Context, interval, ttl time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("session reaper stopped")
			return
		case <-ticker.C:
			if n := s.reap(ttl); n > 0 {
				log.Info("reaped idle widget sessions", "count", n, "remaining", s.Len())
			}
		}
	}
}

// reap removes sessions not used within ttl and returns how many it removed.
func (s *Sessions) reap(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	var stale []*session
	for id, sess := range s.items {
		if sess.lastSeen.Before(cutoff) {
			stale = append(stale, sess)
			delete(s.items, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range stale {
		sess.widget.Unmount()
	}
	return len(stale)
}
