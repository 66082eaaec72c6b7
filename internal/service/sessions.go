package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"medorder/backend/internal/store"
	"medorder/backend/internal/wizard"
	"medorder/backend/internal/xid"
)

const DefaultSessionTTL = 2 * time.Hour

var ErrSessionNotFound = fmt.Errorf("wizard session %w", store.ErrNotFound)

// SessionRegistry holds in-flight wizard sessions. Sessions idle for longer
// than the TTL are dropped by Sweep.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*wizard.Session
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessionRegistry(ttl time.Duration, logger *zap.Logger) *SessionRegistry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRegistry{
		sessions: make(map[string]*wizard.Session),
		ttl:      ttl,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *SessionRegistry) Create(createdBy string) *wizard.Session {
	sess := wizard.NewSession(xid.New("wiz"), createdBy, r.now(), r.logger)

	r.mu.Lock()
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()
	return sess
}

func (r *SessionRegistry) Get(id string) (*wizard.Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if r.now().Sub(sess.UpdatedAt()) > r.ttl {
		r.Remove(id)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts idle sessions and returns how many were removed.
func (r *SessionRegistry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, sess := range r.sessions {
		if sess.UpdatedAt().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("evicted idle wizard sessions", zap.Int("count", removed))
	}
	return removed
}

// Run sweeps on every interval until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
