package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cptmerge/internal/infrastructure"
	"cptmerge/pkg/contracts/domain"
)

// SessionStore is an in-memory store of private workspaces. Sessions that
// have not been touched for the TTL are removed by Sweep.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	now      func() time.Time
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

type sessionEntry struct {
	session  domain.Session
	lastSeen time.Time
}

// NewSessionStore creates an empty store. metrics may be nil.
func NewSessionStore(ttl time.Duration, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		now:      time.Now,
		metrics:  metrics,
		logger:   infrastructure.WithComponent(logger, "session_store"),
	}
}

// Create opens a new session with the given project name.
func (s *SessionStore) Create(ctx context.Context, projectName string) domain.Session {
	now := s.now().UTC()
	sess := domain.Session{
		ID:          uuid.NewString(),
		ProjectName: strings.TrimSpace(projectName),
		Soundings:   []domain.Sounding{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &sessionEntry{session: sess, lastSeen: now}
	s.mu.Unlock()

	s.metrics.RecordSessionDelta(ctx, 1)
	s.logger.InfoContext(ctx, "Session created",
		slog.String("session_id", sess.ID),
		slog.String("project", sess.ProjectName))
	return sess.Clone()
}

// Get returns a copy of the session and marks it as used.
func (s *SessionStore) Get(id string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	e.lastSeen = s.now()
	return e.session.Clone(), nil
}

// Update applies fn to a copy of the session and stores the result only if
// fn succeeds. The store lock is held while fn runs, so fn must not block.
func (s *SessionStore) Update(id string, fn func(*domain.Session) error) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	next := e.session.Clone()
	if err := fn(&next); err != nil {
		return domain.Session{}, err
	}

	now := s.now()
	next.UpdatedAt = now.UTC()
	e.session = next
	e.lastSeen = now
	return next.Clone(), nil
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	s.metrics.RecordSessionDelta(ctx, -1)
	return nil
}

// Len returns the number of open sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns their IDs.
func (s *SessionStore) Sweep(ctx context.Context) []string {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var expired []string
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			expired = append(expired, id)
		}
	}
	s.mu.Unlock()

	if len(expired) > 0 {
		s.metrics.RecordSessionDelta(ctx, -int64(len(expired)))
		s.logger.InfoContext(ctx, "Expired sessions removed",
			slog.Int("count", len(expired)),
			slog.Duration("ttl", s.ttl))
	}
	return expired
}

// RunJanitor sweeps every interval until ctx is cancelled. onExpire, when
// set, is called with the IDs removed by each sweep.
func (s *SessionStore) RunJanitor(ctx context.Context, interval time.Duration, onExpire func([]string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Session janitor stopped")
			return
		case <-ticker.C:
			if ids := s.Sweep(ctx); len(ids) > 0 && onExpire != nil {
				onExpire(ids)
			}
		}
	}
}
