package campaign

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"luxegen-backend/internal/models"
	"luxegen-backend/internal/observability"
)

// Session binds a Workflow to the operator who opened it.
type Session struct {
	ID       uuid.UUID
	Workflow *Workflow
}

// SessionStore keeps studio sessions in memory. Sessions do not survive a restart.
type SessionStore struct {
	mu                sync.RWMutex
	sessions          map[uuid.UUID]*Session
	defaultSceneCount int
	now               func() time.Time
}

func NewSessionStore(defaultSceneCount int) *SessionStore {
	return &SessionStore{
		sessions:          make(map[uuid.UUID]*Session),
		defaultSceneCount: defaultSceneCount,
		now:               time.Now,
	}
}

// WithClock replaces the clock used by Prune.
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

func (s *SessionStore) Create(ownerID string, persona models.Persona) (*Session, error) {
	wf, err := NewWorkflow(ownerID, persona, s.defaultSceneCount)
	if err != nil {
		return nil, err
	}
	sess := &Session{ID: uuid.New(), Workflow: wf}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	n := len(s.sessions)
	s.mu.Unlock()

	observability.ActiveSessions.Set(float64(n))
	return sess, nil
}

// Get returns the session only to its owner.
func (s *SessionStore) Get(id uuid.UUID, ownerID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok || sess.Workflow.OwnerID() != ownerID {
		return nil, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	return sess, nil
}

// Delete removes an idle session owned by ownerID.
func (s *SessionStore) Delete(id uuid.UUID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Workflow.OwnerID() != ownerID {
		return fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	if sess.Workflow.Pending() {
		return ErrBusy
	}
	delete(s.sessions, id)
	observability.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

// Prune drops idle sessions not touched within maxAge and returns how many were removed.
func (s *SessionStore) Prune(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.Workflow.Pending() {
			continue
		}
		if sess.Workflow.UpdatedAt().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	observability.ActiveSessions.Set(float64(len(s.sessions)))
	return removed
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
