package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/measure"
	"github.com/samirrijal/fieldarchitect/internal/pkg/metrics"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionView is what callers see of a session.
type SessionView struct {
	ID string `json:"id"`
	measure.Snapshot
}

type sessionEntry struct {
	mu      sync.Mutex // serialises every read-modify-write on s
	s       *measure.Session
	touched time.Time
}

// SessionService keeps live measurement sessions in memory.
type SessionService struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	fields   *FieldService
	now      func() time.Time
}

// NewSessionService creates a new SessionService. fields may be nil, which
// disables loading and saving fields.
func NewSessionService(fields *FieldService) *SessionService {
	return &SessionService{
		sessions: make(map[string]*sessionEntry),
		fields:   fields,
		now:      time.Now,
	}
}

// Create starts an empty session for tool.
func (s *SessionService) Create(tool domain.Tool) SessionView {
	id := uuid.NewString()
	e := &sessionEntry{s: measure.NewSession(tool), touched: s.now()}

	s.mu.Lock()
	s.sessions[id] = e
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return SessionView{ID: id, Snapshot: e.s.Snapshot()}
}

// Get returns the current state of a session.
func (s *SessionService) Get(id string) (SessionView, error) {
	return s.mutate(id, nil)
}

func (s *SessionService) AddVertex(id string, p domain.GeoPoint) (SessionView, error) {
	return s.mutate(id, func(m *measure.Session) { m.AddVertex(p) })
}

func (s *SessionService) Undo(id string) (SessionView, error) {
	return s.mutate(id, (*measure.Session).Undo)
}

func (s *SessionService) Clear(id string) (SessionView, error) {
	return s.mutate(id, (*measure.Session).Clear)
}

func (s *SessionService) SwitchTool(id string, tool domain.Tool) (SessionView, error) {
	return s.mutate(id, func(m *measure.Session) { m.SwitchTool(tool) })
}

// LoadField replaces the session with the boundary of a saved field.
func (s *SessionService) LoadField(ctx context.Context, id, fieldID string) (SessionView, error) {
	if s.fields == nil {
		return SessionView{}, errors.New("field storage not configured")
	}
	if _, err := s.Get(id); err != nil {
		return SessionView{}, err
	}
	field, err := s.fields.GetByID(ctx, fieldID)
	if err != nil {
		return SessionView{}, fmt.Errorf("load field %s: %w", fieldID, err)
	}
	return s.mutate(id, func(m *measure.Session) { m.Load(field.Vertices) })
}

// SaveAsField stores the session's boundary as a named field.
func (s *SessionService) SaveAsField(ctx context.Context, id, name string) (*domain.SavedField, error) {
	if s.fields == nil {
		return nil, errors.New("field storage not configured")
	}
	view, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if view.Tool != domain.ToolBoundary {
		return nil, fmt.Errorf("%w: only boundary sessions can be saved", domain.ErrInvalidField)
	}
	return s.fields.Save(ctx, name, view.Vertices)
}

// Delete drops a session.
func (s *SessionService) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	n := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	metrics.ActiveSessions.Set(float64(n))
	return nil
}

// Expire drops sessions untouched for longer than maxIdle and returns how many were removed.
func (s *SessionService) Expire(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	removed := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		stale := e.touched.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(s.sessions, id)
			removed++
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return removed
}

// Count returns the number of live sessions.
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// mutate applies fn under the session lock and returns the resulting state.
// A nil fn only reads.
func (s *SessionService) mutate(id string, fn func(*measure.Session)) (SessionView, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return SessionView{}, ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if fn != nil {
		fn(e.s)
	}
	e.touched = s.now()
	return SessionView{ID: id, Snapshot: e.s.Snapshot()}, nil
}
