package repository

import (
	"context"
	"ctchen222/tictactoe-ai/internal/session"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	session   *session.Session
	expiresAt time.Time
}

type memorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionRepository creates a process-local SessionRepository whose
// entries expire ttl after their last write.
func NewMemorySessionRepository(ttl time.Duration) SessionRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memorySessionRepository{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create stores a new session.
func (r *memorySessionRepository) Create(ctx context.Context, s *session.Session) error {
	_, span := tracer.Start(ctx, "SessionRepository.Create")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.live(s.ID); ok {
		return fmt.Errorf("%w: %s", ErrSessionExists, s.ID)
	}
	r.sweep()
	r.put(s)
	return nil
}

// FindByID returns a copy of the stored session.
func (r *memorySessionRepository) FindByID(ctx context.Context, id string) (*session.Session, error) {
	_, span := tracer.Start(ctx, "SessionRepository.FindByID")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.live(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return entry.session.Clone(), nil
}

// Save replaces an existing session and refreshes its expiry.
func (r *memorySessionRepository) Save(ctx context.Context, s *session.Session) error {
	_, span := tracer.Start(ctx, "SessionRepository.Save")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.live(s.ID); !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, s.ID)
	}
	r.put(s)
	return nil
}

// Delete removes a session.
func (r *memorySessionRepository) Delete(ctx context.Context, id string) error {
	_, span := tracer.Start(ctx, "SessionRepository.Delete")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.live(id); !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepository) live(id string) (memoryEntry, bool) {
	entry, ok := r.sessions[id]
	if !ok || !r.now().Before(entry.expiresAt) {
		return memoryEntry{}, false
	}
	return entry, true
}

// sweep drops expired entries. Callers hold the write lock.
func (r *memorySessionRepository) sweep() {
	now := r.now()
	for id, entry := range r.sessions {
		if !now.Before(entry.expiresAt) {
			delete(r.sessions, id)
		}
	}
}

func (r *memorySessionRepository) put(s *session.Session) {
	r.sessions[s.ID] = memoryEntry{
		session:   s.Clone(),
		expiresAt: r.now().Add(r.ttl),
	}
}
