package repository

import (
	"context"
	"ctchen222/tictactoe-ai/internal/session"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("repository")

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
)

// SessionRepository defines the interface for session storage. Implementations
// hand out copies, so callers must Save to persist changes.
type SessionRepository interface {
	Create(ctx context.Context, s *session.Session) error
	FindByID(ctx context.Context, id string) (*session.Session, error)
	Save(ctx context.Context, s *session.Session) error
	Delete(ctx context.Context, id string) error
}

// DefaultTTL is how long an untouched session is kept.
const DefaultTTL = 24 * time.Hour
