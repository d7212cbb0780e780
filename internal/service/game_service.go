package service

import (
	"context"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/events"
	"ctchen222/tictactoe-ai/internal/game"
	"ctchen222/tictactoe-ai/internal/repository"
	"ctchen222/tictactoe-ai/internal/session"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("service")

const (
	sideHuman = "human"
	sideBot   = "bot"
)

// GameService runs human-vs-bot sessions: it applies moves, lets the bot
// answer, persists the result, and publishes events for live viewers.
type GameService interface {
	CreateSession(ctx context.Context, size int, difficulty string) (*session.Session, error)
	GetSession(ctx context.Context, id string) (*session.Session, error)
	DeleteSession(ctx context.Context, id string) error
	Move(ctx context.Context, id string, index int) (*session.Session, error)
	Reset(ctx context.Context, id string) (*session.Session, error)
	Resize(ctx context.Context, id string, size int) (*session.Session, error)
	SetDifficulty(ctx context.Context, id string, difficulty string) (*session.Session, error)
}

// Options holds the game settings of a GameService.
type Options struct {
	DefaultSize       int
	MaxSize           int
	DefaultDifficulty bot.Difficulty
	// BotDelay is waited before each bot move so the player can follow the
	// game. It never affects which move is chosen.
	BotDelay time.Duration
}

type gameService struct {
	repo     repository.SessionRepository
	broker   events.Broker
	selector *bot.Selector
	opts     Options
	locks    *sessionLocker
	metrics  *gameMetrics
	newID    func() string
	sleep    func(time.Duration)
}

// NewGameService creates a new GameService.
func NewGameService(repo repository.SessionRepository, broker events.Broker, selector *bot.Selector, opts Options) (GameService, error) {
	if opts.DefaultSize < 1 {
		opts.DefaultSize = game.DefaultSize
	}
	if opts.MaxSize < opts.DefaultSize {
		return nil, fmt.Errorf("max size %d is below default size %d", opts.MaxSize, opts.DefaultSize)
	}
	if opts.DefaultDifficulty == "" {
		opts.DefaultDifficulty = bot.Hard
	}
	if _, err := bot.ParseDifficulty(string(opts.DefaultDifficulty)); err != nil {
		return nil, err
	}

	metrics, err := newGameMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return &gameService{
		repo:     repo,
		broker:   broker,
		selector: selector,
		opts:     opts,
		locks:    newSessionLocker(),
		metrics:  metrics,
		newID:    func() string { return uuid.New().String() },
		sleep:    time.Sleep,
	}, nil
}

func (s *gameService) CreateSession(ctx context.Context, size int, difficulty string) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, "service.CreateSession", trace.WithAttributes(
		attribute.Int("board.size", size),
		attribute.String("game.difficulty", difficulty),
	))
	defer span.End()

	if size == 0 {
		size = s.opts.DefaultSize
	}
	if err := s.checkSize(size); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid board size")
		return nil, err
	}

	d := s.opts.DefaultDifficulty
	if difficulty != "" {
		parsed, err := bot.ParseDifficulty(difficulty)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Invalid difficulty")
			return nil, err
		}
		d = parsed
	}

	sess, err := session.New(s.newID(), size, d)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create session")
		return nil, err
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))

	if err := s.repo.Create(ctx, sess); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store session")
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	slog.InfoContext(ctx, "Session created", "session.id", sess.ID, "board.size", size, "game.difficulty", d)
	return sess, nil
}

func (s *gameService) GetSession(ctx context.Context, id string) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, "service.GetSession", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not find session")
		return nil, err
	}
	return sess, nil
}

func (s *gameService) DeleteSession(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "service.DeleteSession", trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete session")
		return err
	}
	slog.InfoContext(ctx, "Session deleted", "session.id", id)
	return nil
}

// Move applies the human move at index and, unless that ended the game, the
// bot's answer. The bot half is not cancelled with ctx, and a bot turn left
// pending by a failed save is played before the human move.
func (s *gameService) Move(ctx context.Context, id string, index int) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, "service.Move", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.Int("move.index", index),
	))
	defer span.End()

	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not find session")
		return nil, err
	}

	// A bot turn whose save failed earlier is still pending.
	if sess.IsAITurn() {
		slog.WarnContext(ctx, "Resuming pending bot turn", "session.id", id)
		if err := s.playBot(context.WithoutCancel(ctx), sess); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Bot failed to move")
			return nil, err
		}
		if sess.IsOver() {
			s.finish(ctx, sess)
		}
		s.publish(ctx, events.TypeState, id, sess)
	}

	if _, err := sess.PlayHuman(index); err != nil {
		slog.WarnContext(ctx, "Rejected move", "session.id", id, "move.index", index, "error", err)
		span.SetAttributes(attribute.Bool("move.valid", false))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid move")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("move.valid", true))

	if err := s.repo.Save(ctx, sess); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save session")
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	s.metrics.recordMove(ctx, sideHuman, sess.Board.Size())
	s.publish(ctx, events.TypeMove, id, events.MovePayload{Index: index, Mark: string(sess.HumanMark), By: sideHuman})

	if sess.IsAITurn() {
		if err := s.playBot(context.WithoutCancel(ctx), sess); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Bot failed to move")
			return nil, err
		}
	}

	if sess.IsOver() {
		s.finish(ctx, sess)
	}
	s.publish(ctx, events.TypeState, id, sess)
	return sess, nil
}

func (s *gameService) playBot(ctx context.Context, sess *session.Session) error {
	ctx, span := tracer.Start(ctx, "service.playBot", trace.WithAttributes(
		attribute.String("session.id", sess.ID),
		attribute.String("game.difficulty", string(sess.Difficulty)),
	))
	defer span.End()

	s.publish(ctx, events.TypeAIThinking, sess.ID, nil)
	if s.opts.BotDelay > 0 {
		s.sleep(s.opts.BotDelay)
	}

	start := time.Now()
	index, _, err := sess.PlayAI(s.selector)
	s.metrics.recordBotLatency(ctx, sess, time.Since(start))
	if err != nil {
		slog.ErrorContext(ctx, "Bot could not move", "session.id", sess.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Bot could not move")
		return err
	}
	span.SetAttributes(attribute.Int("move.index", index))

	if err := s.repo.Save(ctx, sess); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save session")
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.metrics.recordMove(ctx, sideBot, sess.Board.Size())
	s.publish(ctx, events.TypeMove, sess.ID, events.MovePayload{Index: index, Mark: string(sess.AIMark), By: sideBot})
	return nil
}

func (s *gameService) finish(ctx context.Context, sess *session.Session) {
	s.metrics.recordFinished(ctx, sess)
	slog.InfoContext(ctx, "Game over", "session.id", sess.ID, "game.outcome", sess.Outcome.String())
	s.publish(ctx, events.TypeGameOver, sess.ID, events.GameOverPayload{
		Status: sess.Outcome.Status.String(),
		Winner: string(sess.Outcome.Winner),
	})
}

func (s *gameService) Reset(ctx context.Context, id string) (*session.Session, error) {
	return s.update(ctx, "service.Reset", id, func(sess *session.Session) error {
		sess.Reset()
		return nil
	})
}

func (s *gameService) Resize(ctx context.Context, id string, size int) (*session.Session, error) {
	if err := s.checkSize(size); err != nil {
		return nil, err
	}
	return s.update(ctx, "service.Resize", id, func(sess *session.Session) error {
		return sess.Resize(size)
	})
}

func (s *gameService) SetDifficulty(ctx context.Context, id string, difficulty string) (*session.Session, error) {
	d, err := bot.ParseDifficulty(difficulty)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, "service.SetDifficulty", id, func(sess *session.Session) error {
		return sess.SetDifficulty(d)
	})
}

// update loads the session, applies fn, saves it, and publishes the new state.
func (s *gameService) update(ctx context.Context, op, id string, fn func(*session.Session) error) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not find session")
		return nil, err
	}
	if err := fn(sess); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update rejected")
		return nil, err
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save session")
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.publish(ctx, events.TypeState, id, sess)
	return sess, nil
}

func (s *gameService) checkSize(size int) error {
	if size < 1 || size > s.opts.MaxSize {
		return fmt.Errorf("%w: %d is outside 1..%d", game.ErrInvalidSize, size, s.opts.MaxSize)
	}
	return nil
}

// publish is best effort: a lost event never fails the operation that caused it.
func (s *gameService) publish(ctx context.Context, eventType, sessionID string, payload any) {
	ev, err := events.New(eventType, sessionID, payload)
	if err == nil {
		err = s.broker.Publish(ctx, ev)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish event", "session.id", sessionID, "event.type", eventType, "error", err)
	}
}
