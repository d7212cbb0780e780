package repository

import (
	"context"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/game"
	"ctchen222/tictactoe-ai/internal/session"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/codes"
)

// Redis hash fields of a session.
const (
	FieldBoard      = "board"
	FieldHumanMark  = "human_mark"
	FieldAIMark     = "ai_mark"
	FieldNextTurn   = "next_turn"
	FieldDifficulty = "difficulty"
	FieldStatus     = "status"
	FieldWinner     = "winner"
	FieldWins       = "wins"
	FieldLosses     = "losses"
	FieldDraws      = "draws"
)

type redisSessionRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSessionRepository creates a Redis-based SessionRepository. Every
// write refreshes the key's expiry to ttl.
func NewRedisSessionRepository(rdb *redis.Client, ttl time.Duration) SessionRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisSessionRepository{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Create initializes a new session hash unless the id is taken.
func (r *redisSessionRepository) Create(ctx context.Context, s *session.Session) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Create")
	defer span.End()

	fields, err := encodeSession(s)
	if err != nil {
		return err
	}

	key := sessionKey(s.ID)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", ErrSessionExists, s.ID)
		}
		return r.write(ctx, tx, key, fields)
	}

	if err := r.rdb.Watch(ctx, txf, key); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create session")
		return fmt.Errorf("failed to create session in redis: %w", err)
	}
	return nil
}

// FindByID retrieves a session from Redis.
func (r *redisSessionRepository) FindByID(ctx context.Context, id string) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, "SessionRepository.FindByID")
	defer span.End()

	data, err := r.rdb.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get session")
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s, err := decodeSession(id, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode session")
		return nil, err
	}
	return s, nil
}

// Save overwrites an existing session.
func (r *redisSessionRepository) Save(ctx context.Context, s *session.Session) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Save")
	defer span.End()

	fields, err := encodeSession(s)
	if err != nil {
		return err
	}

	key := sessionKey(s.ID)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, s.ID)
		}
		return r.write(ctx, tx, key, fields)
	}

	if err := r.rdb.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save session")
		return fmt.Errorf("failed to save session in redis: %w", err)
	}
	return nil
}

// Delete removes a session.
func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "SessionRepository.Delete")
	defer span.End()

	n, err := r.rdb.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to delete session")
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

func (r *redisSessionRepository) write(ctx context.Context, tx *redis.Tx, key string, fields map[string]interface{}) error {
	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	return err
}

func encodeSession(s *session.Session) (map[string]interface{}, error) {
	boardJSON, err := json.Marshal(s.Board)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal board: %w", err)
	}

	return map[string]interface{}{
		FieldBoard:      boardJSON,
		FieldHumanMark:  string(s.HumanMark),
		FieldAIMark:     string(s.AIMark),
		FieldNextTurn:   string(s.Turn),
		FieldDifficulty: string(s.Difficulty),
		FieldStatus:     s.Outcome.Status.String(),
		FieldWinner:     string(s.Outcome.Winner),
		FieldWins:       s.Tally.Wins,
		FieldLosses:     s.Tally.Losses,
		FieldDraws:      s.Tally.Draws,
	}, nil
}

func decodeSession(id string, data map[string]string) (*session.Session, error) {
	board := &game.Board{}
	if err := json.Unmarshal([]byte(data[FieldBoard]), board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}

	var status game.Status
	if err := status.UnmarshalText([]byte(data[FieldStatus])); err != nil {
		return nil, fmt.Errorf("failed to decode session status: %w", err)
	}

	var tally session.Tally
	for field, dst := range map[string]*int{FieldWins: &tally.Wins, FieldLosses: &tally.Losses, FieldDraws: &tally.Draws} {
		n, err := strconv.Atoi(data[field])
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", field, err)
		}
		*dst = n
	}

	return &session.Session{
		ID:         id,
		Board:      board,
		HumanMark:  game.PlayerMark(data[FieldHumanMark]),
		AIMark:     game.PlayerMark(data[FieldAIMark]),
		Turn:       game.PlayerMark(data[FieldNextTurn]),
		Difficulty: bot.Difficulty(data[FieldDifficulty]),
		Outcome:    game.Outcome{Status: status, Winner: game.PlayerMark(data[FieldWinner])},
		Tally:      tally,
	}, nil
}
