package service

import (
	"context"
	"ctchen222/tictactoe-ai/internal/game"
	"ctchen222/tictactoe-ai/internal/session"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("service")

type gameMetrics struct {
	moves      metric.Int64Counter
	finished   metric.Int64Counter
	botLatency metric.Float64Histogram
}

func newGameMetrics() (*gameMetrics, error) {
	moves, err := meter.Int64Counter("game.moves",
		metric.WithDescription("Moves applied, by side"),
		metric.WithUnit("{move}"))
	if err != nil {
		return nil, err
	}
	finished, err := meter.Int64Counter("game.finished",
		metric.WithDescription("Finished games, by result for the human player"),
		metric.WithUnit("{game}"))
	if err != nil {
		return nil, err
	}
	botLatency, err := meter.Float64Histogram("bot.select.duration",
		metric.WithDescription("Time the bot spends choosing a move"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &gameMetrics{moves: moves, finished: finished, botLatency: botLatency}, nil
}

func (m *gameMetrics) recordMove(ctx context.Context, side string, size int) {
	m.moves.Add(ctx, 1, metric.WithAttributes(
		attribute.String("move.side", side),
		attribute.Int("board.size", size),
	))
}

func (m *gameMetrics) recordFinished(ctx context.Context, s *session.Session) {
	result := "draw"
	if s.Outcome.Status == game.Win {
		result = "loss"
		if s.Outcome.Winner == s.HumanMark {
			result = "win"
		}
	}
	m.finished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("game.result", result),
		attribute.String("game.difficulty", string(s.Difficulty)),
	))
}

func (m *gameMetrics) recordBotLatency(ctx context.Context, s *session.Session, elapsed time.Duration) {
	m.botLatency.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(
		attribute.String("game.difficulty", string(s.Difficulty)),
		attribute.Int("board.size", s.Board.Size()),
	))
}
