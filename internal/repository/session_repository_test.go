package repository

import (
	"context"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/game"
	"ctchen222/tictactoe-ai/internal/session"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSessionRepository runs the behaviour every SessionRepository shares.
func testSessionRepository(t *testing.T, repo SessionRepository) {
	ctx := context.Background()

	t.Run("Create and find", func(t *testing.T) {
		s, err := session.New("create-find", 4, bot.Easy)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, s))

		found, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, found.ID)
		assert.Equal(t, 4, found.Board.Size())
		assert.Equal(t, bot.Easy, found.Difficulty)
		assert.Equal(t, game.PlayerX, found.Turn)
		assert.Equal(t, game.Outcome{Status: game.InProgress}, found.Outcome)
	})

	t.Run("Create twice", func(t *testing.T) {
		s, err := session.New("create-twice", 3, bot.Hard)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, s))

		assert.ErrorIs(t, repo.Create(ctx, s), ErrSessionExists)
	})

	t.Run("Save persists moves and tally", func(t *testing.T) {
		s, err := session.New("save", 1, bot.Hard)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, s))

		_, err = s.PlayHuman(0)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, s))

		found, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, game.PlayerX, found.Board.Cell(0))
		assert.Equal(t, game.Outcome{Status: game.Win, Winner: game.PlayerX}, found.Outcome)
		assert.Equal(t, session.Tally{Wins: 1}, found.Tally)
		assert.Equal(t, game.PlayerO, found.Turn)
	})

	t.Run("Found sessions are copies", func(t *testing.T) {
		s, err := session.New("copies", 3, bot.Hard)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, s))

		found, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		_, err = found.PlayHuman(4)
		require.NoError(t, err)

		again, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, game.None, again.Board.Cell(4))
	})

	t.Run("Save unknown session", func(t *testing.T) {
		s, err := session.New("never-created", 3, bot.Hard)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Save(ctx, s), ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s, err := session.New("delete", 3, bot.Hard)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, s))

		require.NoError(t, repo.Delete(ctx, s.ID))

		_, err = repo.FindByID(ctx, s.ID)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, s.ID), ErrSessionNotFound)
	})
}

func TestMemorySessionRepository(t *testing.T) {
	testSessionRepository(t, NewMemorySessionRepository(time.Hour))
}

func TestMemorySessionRepositoryExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository(time.Minute).(*memorySessionRepository)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	s, err := session.New("expiring", 3, bot.Hard)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, s))

	now = now.Add(59 * time.Second)
	require.NoError(t, repo.Save(ctx, s), "save refreshes the expiry")

	now = now.Add(59 * time.Second)
	_, err = repo.FindByID(ctx, s.ID)
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = repo.FindByID(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	other, err := session.New("other", 3, bot.Hard)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, other))
	assert.NotContains(t, repo.sessions, s.ID, "expired entries are swept on create")
}
