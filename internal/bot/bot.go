package bot

import (
	"ctchen222/tictactoe-ai/internal/game"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
)

// Difficulty selects the strategy the bot plays with.
type Difficulty string

const (
	Easy Difficulty = "easy"
	Hard Difficulty = "hard"

	// NoMove is returned in place of a cell index when no cell is playable.
	NoMove = -1
)

var (
	ErrNoMoveAvailable   = errors.New("no move available")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
)

// ParseDifficulty maps a user supplied name to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case Easy, Hard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDifficulty, s)
	}
}

// Selector chooses the bot's move. It keeps no game state between calls; the
// random source only serves the easy strategy.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a Selector drawing from src. A nil src uses a randomly
// seeded PCG source.
func NewSelector(src rand.Source) *Selector {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Selector{rng: rand.New(src)}
}

// SelectMove returns the cell the bot playing aiMark should take. Full or
// already decided boards yield NoMove and ErrNoMoveAvailable. The board is
// identical to its input when SelectMove returns.
func (s *Selector) SelectMove(board *game.Board, aiMark game.PlayerMark, difficulty Difficulty) (int, error) {
	if !aiMark.IsPlayer() {
		return NoMove, fmt.Errorf("%w: unknown mark %q", game.ErrInvalidMove, aiMark)
	}
	if board.Outcome().IsTerminal() {
		return NoMove, ErrNoMoveAvailable
	}

	var move int
	switch difficulty {
	case Easy:
		move = s.EasyMove(board)
	case Hard:
		move = HardMove(board, aiMark)
	default:
		return NoMove, fmt.Errorf("%w: %q", ErrUnknownDifficulty, difficulty)
	}

	if move == NoMove {
		return NoMove, ErrNoMoveAvailable
	}
	return move, nil
}

// EasyMove picks uniformly among the empty cells.
func (s *Selector) EasyMove(board *game.Board) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return easyMove(board, s.rng)
}
