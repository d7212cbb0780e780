package session

import (
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/game"
	"errors"
	"fmt"
)

var (
	ErrGameOver    = errors.New("game already finished")
	ErrNotYourTurn = errors.New("not player's turn")
)

// Tally counts finished games from the human player's point of view.
type Tally struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

// Session is the state of one human-vs-bot game. The human plays X and moves
// first; the bot plays O. A Session must not be used by two turns at once.
type Session struct {
	ID         string          `json:"id"`
	Board      *game.Board     `json:"board"`
	HumanMark  game.PlayerMark `json:"human_mark"`
	AIMark     game.PlayerMark `json:"ai_mark"`
	Turn       game.PlayerMark `json:"turn"`
	Difficulty bot.Difficulty  `json:"difficulty"`
	Outcome    game.Outcome    `json:"outcome"`
	Tally      Tally           `json:"tally"`
}

// New creates a session with an empty size×size board.
func New(id string, size int, difficulty bot.Difficulty) (*Session, error) {
	board, err := game.NewBoard(size)
	if err != nil {
		return nil, err
	}
	if _, err := bot.ParseDifficulty(string(difficulty)); err != nil {
		return nil, err
	}

	return &Session{
		ID:         id,
		Board:      board,
		HumanMark:  game.PlayerX,
		AIMark:     game.PlayerO,
		Turn:       game.PlayerX,
		Difficulty: difficulty,
		Outcome:    game.Outcome{Status: game.InProgress},
	}, nil
}

// IsOver reports whether the current game has a win or draw.
func (s *Session) IsOver() bool {
	return s.Outcome.IsTerminal()
}

// IsAITurn reports whether the bot is due to move.
func (s *Session) IsAITurn() bool {
	return !s.IsOver() && s.Turn == s.AIMark
}

// PlayHuman applies the human player's move at index.
func (s *Session) PlayHuman(index int) (game.Outcome, error) {
	if err := s.play(s.HumanMark, index); err != nil {
		return s.Outcome, err
	}
	return s.Outcome, nil
}

// PlayAI asks selector for the bot's move and applies it. It returns the chosen
// cell.
func (s *Session) PlayAI(selector *bot.Selector) (int, game.Outcome, error) {
	if s.IsOver() {
		return bot.NoMove, s.Outcome, ErrGameOver
	}
	if s.Turn != s.AIMark {
		return bot.NoMove, s.Outcome, ErrNotYourTurn
	}

	index, err := selector.SelectMove(s.Board, s.AIMark, s.Difficulty)
	if err != nil {
		return bot.NoMove, s.Outcome, err
	}
	if err := s.play(s.AIMark, index); err != nil {
		return bot.NoMove, s.Outcome, fmt.Errorf("bot failed to make turn: %w", err)
	}
	return index, s.Outcome, nil
}

func (s *Session) play(mark game.PlayerMark, index int) error {
	if s.IsOver() {
		return ErrGameOver
	}
	if s.Turn != mark {
		return ErrNotYourTurn
	}
	if err := s.Board.ApplyMove(index, mark); err != nil {
		return err
	}

	s.Outcome = s.Board.Outcome()
	s.Turn = mark.Opponent()
	if s.IsOver() {
		s.record()
	}
	return nil
}

func (s *Session) record() {
	switch {
	case s.Outcome.Status == game.Draw:
		s.Tally.Draws++
	case s.Outcome.Winner == s.HumanMark:
		s.Tally.Wins++
	case s.Outcome.Winner == s.AIMark:
		s.Tally.Losses++
	}
}

// Reset starts a new game on a board of the same size. The tally is kept.
func (s *Session) Reset() {
	s.Board.Reset()
	s.Turn = s.HumanMark
	s.Outcome = game.Outcome{Status: game.InProgress}
}

// Resize starts a new game on a size×size board. The tally is kept.
func (s *Session) Resize(size int) error {
	board, err := game.NewBoard(size)
	if err != nil {
		return err
	}
	s.Board = board
	s.Turn = s.HumanMark
	s.Outcome = game.Outcome{Status: game.InProgress}
	return nil
}

// SetDifficulty changes the bot's strategy for the following moves.
func (s *Session) SetDifficulty(d bot.Difficulty) error {
	parsed, err := bot.ParseDifficulty(string(d))
	if err != nil {
		return err
	}
	s.Difficulty = parsed
	return nil
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Board = s.Board.Clone()
	return &c
}
