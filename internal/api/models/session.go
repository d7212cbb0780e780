package models

import "ctchen222/tictactoe-ai/internal/session"

// CreateSessionRequest defines the body of a new session request. Zero values
// select the server defaults.
type CreateSessionRequest struct {
	Size       int    `json:"size" binding:"omitempty,min=1"`
	Difficulty string `json:"difficulty" binding:"omitempty"`
}

// MoveRequest defines the human player's move.
type MoveRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// ResizeRequest defines the board size change.
type ResizeRequest struct {
	Size int `json:"size" binding:"required,min=1"`
}

// DifficultyRequest defines the bot difficulty change.
type DifficultyRequest struct {
	Difficulty string `json:"difficulty" binding:"required"`
}

// SessionResponse carries a session, plus its access token when it was just
// created.
type SessionResponse struct {
	Session *session.Session `json:"session"`
	Token   string           `json:"token,omitempty"`
}
