package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event types published for a session.
const (
	TypeState      = "state"
	TypeMove       = "move"
	TypeAIThinking = "ai_thinking"
	TypeGameOver   = "game_over"
)

// Event represents a session change delivered to subscribers.
type Event struct {
	Type      string          `json:"event"`
	SessionID string          `json:"session_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// MovePayload is the payload for the "move" event.
type MovePayload struct {
	Index int    `json:"index"`
	Mark  string `json:"mark"`
	By    string `json:"by"`
}

// GameOverPayload is the payload for the "game_over" event.
type GameOverPayload struct {
	Status string `json:"status"`
	Winner string `json:"winner,omitempty"`
}

// New builds an event with payload encoded as JSON. A nil payload is omitted.
func New(eventType, sessionID string, payload any) (Event, error) {
	ev := Event{Type: eventType, SessionID: sessionID}
	if payload == nil {
		return ev, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	ev.Payload = raw
	return ev, nil
}

// Broker fans session events out to subscribers.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe delivers events for sessionID until cancel is called or ctx ends.
	Subscribe(ctx context.Context, sessionID string) (events <-chan Event, cancel func(), err error)
}

// SessionChannel is the Pub/Sub channel of one session.
func SessionChannel(sessionID string) string {
	return fmt.Sprintf("channel:session:%s", sessionID)
}
