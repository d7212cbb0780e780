package proto

import "encoding/json"

// Client message types.
const (
	TypeMove  = "move"
	TypeReset = "reset"
)

// TypeError is sent to a client whose message was rejected.
const TypeError = "error"

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type  string `json:"type" validate:"required,oneof=move reset"`
	Index *int   `json:"index,omitempty" validate:"required_if=Type move"`
}

// ServerToClientMessage represents a message from the server to the client.
// Type is one of the session event types or TypeError.
type ServerToClientMessage struct {
	Type    string          `json:"type" validate:"required"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}
