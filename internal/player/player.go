package player

import (
	"context"
	"ctchen222/tictactoe-ai/pkg/proto"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	heartbeatInterval = 10 * time.Second
	sendBuffer        = 32
)

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Player is the human side of a session connected over a websocket. All
// writes to Conn go through WritePump.
type Player struct {
	SessionID string
	Conn      Connection

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewPlayer creates a Player for sessionID on conn.
func NewPlayer(sessionID string, conn Connection) *Player {
	return &Player{
		SessionID: sessionID,
		Conn:      conn,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
	}
}

// Send queues message for delivery. It reports false when the player is
// closed or too far behind to take more messages.
func (p *Player) Send(message *proto.ServerToClientMessage) bool {
	data, err := json.Marshal(message)
	if err != nil {
		slog.Error("error marshalling message", "session.id", p.SessionID, "error", err)
		return false
	}

	select {
	case <-p.done:
		return false
	default:
	}

	select {
	case p.send <- data:
		return true
	case <-p.done:
		return false
	default:
		slog.Warn("Player send buffer full, dropping message", "session.id", p.SessionID, "message.type", message.Type)
		return false
	}
}

// WritePump writes queued messages and heartbeats until ctx ends, the player
// is closed, or a write fails.
func (p *Player) WritePump(ctx context.Context) {
	pingTicker := time.NewTicker(heartbeatInterval)
	defer func() {
		pingTicker.Stop()
		p.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case data := <-p.send:
			if err := p.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.WarnContext(ctx, "error writing message to player", "session.id", p.SessionID, "error", err)
				return
			}
		case <-pingTicker.C:
			if err := p.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.WarnContext(ctx, "Failed to send ping to player, assuming disconnect", "session.id", p.SessionID, "error", err)
				return
			}
		}
	}
}

// Close closes the connection once. Pending messages are discarded.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
		p.Conn.Close()
	})
}

// Done is closed once the player is closed.
func (p *Player) Done() <-chan struct{} {
	return p.done
}
