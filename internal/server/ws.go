package server

import (
	"context"
	"ctchen222/tictactoe-ai/internal/api/response"
	"ctchen222/tictactoe-ai/internal/events"
	"ctchen222/tictactoe-ai/internal/player"
	"ctchen222/tictactoe-ai/internal/validator"
	"ctchen222/tictactoe-ai/pkg/proto"
	"encoding/json"
	"log/slog"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// handleWebSocket upgrades the connection, sends the current session state,
// and then streams the session's events while serving moves sent by the client.
func (s *Server) handleWebSocket(c *gin.Context) {
	sessionID := c.Param("id")
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.Path),
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	sess, err := s.gameService.GetSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Could not find session")
		response.Error(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to upgrade connection", "session.id", sessionID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	// The request context ends with the handler; the connection outlives it.
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	p := player.NewPlayer(sessionID, conn)
	defer p.Close()

	stream, unsubscribe, err := s.broker.Subscribe(connCtx, sessionID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to subscribe to session events", "session.id", sessionID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to subscribe")
		return
	}
	defer unsubscribe()

	if state, err := json.Marshal(sess); err == nil {
		p.Send(&proto.ServerToClientMessage{Type: events.TypeState, Payload: state})
	}

	go p.WritePump(connCtx)
	go forwardEvents(connCtx, p, stream)

	slog.InfoContext(ctx, "Player connected", "session.id", sessionID)
	s.readPump(connCtx, p)
	slog.InfoContext(ctx, "Player disconnected", "session.id", sessionID)
}

func forwardEvents(ctx context.Context, p *player.Player, stream <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.Done():
			return
		case ev, ok := <-stream:
			if !ok {
				p.Close()
				return
			}
			p.Send(&proto.ServerToClientMessage{Type: ev.Type, Payload: ev.Payload})
		}
	}
}

// readPump serves client messages until the connection fails.
func (s *Server) readPump(ctx context.Context, p *player.Player) {
	for {
		_, raw, err := p.Conn.ReadMessage()
		if err != nil {
			slog.DebugContext(ctx, "Player connection closed", "session.id", p.SessionID, "error", err)
			return
		}
		s.handleMessage(ctx, p, raw)
	}
}

func (s *Server) handleMessage(ctx context.Context, p *player.Player, raw []byte) {
	ctx, span := tracer.Start(ctx, "server.handleMessage", trace.WithAttributes(
		attribute.String("session.id", p.SessionID),
	))
	defer span.End()

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(raw, &message); err != nil {
		slog.WarnContext(ctx, "error unmarshalling message", "session.id", p.SessionID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		p.Send(&proto.ServerToClientMessage{Type: proto.TypeError, Reason: "malformed message"})
		return
	}

	if err := validator.Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from player", "session.id", p.SessionID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		p.Send(&proto.ServerToClientMessage{Type: proto.TypeError, Reason: err.Error()})
		return
	}
	span.SetAttributes(attribute.String("message.type", message.Type))

	var err error
	switch message.Type {
	case proto.TypeMove:
		_, err = s.gameService.Move(ctx, p.SessionID, *message.Index)
	case proto.TypeReset:
		_, err = s.gameService.Reset(ctx, p.SessionID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Message rejected")
		p.Send(&proto.ServerToClientMessage{Type: proto.TypeError, Reason: err.Error()})
	}
}
