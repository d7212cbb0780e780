package server

import (
	"ctchen222/tictactoe-ai/internal/api/controller"
	"ctchen222/tictactoe-ai/internal/api/response"
	"ctchen222/tictactoe-ai/internal/events"
	"ctchen222/tictactoe-ai/internal/service"
	"ctchen222/tictactoe-ai/internal/token"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("server")

type Server struct {
	engine      *gin.Engine
	gameService service.GameService
	broker      events.Broker
	tokens      *token.Issuer
	upgrader    websocket.Upgrader
}

func NewServer(gameService service.GameService, broker events.Broker, tokens *token.Issuer) *Server {
	s := &Server{
		engine:      gin.New(),
		gameService: gameService,
		broker:      broker,
		tokens:      tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.RegisterHandlers()
	return s
}

// Engine returns the http.Handler serving every route.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterHandlers() {
	s.engine.Use(gin.Recovery(), requestLogger())

	s.engine.GET("/healthz", func(c *gin.Context) {
		response.SuccessResponse(c, gin.H{"status": "ok"})
	})

	sessions := controller.NewSessionController(s.gameService, s.tokens)
	api := s.engine.Group("/api/sessions")
	api.POST("", sessions.Create)

	authorized := api.Group("/:id", s.requireSessionToken())
	authorized.GET("", sessions.Get)
	authorized.DELETE("", sessions.Delete)
	authorized.POST("/moves", sessions.Move)
	authorized.POST("/reset", sessions.Reset)
	authorized.PUT("/size", sessions.Resize)
	authorized.PUT("/difficulty", sessions.SetDifficulty)

	s.engine.GET("/ws/sessions/:id", s.requireSessionToken(), s.handleWebSocket)
}

// requireSessionToken rejects requests without a token issued for the :id
// session. Browsers cannot set headers on websocket requests, so the token is
// also accepted as the "token" query parameter.
func (s *Server) requireSessionToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			response.ErrorResponse(c, http.StatusUnauthorized, "missing session token")
			c.Abort()
			return
		}

		if err := s.tokens.VerifyFor(tokenString, c.Param("id")); err != nil {
			slog.WarnContext(c.Request.Context(), "Rejected session token", "session.id", c.Param("id"), "error", err)
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.DebugContext(c.Request.Context(), "HTTP request",
			"http.method", c.Request.Method,
			"http.route", c.FullPath(),
			"http.status", c.Writer.Status(),
			"http.duration", fmt.Sprint(time.Since(start)),
		)
	}
}
