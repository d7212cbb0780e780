package main

import (
	"context"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/config"
	"ctchen222/tictactoe-ai/internal/db"
	"ctchen222/tictactoe-ai/internal/events"
	"ctchen222/tictactoe-ai/internal/logger"
	"ctchen222/tictactoe-ai/internal/repository"
	"ctchen222/tictactoe-ai/internal/server"
	"ctchen222/tictactoe-ai/internal/service"
	"ctchen222/tictactoe-ai/internal/telemetry"
	"ctchen222/tictactoe-ai/internal/token"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a YAML config file; the environment is used when empty")
	flag.Parse()

	ctx := context.Background()
	cfg := config.MustLoad(*configPath)

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	logger.Init(cfg.Log.Level, cfg.Telemetry.Enabled)
	if logger.ParseLevel(cfg.Log.Level) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create storage and event fan-out
	var (
		repo   repository.SessionRepository
		broker events.Broker
	)
	switch cfg.Store {
	case config.StoreRedis:
		rdb, err := db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("failed to initialize redis: %v", err)
		}
		defer rdb.Close()
		repo = repository.NewRedisSessionRepository(rdb, cfg.Session.TTL)
		broker = events.NewRedisBroker(rdb)
	default:
		repo = repository.NewMemorySessionRepository(cfg.Session.TTL)
		broker = events.NewLocalBroker()
	}

	// Create services
	gameService, err := service.NewGameService(repo, broker, bot.NewSelector(nil), service.Options{
		DefaultSize:       cfg.Game.DefaultSize,
		MaxSize:           cfg.Game.MaxSize,
		DefaultDifficulty: bot.Difficulty(cfg.Game.DefaultDifficulty),
		BotDelay:          cfg.Game.AIDelay,
	})
	if err != nil {
		log.Fatalf("failed to create game service: %v", err)
	}

	// Create the Gin-based server
	srv := server.NewServer(gameService, broker, token.NewIssuer(cfg.Session.TokenSecret, cfg.Session.TokenTTL))

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("http server started", "http.addr", cfg.HTTP.Addr, "store", cfg.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}
