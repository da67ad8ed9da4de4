package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bayou-board/internal/config"
	"bayou-board/internal/database"
	"bayou-board/internal/engine"
	"bayou-board/internal/handlers"
	"bayou-board/internal/middleware"
	"bayou-board/internal/utils"
	"bayou-board/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewAdapter(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to initialize store", "type", cfg.Database.Type, "error", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())
	slog.Info("store initialized", "type", cfg.Database.Type)

	if pg, ok := db.(*database.PostgresDB); ok {
		if err := pg.InitializeTables(ctx); err != nil {
			slog.Error("failed to initialize tables", "error", err)
			os.Exit(1)
		}
	}

	metrics := utils.NewMetricsCollector()
	hub := websocket.NewHub()
	go hub.Run()

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, db, metrics, hub)

	tokens := middleware.NewTokenAuthority(cfg.JWTSecret)
	server := handlers.NewServer(system, eng, db, metrics, tokens, hub)

	mux := http.NewServeMux()
	server.RegisterRoutes(mux, middleware.DefaultCORSConfig(cfg.AllowedOrigins))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown incomplete", "error", err)
	}
	system.Shutdown()
}
