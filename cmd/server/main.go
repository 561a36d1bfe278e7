package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ctchen222/rally-tracker/internal/api/controller"
	"ctchen222/rally-tracker/internal/api/service"
	"ctchen222/rally-tracker/internal/config"
	"ctchen222/rally-tracker/internal/db"
	"ctchen222/rally-tracker/internal/hub"
	"ctchen222/rally-tracker/internal/logger"
	"ctchen222/rally-tracker/internal/repository"
	"ctchen222/rally-tracker/internal/room"
	"ctchen222/rally-tracker/internal/server"
	"ctchen222/rally-tracker/internal/telemetry"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()
	logger.Init(cfg.LogLevel, cfg.OtelEnabled)
	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	// Initialize SQLite DB
	sqlDB, err := db.Connect(ctx, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open sqlite db: %v", err)
	}
	defer sqlDB.Close()
	if err := db.InitializeDB(ctx, sqlDB); err != nil {
		log.Fatalf("failed to initialize sqlite db: %v", err)
	}

	// Create repositories
	snapshotRepo := repository.NewSnapshotRepository(rdb, cfg.SnapshotTTL)
	matchRepo := repository.NewMatchRepository(sqlDB)
	eventBus := repository.NewEventBus(rdb)

	// Create hub and resume the matches left open by a previous run
	h := hub.NewHub(room.Deps{Snapshots: snapshotRepo, Matches: matchRepo, Publisher: eventBus})
	go h.Run(ctx)
	if n, err := h.Resume(ctx); err != nil {
		slog.WarnContext(ctx, "failed to resume matches", "error", err)
	} else {
		slog.InfoContext(ctx, "matches resumed", "rooms.count", n)
	}

	// Create services and controllers
	matchService := service.NewMatchService(h, matchRepo)
	matchController := controller.NewMatchController(matchService)

	srv, err := server.NewServer(h, eventBus, matchController)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("http server started", "http.addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}
