package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkframe/internal/actions"
	"inkframe/internal/config"
	"inkframe/internal/gateway"
	"inkframe/internal/handlers"
	"inkframe/internal/middleware"
	"inkframe/internal/session"
	"inkframe/internal/state"
	"inkframe/internal/storage"
	"inkframe/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Debug)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := gateway.NewMongoDB(cfg.Database.URI, cfg.Database.Name)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := db.Close(shutdownCtx); err != nil {
			slog.Error("error closing MongoDB connection", "error", err)
		}
	}()

	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	objects, media, err := buildObjectStore(cfg, db)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	metrics := utils.NewMetricsCollector()

	system := actor.NewActorSystem()
	postPID := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return state.NewPostListActor(state.DefaultPageSize)
	}))
	commentPID := system.Root.Spawn(actor.PropsFromProducer(state.NewCommentListActor))

	auth := gateway.NewAuthService(db, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	sessionStore := session.NewStore(ctx, auth)
	defer sessionStore.Close()
	removeWatcher := sessionStore.OnChange(func(snap session.Snapshot) {
		slog.Info("session state changed", "authenticated", snap.Authenticated())
	})
	defer removeWatcher()

	server := handlers.NewServer(
		db,
		auth,
		actions.NewPostActions(db, system.Root, postPID, metrics),
		actions.NewCommentActions(db, system.Root, commentPID, metrics),
		sessionStore,
		objects,
		media,
		metrics,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(middleware.DefaultCORSConfig(cfg.AllowedOrigins)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr, "storage", cfg.Storage.Backend)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

// setupLogging installs a tinted slog handler as the default, so both
// slog calls and the stdlib log package end up in the same stream.
func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
}

func buildObjectStore(cfg *config.Config, db *gateway.MongoDB) (storage.ObjectStore, *storage.GridFSStore, error) {
	switch cfg.Storage.Backend {
	case "cloudinary":
		store, err := storage.NewCloudinaryStore(cfg.Storage.CloudinaryURL)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	default:
		store := storage.NewGridFSStore(db.Database(), cfg.Server.PublicBaseURL)
		return store, store, nil
	}
}
