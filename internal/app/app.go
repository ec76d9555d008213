package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"aria-chat/backend/internal/api"
	"aria-chat/backend/internal/config"
	"aria-chat/backend/internal/database"
	"aria-chat/backend/internal/gateway"
	"aria-chat/backend/internal/repository"
	"aria-chat/backend/internal/service"
	"aria-chat/backend/internal/session"
)

// App holds the wired components of the server.
type App struct {
	Config   *config.Config
	Gateway  *gateway.Gateway
	Sessions *session.Manager
	Server   *http.Server
}

func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)

	logConfigSource(cfg)

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Serve(ctx); err != nil {
		slog.Error("Server failed", "error", err)
		return 1
	}
	return 0
}

// NewApp wires the store gateway, the session manager and the HTTP server.
// The store itself is opened lazily, on the first request that needs it.
func NewApp(cfg *config.Config) (*App, error) {
	open, err := opener(cfg)
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	gw := gateway.New(open, gateway.WithLogger(logger))
	sessions := session.NewManager(gw,
		session.WithFlushDelay(cfg.FlushDelay),
		session.WithLogger(logger),
	)
	sessionService := service.NewSessionService(sessions, gw, logger)
	router := api.NewRouter(api.NewConversationHandler(sessionService))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for event stream endpoints
		IdleTimeout:       120 * time.Second,
	}

	return &App{Config: cfg, Gateway: gw, Sessions: sessions, Server: server}, nil
}

// Serve runs the HTTP server until ctx is done, then shuts down: the
// server stops accepting requests, every session is flushed and the store
// worker is torn down.
func (a *App) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Starting server", "addr", a.Server.Addr, "store", a.Config.StoreBackend)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownGrace)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops the server, flushes all sessions and closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stopping server: %w", err))
	}
	if err := a.Sessions.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flushing sessions: %w", err))
	}
	if err := a.Gateway.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	return errors.Join(errs...)
}

// opener returns the gateway opener for the configured store backend.
func opener(cfg *config.Config) (gateway.Opener, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		repo := repository.Shared(repository.NewMemoryRepository())
		return func(context.Context) (repository.Repository, error) {
			return repo, nil
		}, nil

	case config.BackendSQLite:
		return func(context.Context) (repository.Repository, error) {
			db, err := database.InitDB(cfg.DatabasePath)
			if err != nil {
				return nil, err
			}
			slog.Info("Successfully connected to SQLite database.", "path", cfg.DatabasePath)
			return repository.NewSQLiteRepository(db), nil
		}, nil

	case config.BackendRedis:
		return func(context.Context) (repository.Repository, error) {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			slog.Info("Connecting to Redis.", "addr", cfg.RedisAddr)
			return repository.NewRedisRepository(rdb), nil
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func logConfigSource(cfg *config.Config) {
	if cfg.ConfigFile != "" {
		slog.Info("Successfully loaded configuration from file.", "file", cfg.ConfigFile)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
