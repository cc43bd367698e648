package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "github.com/drover-io/drover"
	"github.com/drover-io/drover/internal/archive"
	"github.com/drover-io/drover/internal/config"
	"github.com/drover-io/drover/internal/engine"
	"github.com/drover-io/drover/internal/events"
	"github.com/drover-io/drover/internal/server"
	"github.com/drover-io/drover/internal/store"
	"github.com/drover-io/drover/internal/sweeper"
	"github.com/drover-io/drover/pkg/log"
)

type drover struct {
	cfg        *config.Config
	store      *store.RedisStore
	hub        *events.Hub
	archiver   *archive.BlobArchiver
	engine     *engine.Engine
	sweeper    *sweeper.Sweeper
	apiServer  *server.Server
	httpServer *http.Server
	quit       chan os.Signal
}

var (
	ErrCreateStore    = errors.New("failed to create flow store")
	ErrCreateArchiver = errors.New("failed to create flow archiver")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &drover{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *drover) run() error {
	ctx := context.Background()

	if err := s.initializeStores(ctx); err != nil {
		return err
	}

	s.initializeEngine()
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *drover) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Drover starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("redis_addr", s.cfg.Store.Addr),
		slog.Int("redis_db", s.cfg.Store.DB),
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort),
		slog.Duration("default_flow_timeout", s.cfg.DefaultFlowTimeout),
		slog.Duration("sweep_interval", s.cfg.SweepInterval))
}

func (s *drover) initializeStores(ctx context.Context) error {
	var err error

	s.store, err = store.NewRedisStore(ctx, s.cfg.Store)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCreateStore, err)
	}

	if s.cfg.ArchiveBucketURL != "" {
		s.archiver, err = archive.NewBlobArchiver(
			ctx, s.cfg.ArchiveBucketURL, s.cfg.ArchivePrefix,
		)
		if err != nil {
			_ = s.store.Close()
			return fmt.Errorf("%w: %w", ErrCreateArchiver, err)
		}
	}

	return nil
}

func (s *drover) initializeEngine() {
	s.hub = events.NewHub()

	deps := engine.Dependencies{
		Store: s.store,
		Hub:   s.hub,
	}
	if s.archiver != nil {
		deps.Archiver = s.archiver
	}
	s.engine = engine.New(s.cfg, deps)

	s.sweeper = sweeper.New(s.engine, s.cfg.SweepInterval)
	s.sweeper.Start()
}

func (s *drover) startServer() {
	s.apiServer = server.NewServer(s.engine, s.hub, s.store)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *drover) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.sweeper.Stop()
	s.hub.Close()

	if s.archiver != nil {
		if err := s.archiver.Close(); err != nil {
			slog.Error("Archiver shutdown failed", log.Error(err))
		}
	}

	if err := s.store.Close(); err != nil {
		slog.Error("Store shutdown failed", log.Error(err))
	}

	slog.Info("Server exited")
}
