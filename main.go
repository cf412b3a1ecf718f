package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teilomillet/chatline/config"
	"github.com/teilomillet/chatline/errors"
	"github.com/teilomillet/chatline/server"
	"github.com/teilomillet/chatline/storage"
	"go.uber.org/zap"
)

// app is a fully wired server and the resources it owns.
type app struct {
	server  *server.Server
	logger  *zap.Logger
	watcher *config.ConfigWatcher
	store   storage.Store
}

func (a *app) Close() {
	if err := a.watcher.Close(); err != nil {
		a.logger.Warn("Failed to stop config watcher", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close storage", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// setup loads configPath and wires the server around it.
func setup(configPath string) (*app, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.Logging, cfg.Dev.Debug)
	if err != nil {
		return nil, err
	}
	errors.SetLogger(logger)
	cfg.CheckCredentials(logger)

	watcher, err := config.NewConfigWatcher(configPath, logger)
	if err != nil {
		return nil, fmt.Errorf("watch config: %w", err)
	}

	// The store is not rebuilt on reload; its driver is fixed at startup
	store, err := storage.Open(cfg.Storage)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	srv, err := server.NewServerWithConfig(server.Dependencies{
		Watcher: watcher,
		Store:   store,
		Logger:  logger,
	})
	if err != nil {
		watcher.Close()
		store.Close()
		return nil, err
	}

	return &app{server: srv, logger: logger, watcher: watcher, store: store}, nil
}

func main() {
	configPath := "chatline.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	a, err := setup(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Critical error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		a.logger.Info("Shutdown signal received",
			zap.String("action", "initiating graceful shutdown"),
		)
	}()

	if err := a.server.Start(ctx); err != nil {
		a.logger.Error("Server startup or runtime error",
			zap.Error(err),
			zap.String("config_path", configPath),
		)
		a.Close()
		os.Exit(1)
	}
}
