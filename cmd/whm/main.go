package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aitteam/whm/internal/backend"
	"github.com/aitteam/whm/internal/backend/local"
	"github.com/aitteam/whm/internal/backend/pocketbase"
	"github.com/aitteam/whm/internal/cli"
	"github.com/aitteam/whm/internal/config"
	"github.com/aitteam/whm/internal/db"
	"github.com/aitteam/whm/internal/repository"
	"github.com/aitteam/whm/internal/service"
	"github.com/aitteam/whm/internal/session"
	"github.com/mattn/go-isatty"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file.
	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	app := &cli.App{Config: cfg, Logger: logger}

	// Wire the backend
	switch cfg.Mode {
	case config.ModeLocal:
		database, err := db.OpenDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		opts := []local.Option{local.WithLogger(logger)}
		if cfg.JWTSecret != "" {
			opts = append(opts, local.WithSecret([]byte(cfg.JWTSecret)))
		}
		if cfg.GoogleClientID != "" {
			opts = append(opts, local.WithOAuthProvider(local.GoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret)))
		}
		b, err := local.New(database, opts...)
		if err != nil {
			return fmt.Errorf("starting local backend: %w", err)
		}
		app.Local = b
		app.Factory = b.Factory()
	default:
		pbCfg := pocketbase.Config{BaseURL: cfg.BackendURL, Timeout: cfg.HTTPTimeout, Logger: logger}
		factory, err := pocketbase.Factory(pbCfg)
		if err != nil {
			return err
		}
		app.Factory = factory
	}
	client := app.Factory()
	defer closeClient(client)
	app.Client = client

	store, err := session.Open(session.NewFileStorage(cfg.StoragePath))
	if err != nil {
		return fmt.Errorf("opening session storage: %w", err)
	}
	app.Session = store

	// Wire repositories and services
	observer := service.NewSlogUseCaseObserver(logger)
	app.Auth = service.NewAuthService(client, store, service.OAuthConfig{
		Port:        cfg.OAuthPort,
		OpenBrowser: service.OpenBrowser,
	}, observer)
	app.Projects = service.NewProjectService(repository.NewBackendProjectRepo(client), observer)
	app.Tasks = service.NewTaskService(repository.NewBackendTaskRepo(client), observer)
	app.Works = service.NewWorkService(repository.NewBackendWorkRepo(client), store, observer)
	app.Users = service.NewUserService(repository.NewBackendUserRepo(client), observer)

	// Detect interactive terminal for the TUI entrypoint.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	return cli.NewRootCmd(app).Execute()
}

func openLogger(cfg config.Config) (*slog.Logger, func(), error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	if cfg.LogPath == "" || cfg.LogPath == "-" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { f.Close() }, nil
}

func closeClient(c backend.Client) {
	if closer, ok := c.(interface{ Close() }); ok {
		closer.Close()
	}
}
