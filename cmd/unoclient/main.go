package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"unosync/internal/app"
	"unosync/internal/config"
	"unosync/internal/identity"
	"unosync/internal/logring"
	"unosync/internal/ports/nakama"
	"unosync/internal/storage"
	"unosync/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a JSON client config")
	logPath := flag.String("log", "unoclient.log", "file the diagnostic log is written to")
	flag.Parse()

	if err := config.LoadClientConfig(*configPath); err != nil {
		return err
	}
	cfg := config.GetClientConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logFile, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close() //nolint:errcheck

	buf := logring.NewBuffer(logring.NewSink(cfg.LogLevel, logFile))
	logger := logring.NewLogger(buf)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage, err)
	}
	defer store.Close() //nolint:errcheck

	syncer := app.NewSyncer(
		logger,
		identity.NewRegistry(store, nil),
		nakama.NewClient(cfg.BaseURL(), cfg.ServerKey),
		nakama.NewDialer(cfg.SocketURL(), logger),
		app.Options{
			TurnLimitSeconds: cfg.TurnLimitSeconds,
			DefaultMode:      cfg.DefaultGameMode,
		},
	)
	logger.Info("Server: %s", cfg.BaseURL())

	model := tui.NewModel(syncer, buf, cfg.DefaultGameMode)
	defer model.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncer.Run(gctx)
	})
	g.Go(func() error {
		defer stop()
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
		if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("tui error: %w", err)
		}
		return nil
	})
	return g.Wait()
}
