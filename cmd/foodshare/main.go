package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/foodshare-desk/internal/app"
	"github.com/nhle/foodshare-desk/internal/logger"
	"github.com/nhle/foodshare-desk/internal/model"
	"github.com/nhle/foodshare-desk/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "foodshare:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config.yaml")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	log, closer, err := logger.NewFile(cfg.Log, "foodshare")
	if err != nil {
		return err
	}
	defer closer.Close()

	s, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening activity store: %w", err)
	}
	defer s.Close()

	log.Info().Str("config", *configPath).Msg("starting")

	p := tea.NewProgram(app.New(app.Options{
		Config:     cfg,
		ConfigPath: *configPath,
		Store:      s,
		Logger:     log,
	}), tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	log.Info().Msg("stopped")
	return nil
}
