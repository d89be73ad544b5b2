package main

import (
	"flag"

	"go.uber.org/fx"

	"github.com/nhle/foodshare-desk/internal/mockserver"
	"github.com/nhle/foodshare-desk/internal/model"
)

// main runs the development mock server until interrupted.
func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to config.yaml")
	flag.Parse()

	fx.New(
		fx.Supply(mockserver.ConfigPath(*configPath)),
		mockserver.Module,
	).Run()
}
