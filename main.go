package main

import (
	"context"
	"os"

	"github.com/ihzhatamamy/indah-bermasyarakat-be/config"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/api"
	"github.com/ihzhatamamy/indah-bermasyarakat-be/internal/logging"
)

func main() {
	cfg := config.LoadConfig()
	log := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		log.Error(context.Background(), "invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := api.StartServer(cfg, log); err != nil {
		log.Error(context.Background(), "server exited", "error", err)
		os.Exit(1)
	}
}
