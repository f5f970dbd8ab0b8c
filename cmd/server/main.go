package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/procrastinator/internal/api"
	"github.com/example/procrastinator/internal/app"
	"github.com/example/procrastinator/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)
	if cfg.File != "" {
		logger.Printf("config from %s", cfg.File)
	}
	logger.Printf("data dir %s", cfg.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := api.NewServer(api.Deps{
		Orchestrator: a.Orchestrator,
		Generator:    a.Generator,
		Logger:       logger,
		CORSOrigins:  cfg.CORSOrigins,
	})
	return api.Serve(ctx, cfg.Addr(), srv.Handler(), logger)
}
