package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/eumgrid/internal/logging"
	"github.com/dmitrijs2005/eumgrid/internal/server"
	"github.com/dmitrijs2005/eumgrid/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	app, err := server.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := app.Run(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
