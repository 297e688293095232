package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/eumgrid/internal/client/cli"
	"github.com/dmitrijs2005/eumgrid/internal/client/config"
	"github.com/dmitrijs2005/eumgrid/internal/flagx"
	"github.com/dmitrijs2005/eumgrid/internal/logging"
)

func main() {
	args := os.Args[1:]

	cfg, err := config.LoadConfig(args)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	app, err := cli.NewApp(cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, flagx.StripArgs(args, config.Flags)); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
