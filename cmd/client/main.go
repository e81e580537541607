package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/dispersed/internal/client/cli"
	"github.com/dmitrijs2005/dispersed/internal/client/config"
	"github.com/dmitrijs2005/dispersed/internal/client/state"
	"github.com/dmitrijs2005/dispersed/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	st, err := state.Open(ctx, *cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app := cli.NewApp(st, os.Stdin, os.Stdout, logger)
	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "client stopped", "error", err)
		os.Exit(1)
	}
}
