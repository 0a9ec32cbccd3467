package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/expense-api/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run serves until SIGINT or SIGTERM, then drains within the configured
// shutdown timeout.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Finalize(); err != nil {
		return fmt.Errorf("finalize config: %w", err)
	}

	svc, err := NewService(cfg)
	if err != nil {
		return fmt.Errorf("init service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(); err != nil {
		svc.Shutdown(cfg.ShutdownTimeoutDuration())
		return fmt.Errorf("start service: %w", err)
	}

	<-ctx.Done()
	stop()

	return svc.Shutdown(cfg.ShutdownTimeoutDuration())
}
