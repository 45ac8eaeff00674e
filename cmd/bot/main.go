package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fetchbot/internal/app"
	"fetchbot/pkg/logger"
)

func main() {
	a, err := app.New()
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}

	if a.Cfg.BotToken == "" {
		logger.Error("FETCHBOT_BOT_TOKEN is not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down...")
		cancel()
	}()

	if err := a.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Bot stopped", "error", err)
		os.Exit(1)
	}
}
