package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tsirk/internal/config"
	"tsirk/internal/consumers"
	"tsirk/internal/logger"
)

func main() {
	cfg := config.Load()
	cfg.NATS.ClientID = "tsirk-consumers"
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	service, err := consumers.NewConsumerService(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize consumers", "error", err)
	}

	if err := service.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	logger.Get().Info("Consumers running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Get().Info("Shutting down consumers")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	service.Shutdown(ctx)

	logger.Get().Info("Consumers stopped")
}
