// Command worker consumes audit events from RabbitMQ and appends them to
// the audit log file.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/hybrid-auth/internal/config"
	"github.com/iliyamo/hybrid-auth/internal/logging"
	"github.com/iliyamo/hybrid-auth/internal/queue"
)

func main() {
	log := logging.New(os.Stdout, os.Getenv("APP_ENV"))
	ac := config.LoadAuditConfig()
	if ac.URL == "" {
		log.Error(context.Background(), "RABBITMQ_URL is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: ac.URL, Queue: ac.Queue, LogPath: ac.LogPath, Log: log}
	log.Info(ctx, "audit worker started", "queue", ac.Queue, "path", ac.LogPath)
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error(ctx, "audit worker stopped", "err", err)
		os.Exit(1)
	}
}
