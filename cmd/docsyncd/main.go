package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"docsync/internal/config"
	"docsync/internal/daemon"
	"docsync/internal/logging"
	"docsync/internal/pipeline"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogFilePath()},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	pipe, err := pipeline.New(cfg, logger)
	if err != nil {
		logger.Error("create pipeline", logging.Error(err))
		return
	}

	d, err := daemon.New(cfg, pipe, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("docsyncd shutting down")
}
