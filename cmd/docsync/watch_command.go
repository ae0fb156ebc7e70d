package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docsync/internal/logging"
	"docsync/internal/pipeline"
)

// newWatchCommand runs the analysis pipeline in the foreground without
// daemonizing: no lock file, no API server, logs to the terminal.
func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch configured directories and analyze changes in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			pipe, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := pipe.Start(runCtx); err != nil {
				return err
			}
			defer pipe.Stop()

			logger.Info("watching for changes",
				logging.Int("watch_dirs", len(cfg.Paths.WatchDirs)))
			<-runCtx.Done()
			return nil
		},
	}
}
