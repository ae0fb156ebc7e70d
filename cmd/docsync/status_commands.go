package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docsync/internal/daemon"
	"docsync/internal/pipeline"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var status daemon.Status
			if err := client.getJSON(cmd.Context(), "/api/status", &status); err != nil {
				return err
			}

			rows := [][2]string{
				{"Running", fmt.Sprintf("%v", status.Running)},
				{"PID", fmt.Sprintf("%d", status.PID)},
				{"Watch dirs", strings.Join(status.WatchDirs, ", ")},
				{"Cache DB", status.CacheDBPath},
				{"Lock file", status.LockFilePath},
				{"Processed", fmt.Sprintf("%d", status.Metrics.Processed)},
				{"Partial", fmt.Sprintf("%d", status.Metrics.Partial)},
				{"Failed", fmt.Sprintf("%d", status.Metrics.Failed)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues("docsync daemon", rows))
			return nil
		},
	}
}

func newMetricsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show pipeline metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var metrics pipeline.Metrics
			if err := client.getJSON(cmd.Context(), "/api/metrics", &metrics); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues("pipeline metrics", metricsRows(metrics)))
			return nil
		},
	}
}

func metricsRows(m pipeline.Metrics) [][2]string {
	return [][2]string{
		{"Avg analysis time", fmt.Sprintf("%.1f ms", m.AnalysisTimeMs)},
		{"Cache hit rate", fmt.Sprintf("%.1f%%", m.CacheHitRate*100)},
		{"Active analyses", fmt.Sprintf("%d", m.ActiveAnalysisCount)},
		{"Memory usage", fmt.Sprintf("%.1f MB", m.MemoryUsageMB)},
		{"Queue depth", fmt.Sprintf("%d", m.QueueDepth)},
		{"Processed", fmt.Sprintf("%d", m.Processed)},
		{"Partial", fmt.Sprintf("%d", m.Partial)},
		{"Failed", fmt.Sprintf("%d", m.Failed)},
		{"Cache entries", fmt.Sprintf("%d", m.CacheEntries)},
	}
}
