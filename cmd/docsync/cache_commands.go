package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"docsync/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Analysis cache utilities",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheInvalidateCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache hit statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var stats cache.Stats
			if err := client.getJSON(cmd.Context(), "/api/cache/stats", &stats); err != nil {
				return err
			}

			rows := [][2]string{
				{"Entries", fmt.Sprintf("%d", stats.Entries)},
				{"Hits", fmt.Sprintf("%d", stats.Hits)},
				{"Misses", fmt.Sprintf("%d", stats.Misses)},
				{"Hit rate", fmt.Sprintf("%.1f%%", stats.HitRate*100)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues("analysis cache", rows))
			return nil
		},
	}
}

func newCacheInvalidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <path>",
		Short: "Drop the cached analysis for one path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			endpoint := "/api/cache/invalidate?path=" + url.QueryEscape(args[0])
			if err := client.postJSON(cmd.Context(), endpoint, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invalidated %s\n", args[0])
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.postJSON(cmd.Context(), "/api/cache/clear", nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cache cleared")
			return nil
		},
	}
}
