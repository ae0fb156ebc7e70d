package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"docsync/internal/config"
	"docsync/internal/pipeline"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "Analyze one file and print the extracted facts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			pipe, err := pipeline.New(cfg, nil)
			if err != nil {
				return err
			}
			outcome, err := pipe.GetAnalysis(cmd.Context(), path)
			if err != nil {
				return err
			}

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(outcome)
			}

			result := outcome.Result
			rows := [][2]string{
				{"Analyzer", outcome.Analyzer},
				{"Completeness", fmt.Sprintf("%.2f", outcome.Completeness)},
				{"Functions", fmt.Sprintf("%d", len(result.Functions))},
				{"Classes", fmt.Sprintf("%d", len(result.Classes))},
				{"Interfaces", fmt.Sprintf("%d", len(result.Interfaces))},
				{"Imports", fmt.Sprintf("%d", len(result.Imports))},
				{"Endpoints", fmt.Sprintf("%d", len(result.APIEndpoints))},
				{"Todos", fmt.Sprintf("%d", len(result.Todos))},
			}
			if len(outcome.FallbacksUsed) > 0 {
				rows = append(rows, [2]string{"Fallbacks", strings.Join(outcome.FallbacksUsed, ", ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues(path, rows))

			if outcome.Partial() {
				fmt.Fprintln(cmd.OutOrStdout(), "note: incomplete analysis; results may be missing facts")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the full outcome as JSON")
	return cmd
}
