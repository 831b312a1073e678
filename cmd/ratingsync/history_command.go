package main

import (
	"fmt"

	"github.com/gearmatch/ratingsync/internal/infrastructure/history"
	"github.com/gearmatch/ratingsync/internal/infrastructure/report"
	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "history [category]",
		Short: "List recent category reports",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("run history is disabled (history.enabled)")
			}

			var category string
			if len(args) == 1 {
				names, err := cfg.ResolveCategories(args)
				if err != nil {
					return err
				}
				category = names[0]
			}

			format, err := report.ParseFormat(formatFlag)
			if err != nil {
				return err
			}

			store, err := history.Open(cmd.Context(), cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			entries, err := store.ListReports(cmd.Context(), category, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == report.FormatTable {
				fmt.Fprintln(out, report.RenderHistory(entries))
				return nil
			}
			return report.Encode(out, entries, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "Maximum number of reports")
	cmd.Flags().StringVar(&formatFlag, "format", "table", "Output format: table, json or yaml")

	return cmd
}
