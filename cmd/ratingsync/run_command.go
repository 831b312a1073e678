package main

import (
	"fmt"
	"strings"

	"github.com/gearmatch/ratingsync/internal/infrastructure/report"
	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var formatFlag string
	var strict bool
	var refresh bool

	cmd := &cobra.Command{
		Use:   "run [category...]",
		Short: "Fetch ratings and merge them into the catalog files",
		Long: "Fetch ratings for each category (all configured categories when none are given), " +
			"match them against the catalog and write the scores back. A summary is printed and " +
			"written to the report path.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			names, err := cfg.ResolveCategories(args)
			if err != nil {
				return err
			}

			path := outputPath
			if path == "" {
				path = cfg.Report.Path
			}
			if formatFlag == "" {
				formatFlag = cfg.Report.Format
			}
			format, err := report.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			format = report.FormatForPath(path, format)

			store, err := ctx.openStateStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			if store != nil {
				defer store.Close()
			}

			provider, snapshots := ctx.newProvider(store)
			if refresh && snapshots != nil {
				for _, name := range names {
					if err := snapshots.Invalidate(cmd.Context(), name); err != nil {
						return fmt.Errorf("refresh %s: %w", name, err)
					}
				}
			}

			service := ctx.newReconcileService(provider, ctx.newCatalogStore(), store)
			summary, err := service.RunAll(cmd.Context(), ctx.categorySpecs(names))
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), report.Render(summary))

			if path != "" && path != "-" {
				if format == report.FormatTable {
					format = report.FormatJSON
				}
				if err := report.WriteFile(path, summary, format); err != nil {
					return fmt.Errorf("write summary: %w", err)
				}
				ctx.logger.Info().Str("path", path).Msg("summary written")
			}

			var failed []string
			for _, name := range summary.Order {
				if summary.Categories[name].Failed() {
					failed = append(failed, name)
				}
			}
			if strict && len(failed) > 0 {
				return fmt.Errorf("categories failed: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Summary file path (defaults to report.path, - to skip)")
	cmd.Flags().StringVar(&formatFlag, "format", "", "Summary file format: json or yaml (defaults to report.format)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any category fails")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached snapshots and fetch fresh data")

	return cmd
}
