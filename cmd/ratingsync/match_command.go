package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/gearmatch/ratingsync/internal/infrastructure/report"
	"github.com/spf13/cobra"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "match <category> <name...>",
		Short: "Preview how a product name would match a category's catalog",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			names, err := cfg.ResolveCategories(args[:1])
			if err != nil {
				return err
			}
			category := names[0]
			name := strings.Join(args[1:], " ")

			service := ctx.newReconcileService(nil, ctx.newCatalogStore(), nil)
			result, err := service.PreviewMatch(cmd.Context(), category, name)
			if err != nil && !errors.Is(err, domain.ErrNoMatch) && !errors.Is(err, domain.ErrAmbiguousContainment) {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return report.Encode(out, result, report.FormatJSON)
			}

			threshold := service.Matcher().Threshold()
			if result.Matched() {
				fmt.Fprintf(out, "MATCH  %q -> %q (score %.4f, %s)\n", name, result.MatchedName, result.MatchScore, result.Reason)
				return nil
			}
			if result.BestCandidate == "" {
				fmt.Fprintf(out, "NONE   %q: catalog has no candidates\n", name)
				return nil
			}
			label := "NONE "
			if errors.Is(err, domain.ErrAmbiguousContainment) {
				label = "AMBIG"
			}
			fmt.Fprintf(out, "%s  %q: best %q scored %.4f (%s), threshold %.2f\n",
				label, name, result.BestCandidate, result.MatchScore, result.Reason, threshold)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the match result as JSON")

	return cmd
}
