package main

import (
	"fmt"
	"io"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/gearmatch/ratingsync/internal/infrastructure/rtings"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newColumnsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "columns <category>",
		Short: "Compare configured usage codes with the columns the source offers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			names, err := cfg.ResolveCategories(args)
			if err != nil {
				return err
			}
			category := names[0]

			options, err := ctx.newSourceClient().FetchColumnOptions(cmd.Context(), category)
			if err != nil {
				return err
			}

			confirmed, missing, available := rtings.CompareColumns(options, cfg.Categories[category].Usages)

			out := cmd.OutOrStdout()
			writeColumns(out, "Confirmed", confirmed)
			writeColumns(out, "Configured but not offered", missing)
			writeColumns(out, "Other available", available)

			ctx.logger.Info().
				Str("category", category).
				Int("confirmed", len(confirmed)).
				Int("missing", len(missing)).
				Int("available", len(available)).
				Msg("column options compared")
			return nil
		},
	}
}

func writeColumns(w io.Writer, title string, columns []domain.ColumnOption) {
	fmt.Fprintf(w, "%s (%d):\n", title, len(columns))
	if len(columns) == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Code", "Name"})
	for _, column := range columns {
		tw.AppendRow(table.Row{column.Code, column.Name})
	}
	fmt.Fprintln(w, tw.Render())
}
