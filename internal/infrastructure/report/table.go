package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gearmatch/ratingsync/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Listing limits for the detail sections of a category.
const (
	MaxFuzzyListed     = 20
	MaxUnmatchedListed = 15
)

// Render formats a run summary as an overview table followed by each
// category's accepted fuzzy matches and unmatched names.
func Render(summary *domain.RunSummary) string {
	if summary == nil {
		return ""
	}

	order := categoryOrder(summary)
	caser := cases.Title(language.English)

	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n", summary.RunID)
	b.WriteString(overviewTable(summary, order, caser))
	b.WriteString("\n")

	for _, category := range order {
		report := summary.Categories[category]
		if report == nil || report.Failed() {
			continue
		}
		writeDetails(&b, caser.String(category), report)
	}

	return b.String()
}

// categoryOrder returns the run order, or sorted names when it is unknown
func categoryOrder(summary *domain.RunSummary) []string {
	if len(summary.Order) > 0 {
		return summary.Order
	}
	order := make([]string, 0, len(summary.Categories))
	for name := range summary.Categories {
		order = append(order, name)
	}
	sort.Strings(order)
	return order
}

func overviewTable(summary *domain.RunSummary, order []string, caser cases.Caser) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Category", "Raw", "Usable", "Matched", "Unmatched", "Catalog", "With Scores", "Status"})

	for _, category := range order {
		report := summary.Categories[category]
		if report == nil {
			continue
		}
		if report.Failed() {
			tw.AppendRow(table.Row{caser.String(category), "", "", "", "", "", "", "ERROR: " + report.Error})
			continue
		}
		tw.AppendRow(table.Row{
			caser.String(category),
			report.RawProducts,
			report.Usable,
			fmt.Sprintf("%d/%d", report.Matched, report.Usable),
			report.Unmatched,
			report.TotalCatalog,
			fmt.Sprintf("%d/%d", report.WithScores, report.TotalCatalog),
			"ok",
		})
	}

	configs := make([]table.ColumnConfig, 0, 6)
	for i := 2; i <= 7; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func writeDetails(b *strings.Builder, title string, report *domain.CategoryReport) {
	if len(report.FuzzyMatches) > 0 {
		fmt.Fprintf(b, "\n%s fuzzy matches (%d):\n", title, len(report.FuzzyMatches))

		tw := table.NewWriter()
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"Source Name", "Catalog Name", "Score", "Reason"})
		for i, match := range report.FuzzyMatches {
			if i == MaxFuzzyListed {
				break
			}
			tw.AppendRow(table.Row{match.ExternalName, match.CatalogName, fmt.Sprintf("%.2f", match.Score), string(match.Reason)})
		}
		tw.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
		b.WriteString(tw.Render())
		b.WriteString("\n")
		writeMore(b, len(report.FuzzyMatches)-MaxFuzzyListed)
	}

	if len(report.UnmatchedNames) > 0 {
		fmt.Fprintf(b, "\n%s unmatched (%d):\n", title, len(report.UnmatchedNames))
		for i, name := range report.UnmatchedNames {
			if i == MaxUnmatchedListed {
				break
			}
			if d, ok := report.Decision(name); ok && d.BestCandidate != "" {
				fmt.Fprintf(b, "  %s (closest: %s, %.2f %s)\n", name, d.BestCandidate, d.MatchScore, d.Reason)
				continue
			}
			fmt.Fprintf(b, "  %s\n", name)
		}
		writeMore(b, len(report.UnmatchedNames)-MaxUnmatchedListed)
	}
}

func writeMore(b *strings.Builder, hidden int) {
	if hidden > 0 {
		fmt.Fprintf(b, "  ... and %d more\n", hidden)
	}
}

// RenderHistory formats stored reports, newest first.
func RenderHistory(entries []domain.HistoryEntry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Completed", "Run", "Category", "Matched", "With Scores", "Status"})

	for _, entry := range entries {
		report := entry.Report
		if report == nil {
			continue
		}
		status := "ok"
		if report.Failed() {
			status = "ERROR: " + report.Error
		}
		completed := ""
		if !report.CompletedAt.IsZero() {
			completed = report.CompletedAt.Local().Format("2006-01-02 15:04")
		}
		tw.AppendRow(table.Row{
			completed,
			shortID(entry.RunID),
			report.Category,
			fmt.Sprintf("%d/%d", report.Matched, report.Usable),
			fmt.Sprintf("%d/%d", report.WithScores, report.TotalCatalog),
			status,
		})
	}

	return tw.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
