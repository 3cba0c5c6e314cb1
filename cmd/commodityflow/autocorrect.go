package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sourcewise/commodityflow/internal/engine"
	"github.com/sourcewise/commodityflow/internal/enrich"
	"github.com/sourcewise/commodityflow/internal/report"
	"github.com/sourcewise/commodityflow/internal/service"
)

func autocorrectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "autocorrect <batch-id>",
		Short: "Re-examine a batch's highest-value rows with the reasoning service",
		Long: `Select the batch's top rows by usage x minimum price, ask the reasoning
service to double-check each classification, apply confident corrections,
and regenerate the output artifact when anything changed.`,
		Args: cobra.ExactArgs(1),
		RunE: runAutocorrect,
	}
}

func runAutocorrect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	batchID := args[0]

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	classifier, err := buildClassifyEngine(ctx, store)
	if err != nil {
		return err
	}

	source, closeSource, err := initAuxSource(ctx)
	if err != nil {
		return err
	}
	defer closeSource()

	processor := engine.NewProcessor(store, classifier, enrich.NewBuilder(source), report.NewExcelWriter())
	job := engine.NewAutoCorrectionJob(store, classifier, processor)

	stats, err := job.Run(ctx, batchID)
	if err != nil {
		return err
	}

	fmt.Println(renderCorrectionSummary(batchID, stats))
	return nil
}

func renderCorrectionSummary(batchID string, stats service.CorrectionStats) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	changed := lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	lines := []string{
		title.Render("Auto-correction finished"),
		fmt.Sprintf("%s %s", label.Render("Batch:"), batchID),
		fmt.Sprintf("%s %d analyzed, %d applied, %d failed",
			label.Render("Outcomes:"), len(stats.Outcomes), stats.Applied, stats.Failed),
	}
	for _, outcome := range stats.Outcomes {
		if !outcome.Applied {
			continue
		}
		lines = append(lines, changed.Render(
			fmt.Sprintf("  %s: %s -> %s", outcome.ItemCode, outcome.OldCommodity, outcome.NewCommodity)))
	}
	if stats.Regenerated {
		lines = append(lines, label.Render("Artifact regenerated with corrected classifications"))
	}
	if stats.SlowestRowID != 0 {
		lines = append(lines, fmt.Sprintf("%s row %d (%s)",
			label.Render("Slowest:"), stats.SlowestRowID, stats.Slowest.Round(time.Millisecond)))
	}
	lines = append(lines, fmt.Sprintf("%s %s",
		label.Render("Duration:"), stats.Duration.Round(time.Millisecond)))

	block := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	return block.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
