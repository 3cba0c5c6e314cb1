package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/sourcewise/commodityflow/internal/engine"
	"github.com/sourcewise/commodityflow/internal/enrich"
	"github.com/sourcewise/commodityflow/internal/report"
	"github.com/sourcewise/commodityflow/internal/service"
)

func processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <batch-id>",
		Short: "Classify and enrich an imported batch",
		Long: `Run the full pipeline for a batch: classify every row against the
reference catalog, enrich with quote history, cross-references, demand and
pricing, compute EAR and threshold status, and write the Excel artifact.`,
		Args: cobra.ExactArgs(1),
		RunE: runProcess,
	}
}

func runProcess(cmd *cobra.Command, args []string) error {
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

	var bar *progressbar.ProgressBar
	processor.OnProgress(func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Classifying rows..."),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetWidth(40),
			)
		}
		_ = bar.Set(done)
	})

	outPath := artifactPath(batchID)
	stats, err := processor.Process(ctx, batchID, outPath)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return err
	}

	fmt.Println(renderBatchSummary(batchID, outPath, stats))
	return nil
}

func renderBatchSummary(batchID, outPath string, stats service.BatchStats) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	lines := []string{
		title.Render("Batch completed"),
		fmt.Sprintf("%s %s", label.Render("Batch:"), batchID),
		fmt.Sprintf("%s %d (%d skipped)", label.Render("Rows:"), stats.TotalRows, stats.SkippedRows),
		fmt.Sprintf("%s %d in scope, %d out of scope", label.Render("Scope:"), stats.InScope, stats.OutOfScope),
		fmt.Sprintf("%s $%.2f (%d rows above threshold)", label.Render("Total EAR:"), stats.TotalEAR, stats.AboveThreshold),
		fmt.Sprintf("%s %s", label.Render("Artifact:"), outPath),
		fmt.Sprintf("%s %s", label.Render("Duration:"), stats.Duration.Round(time.Millisecond).String()),
	}

	block := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)
	return block.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
