package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raglens/raglens/internal/evaluation"
)

func newEvaluateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Judge the relevance of every recorded retrieval",
		Long: "Run the LLM relevance judge over every stored query's retrieved " +
			"contexts and print precision@k aggregates, split by user feedback.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			evaluator := evaluation.NewEvaluator(app.db, app.llm)

			report, err := evaluator.RunEvaluation(cmd.Context(), func(done, total int) {
				printProgressBar("Judging", done, total)
			})
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}
			fmt.Println()

			fmt.Print(evaluator.FormatReport(report))
			return nil
		},
	}
}

func printProgressBar(prefix string, completed, total int) {
	if total == 0 {
		return
	}

	width := 40
	fraction := float64(completed) / float64(total)
	filled := int(fraction * float64(width))

	bar := strings.Repeat("=", filled) + strings.Repeat("-", width-filled)
	fmt.Printf("\r%s: [%s] %d/%d", prefix, bar, completed, total)
}
