package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raglens/raglens/internal/retrieval"
)

func newQueryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a single question over the indexed corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			corpus, err := app.loadCorpus()
			if err != nil {
				return err
			}

			searcher, err := app.searcher(cmd.Context(), corpus)
			if err != nil {
				return err
			}

			engine := retrieval.NewEngine(app.db, searcher, app.llm, app.llm, app.cfg.Vector.TopK)

			response, err := engine.ProcessQuery(cmd.Context(), retrieval.QueryRequest{Query: args[0]})
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			fmt.Println(response.Response)
			fmt.Println()
			fmt.Printf("Query ID: %s (%dms)\n", response.ID, response.LatencyMS)
			for _, retrieved := range response.Contexts {
				preview := retrieved.Text
				if len(preview) > 120 {
					preview = preview[:120] + "..."
				}
				preview = strings.ReplaceAll(preview, "\n", " ")
				fmt.Printf("  [%d] score=%.3f %s\n", retrieved.Rank, retrieved.Score, preview)
			}

			return nil
		},
	}
}
