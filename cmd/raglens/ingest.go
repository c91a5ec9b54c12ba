package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raglens/raglens/internal/index"
	"github.com/raglens/raglens/internal/ingestion"
	"github.com/raglens/raglens/internal/metrics"
)

func newIngestCommand() *cobra.Command {
	var docsDir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build the index from a directory of HTML documents",
		Long: "Chunk every HTML document in a directory, embed the chunks, and " +
			"persist the resulting index to the configured index directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			processor := ingestion.NewProcessor(app.llm, app.cfg.Ingest.ChunkSize, app.cfg.Ingest.ChunkOverlap)

			corpus, err := processor.ProcessDirectory(cmd.Context(), docsDir)
			if err != nil {
				return fmt.Errorf("ingestion failed: %w", err)
			}

			if err := index.Save(app.cfg.Index.Dir, corpus); err != nil {
				return fmt.Errorf("failed to persist index: %w", err)
			}

			metrics.DocumentsIndexed.Add(float64(corpus.Len()))

			fmt.Printf("Indexed %d chunks into %s\n", corpus.Len(), app.cfg.Index.Dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&docsDir, "dir", "d", "", "Directory of HTML documents to ingest")
	cmd.MarkFlagRequired("dir")

	return cmd
}
