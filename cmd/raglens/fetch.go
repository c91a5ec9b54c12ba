package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/raglens/raglens/internal/dataset"
)

func newFetchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download the pre-built index and datasets",
		Long: "Download the zipped corpus index and the parquet review datasets " +
			"from the URLs in the artifacts config section.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			artifacts := app.cfg.Artifacts
			fetcher := dataset.NewFetcher()

			if artifacts.IndexArchiveURL == "" && artifacts.PrimaryDatasetURL == "" && artifacts.ReferenceDatasetURL == "" {
				return fmt.Errorf("no artifact URLs configured")
			}

			if artifacts.IndexArchiveURL != "" {
				if err := fetcher.FetchArchive(ctx, artifacts.IndexArchiveURL, app.cfg.Index.Dir); err != nil {
					return fmt.Errorf("failed to fetch index archive: %w", err)
				}
				fmt.Printf("Index extracted to %s\n", app.cfg.Index.Dir)
			}

			if artifacts.PrimaryDatasetURL != "" {
				dest := filepath.Join(artifacts.DownloadDir, "primary.parquet")
				if err := fetcher.FetchFile(ctx, artifacts.PrimaryDatasetURL, dest); err != nil {
					return fmt.Errorf("failed to fetch primary dataset: %w", err)
				}
				fmt.Printf("Primary dataset saved to %s\n", dest)
			}

			if artifacts.ReferenceDatasetURL != "" {
				dest := filepath.Join(artifacts.DownloadDir, "reference.parquet")
				if err := fetcher.FetchFile(ctx, artifacts.ReferenceDatasetURL, dest); err != nil {
					return fmt.Errorf("failed to fetch reference dataset: %w", err)
				}
				fmt.Printf("Reference dataset saved to %s\n", dest)
			}

			return nil
		},
	}
}
