package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "raglens",
		Short: "Retrieval evaluation and embedding drift analysis for RAG pipelines",
		Long: "raglens indexes a document corpus, answers questions over it, " +
			"judges the relevance of what it retrieved with an LLM, and exposes " +
			"centered embedding datasets for drift visualization.",
	}

	rootCmd.AddCommand(newFetchCommand())
	rootCmd.AddCommand(newIngestCommand())
	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(newEvaluateCommand())
	rootCmd.AddCommand(newServeCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
