// Command bskygraph is the single entrypoint for the ingestion pipeline,
// its lean backfill-only HTTP variant, and the feed-generator publishing
// tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bskygraph",
	Short: "bskygraph - Bluesky firehose-to-graph ingestion pipeline",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
