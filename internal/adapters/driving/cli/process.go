package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

// processJSON is a flag for the process command.
var processJSON bool

var processCmd = &cobra.Command{
	Use:   "process [doc-id]",
	Short: "Run the processing pipeline for a document",
	Long: `Extracts, segments, embeds, and clusters a registered document,
replacing any chunks from a previous run. On failure the document is left
in the failed state with the cause recorded; rerun to retry.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().BoolVar(&processJSON, "json", false, "output the run report as JSON")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	if pipelineService == nil {
		return errors.New("pipeline service not configured")
	}

	docID := args[0]
	ctx := context.Background()

	if !processJSON {
		cmd.Printf("Processing document %s...\n", docID)
	}

	// Walk the document to queued first; the pipeline only accepts queued
	// documents. An already queued document rejects the no-op transition.
	if err := pipelineService.Enqueue(ctx, docID); err != nil && !errors.Is(err, domain.ErrInvalidStatus) {
		return fmt.Errorf("processing failed: %w", err)
	}

	result, err := pipelineService.Process(ctx, docID)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	if processJSON {
		return printJSON(cmd, result)
	}

	cmd.Println()
	cmd.Printf("  Status:   %s\n", result.Status)
	cmd.Printf("  Chunks:   %d\n", result.Chunks)
	cmd.Printf("  Clusters: %d (%s, %s tier)\n",
		result.Report.Clusters, result.Report.Method, result.Report.Tier)
	cmd.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	return nil
}
