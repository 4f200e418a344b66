package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue [doc-id]",
	Short: "Queue a document for background processing",
	Long: `Marks a document for pickup by the worker. Valid for documents in the
uploaded, processed (reprocess), and failed (retry) states.`,
	Args: cobra.ExactArgs(1),
	RunE: runQueue,
}

func init() {
	rootCmd.AddCommand(queueCmd)
}

func runQueue(cmd *cobra.Command, args []string) error {
	if pipelineService == nil {
		return errors.New("pipeline service not configured")
	}

	docID := args[0]
	ctx := context.Background()

	if err := pipelineService.Enqueue(ctx, docID); err != nil {
		return fmt.Errorf("failed to queue document: %w", err)
	}

	cmd.Printf("Document %s queued for processing.\n", docID)
	return nil
}
