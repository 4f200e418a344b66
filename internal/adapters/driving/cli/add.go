package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// addQueue is a flag for the add command.
var addQueue bool

var addCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Register a document for processing",
	Long: `Copies the file into managed storage and registers it in the library.
The document starts in the uploaded state; run "tessera process" or
"tessera queue" to push it through the pipeline.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().BoolVar(&addQueue, "queue", false, "queue the document for background processing after registering")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	path := args[0]
	ctx := context.Background()

	doc, err := libraryService.Add(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}

	cmd.Printf("Added document %s\n\n", doc.ID)
	cmd.Printf("  Filename: %s\n", doc.Filename)
	cmd.Printf("  Type:     %s\n", doc.ContentType)
	cmd.Printf("  Status:   %s\n", doc.Status)

	if addQueue {
		if pipelineService == nil {
			return errors.New("pipeline service not configured")
		}
		if err := pipelineService.Enqueue(ctx, doc.ID); err != nil {
			return fmt.Errorf("failed to queue document: %w", err)
		}
		cmd.Printf("\nDocument %s queued for processing.\n", doc.ID)
	}

	return nil
}
