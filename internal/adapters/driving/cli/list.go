package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

// listJSON is a flag for the list command.
var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output documents as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	ctx := context.Background()

	docs, err := libraryService.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if listJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("No documents registered.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    File:    %s (%s)\n", docs[i].Filename, docs[i].ContentType)
		cmd.Printf("    Status:  %s\n", docs[i].Status)
		if docs[i].Status == domain.StatusFailed && docs[i].Failure != "" {
			cmd.Printf("    Failure: %s\n", docs[i].Failure)
		}
		if docs[i].ChunkCount > 0 {
			cmd.Printf("    Chunks:  %d\n", docs[i].ChunkCount)
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}
