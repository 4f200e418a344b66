package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

// chunksJSON is a flag for the chunks command.
var chunksJSON bool

var chunksCmd = &cobra.Command{
	Use:   "chunks [doc-id]",
	Short: "Show a document's chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunks,
}

func init() {
	chunksCmd.Flags().BoolVar(&chunksJSON, "json", false, "output chunks as JSON")
	rootCmd.AddCommand(chunksCmd)
}

func runChunks(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	docID := args[0]
	ctx := context.Background()

	chunks, err := libraryService.Chunks(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}

	if chunksJSON {
		return printJSON(cmd, withoutEmbeddings(chunks))
	}

	if len(chunks) == 0 {
		cmd.Printf("No chunks for document %s. Has it been processed?\n", docID)
		return nil
	}

	cmd.Printf("Chunks for document %s:\n\n", docID)
	for i := range chunks {
		cmd.Printf("  [%d] cluster %d, %d tokens\n",
			chunks[i].Index, chunks[i].Cluster, chunks[i].TokenCount)
		cmd.Printf("      %s\n", snippet(chunks[i].Text, 120))
	}

	cmd.Printf("\nTotal: %d chunks\n", len(chunks))
	return nil
}

// withoutEmbeddings strips the embedding vectors, which dominate the JSON
// payload without adding anything readable.
func withoutEmbeddings(chunks []domain.Chunk) []domain.Chunk {
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	for i := range out {
		out[i].Embedding = nil
	}
	return out
}
