package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show library and backend status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	ctx := context.Background()

	docs, err := libraryService.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	counts := make(map[domain.Status]int)
	chunkTotal := 0
	for i := range docs {
		counts[docs[i].Status]++
		chunkTotal += docs[i].ChunkCount
	}

	if runtimeInfo.StorageDriver != "" {
		cmd.Printf("Storage:    %s\n", runtimeInfo.StorageDriver)
	}
	if runtimeInfo.EmbeddingProvider != "" {
		line := runtimeInfo.EmbeddingProvider
		if runtimeInfo.EmbeddingModel != "" {
			line += " / " + runtimeInfo.EmbeddingModel
		}
		if runtimeInfo.Dimensions > 0 {
			line += fmt.Sprintf(" (%d dims)", runtimeInfo.Dimensions)
		}
		cmd.Printf("Embedding:  %s\n", line)
	}
	if runtimeInfo.PDFToolAvailable {
		cmd.Println("PDF tool:   available")
	} else {
		cmd.Println("PDF tool:   missing (install poppler for PDF support)")
	}

	cmd.Println()
	cmd.Printf("Documents:  %d\n", len(docs))
	for _, status := range []domain.Status{
		domain.StatusUploaded,
		domain.StatusQueued,
		domain.StatusProcessing,
		domain.StatusProcessed,
		domain.StatusFailed,
	} {
		if counts[status] > 0 {
			cmd.Printf("  %-11s %d\n", status.String()+":", counts[status])
		}
	}
	cmd.Printf("Chunks:     %d\n", chunkTotal)

	return nil
}
