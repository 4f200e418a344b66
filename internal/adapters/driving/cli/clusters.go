package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

var (
	clustersPick []int
	clustersMax  int
	clustersJSON bool
)

var clustersCmd = &cobra.Command{
	Use:   "clusters [doc-id]",
	Short: "Show a document's semantic clusters",
	Long: `Groups a document's chunks by cluster label. With --pick, prints the
full text of the selected clusters in document order instead, capped by
--max-chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: runClusters,
}

func init() {
	clustersCmd.Flags().IntSliceVar(&clustersPick, "pick", nil, "print chunk text for these cluster labels")
	clustersCmd.Flags().IntVar(&clustersMax, "max-chunks", 0, "chunk cap for --pick output (0 = default 10)")
	clustersCmd.Flags().BoolVar(&clustersJSON, "json", false, "output groups as JSON")
	rootCmd.AddCommand(clustersCmd)
}

func runClusters(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	docID := args[0]
	ctx := context.Background()

	if len(clustersPick) > 0 || clustersMax > 0 {
		return outputClusterContext(cmd, ctx, docID)
	}

	groups, err := libraryService.ClusterGroups(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to get clusters: %w", err)
	}

	if clustersJSON {
		return printJSON(cmd, groupsWithoutEmbeddings(groups))
	}

	if len(groups) == 0 {
		cmd.Printf("No clusters for document %s. Has it been processed?\n", docID)
		return nil
	}

	cmd.Printf("Clusters for document %s:\n\n", docID)
	for _, group := range groups {
		cmd.Printf("  Cluster %d (%d chunks)\n", group.Cluster, len(group.Chunks))
		for i := range group.Chunks {
			cmd.Printf("    [%d] %s\n", group.Chunks[i].Index, snippet(group.Chunks[i].Text, 100))
		}
		cmd.Println()
	}

	return nil
}

func outputClusterContext(cmd *cobra.Command, ctx context.Context, docID string) error {
	chunks, err := libraryService.ClusterContext(ctx, docID, clustersPick, clustersMax)
	if err != nil {
		return fmt.Errorf("failed to get cluster context: %w", err)
	}

	if len(chunks) == 0 {
		cmd.Println("No chunks matched the selected clusters.")
		return nil
	}

	for i := range chunks {
		if i > 0 {
			cmd.Println()
		}
		cmd.Println(chunks[i].Text)
	}
	return nil
}

func groupsWithoutEmbeddings(groups []domain.ClusterGroup) []domain.ClusterGroup {
	out := make([]domain.ClusterGroup, len(groups))
	copy(out, groups)
	for i := range out {
		out[i].Chunks = withoutEmbeddings(out[i].Chunks)
	}
	return out
}
