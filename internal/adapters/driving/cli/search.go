package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessera-kb/tessera/internal/core/domain"
)

var (
	searchTopK   int
	searchMinSim float64
	searchDocs   []string
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Find chunks similar to a query",
	Long: `Embeds the query and returns the most similar chunks across processed
documents, ordered by cosine similarity.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top", "n", 0, "maximum number of results (0 = default 5)")
	searchCmd.Flags().Float64Var(&searchMinSim, "min-similarity", 0, "similarity floor (0 = default 0.7, negative = no floor)")
	searchCmd.Flags().StringSliceVarP(&searchDocs, "document", "d", nil, "restrict to the given document IDs")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errors.New("retrieval service not configured")
	}

	query := args[0]
	ctx := context.Background()
	opts := domain.RetrievalOptions{
		DocumentIDs:   searchDocs,
		TopK:          searchTopK,
		MinSimilarity: searchMinSim,
	}

	results, err := retrievalService.Retrieve(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, scoredWithoutEmbeddings(results))
	}

	return outputSearchTable(cmd, results)
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		cmd.Printf("  [%d] %.3f  document %s, chunk %d, cluster %d\n",
			i+1, results[i].Similarity, results[i].DocumentID, results[i].Index, results[i].Cluster)
		cmd.Printf("      %s\n", snippet(results[i].Text, 160))
		cmd.Println()
	}

	return nil
}

func scoredWithoutEmbeddings(results []domain.ScoredChunk) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(results))
	copy(out, results)
	for i := range out {
		out[i].Embedding = nil
	}
	return out
}
