package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background processing worker",
	Long: `Polls the library for queued documents and runs them through the
pipeline, up to the configured concurrency. Runs until interrupted;
in-flight documents are drained before exit.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	if workerService == nil {
		return errors.New("worker not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Println("Worker started. Press Ctrl+C to stop.")

	if err := workerService.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker failed: %w", err)
	}

	cmd.Println("Worker stopped.")
	return nil
}
