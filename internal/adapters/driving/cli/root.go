// Package cli implements the tessera command tree. Commands talk to the
// core exclusively through driving ports, wired from main via SetServices
// before Execute; each command guards against the unwired case.
package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessera-kb/tessera/internal/core/ports/driving"
	"github.com/tessera-kb/tessera/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// Services the commands call. Nil until SetServices runs.
var (
	libraryService   driving.LibraryService
	pipelineService  driving.PipelineService
	retrievalService driving.RetrievalService
	workerService    driving.Worker
)

// Services bundles the driving ports the command tree depends on.
type Services struct {
	Library   driving.LibraryService
	Pipeline  driving.PipelineService
	Retrieval driving.RetrievalService
	Worker    driving.Worker
}

// SetServices wires the command tree. Call before Execute.
func SetServices(services *Services) {
	if services == nil {
		return
	}
	libraryService = services.Library
	pipelineService = services.Pipeline
	retrievalService = services.Retrieval
	workerService = services.Worker
}

// RuntimeInfo describes the configured backends for the status command.
type RuntimeInfo struct {
	StorageDriver     string
	EmbeddingProvider string
	EmbeddingModel    string
	Dimensions        int
	PDFToolAvailable  bool
}

var runtimeInfo RuntimeInfo

// SetRuntimeInfo records backend details shown by the status command.
func SetRuntimeInfo(info RuntimeInfo) {
	runtimeInfo = info
}

// SetVersion records the build version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetRetrievalDefaults seeds the search command's flag defaults from
// configuration. Flags passed on the command line still win.
func SetRetrievalDefaults(topK int, minSimilarity float64) {
	if topK > 0 {
		searchTopK = topK
	}
	if minSimilarity != 0 {
		searchMinSim = minSimilarity
	}
}

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "tessera",
	Short: "Semantic document library",
	Long: `Tessera ingests documents, splits them into chunks, embeds the chunks,
groups them into semantic clusters, and answers similarity queries over
the result.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file (default ~/.tessera/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ConfigPathFromArgs pre-scans raw arguments for --config. Services are
// built from configuration before the command tree parses flags, so main
// needs the path early.
func ConfigPathFromArgs(args []string) string {
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(args[i], "--config=") {
			return strings.TrimPrefix(args[i], "--config=")
		}
	}
	return ""
}

// printJSON renders v as indented JSON on the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// snippet flattens text onto one line and truncates it to max runes.
func snippet(text string, max int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= max {
		return flat
	}
	return string(runes[:max]) + "..."
}
