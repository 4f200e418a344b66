// Command tessera is a semantic document library: it ingests files,
// segments and embeds them, clusters the chunks, and answers similarity
// queries from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/tessera-kb/tessera/internal/adapters/driven/embedding/ollama"
	"github.com/tessera-kb/tessera/internal/adapters/driven/embedding/openai"
	"github.com/tessera-kb/tessera/internal/adapters/driven/filesource/local"
	"github.com/tessera-kb/tessera/internal/adapters/driven/storage/memory"
	"github.com/tessera-kb/tessera/internal/adapters/driven/storage/postgres"
	"github.com/tessera-kb/tessera/internal/adapters/driven/storage/sqlite"
	"github.com/tessera-kb/tessera/internal/adapters/driving/cli"
	"github.com/tessera-kb/tessera/internal/clustering"
	"github.com/tessera-kb/tessera/internal/config"
	"github.com/tessera-kb/tessera/internal/core/ports/driven"
	"github.com/tessera-kb/tessera/internal/core/services"
	"github.com/tessera-kb/tessera/internal/extract"
	"github.com/tessera-kb/tessera/internal/logger"
	"github.com/tessera-kb/tessera/internal/segmenter"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env for OPENAI_API_KEY and friends.
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The embedder is optional wiring: without it the library commands
	// still work, and process/search fail with a clear message.
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		logger.Warn("Embedding provider not configured: %v", err)
	}

	dimensions := cfg.Storage.Dimensions
	if dimensions == 0 && embedder != nil {
		dimensions = embedder.Dimensions()
	}

	docStore, closeStore, err := buildStore(cfg, dimensions)
	if err != nil {
		return err
	}
	defer closeStore()

	files := local.New()
	extractor := extract.NewRegistry()

	wired := &cli.Services{
		Library: services.NewLibraryService(docStore, files, extractor),
	}

	info := cli.RuntimeInfo{
		StorageDriver:    cfg.Storage.Driver,
		PDFToolAvailable: extract.CheckPDFTool() == nil,
	}

	if embedder != nil {
		defer embedder.Close()

		seg := segmenter.New(
			segmenter.WithChunkSize(cfg.Segmenter.ChunkSize),
			segmenter.WithChunkOverlap(cfg.Segmenter.ChunkOverlap),
		)
		clusterer := clustering.New(clustering.Config{})

		pipeline := services.NewPipelineService(docStore, files, extractor, embedder, seg, clusterer)
		wired.Pipeline = pipeline
		wired.Retrieval = services.NewRetrievalService(docStore, embedder)
		wired.Worker = services.NewWorker(pipeline, docStore, services.WorkerConfig{
			PollInterval: time.Duration(cfg.Worker.PollIntervalSecs) * time.Second,
			Concurrency:  cfg.Worker.Concurrency,
		})

		info.EmbeddingProvider = cfg.Embedding.Provider
		info.EmbeddingModel = embedder.ModelName()
		info.Dimensions = embedder.Dimensions()
	}

	cli.SetServices(wired)
	cli.SetRuntimeInfo(info)
	cli.SetRetrievalDefaults(cfg.Retrieval.TopK, cfg.Retrieval.MinSimilarity)
	cli.SetVersion(version)

	return cli.Execute()
}

func loadConfig() (*config.Config, error) {
	if path := cli.ConfigPathFromArgs(os.Args[1:]); path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

func buildStore(cfg *config.Config, dimensions int) (driven.DocumentStore, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		return memory.NewDocumentStore(), func() {}, nil

	case "sqlite":
		store, err := sqlite.NewStore(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil

	case "postgres":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store, err := postgres.NewStore(ctx, postgres.Config{
			ConnString: cfg.Storage.PostgresURL,
			Dimensions: dimensions,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return store, func() { _ = store.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func buildEmbedder(cfg *config.Config) (driven.EmbeddingProvider, error) {
	timeout := time.Duration(cfg.Embedding.TimeoutSecs) * time.Second

	switch cfg.Embedding.Provider {
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Timeout:    timeout,
			Dimensions: cfg.Storage.Dimensions,
			BatchSize:  cfg.Embedding.BatchSize,
		})

	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Timeout:    timeout,
			Dimensions: cfg.Storage.Dimensions,
		}), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}
