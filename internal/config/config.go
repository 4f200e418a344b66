// Package config loads the application configuration from a TOML file,
// fills defaults, and applies environment overrides for secrets and
// connection strings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Storage selects and configures the document store.
type Storage struct {
	// Driver is one of "memory", "sqlite" or "postgres".
	Driver string `toml:"driver"`

	// DataDir holds the sqlite database. Empty means ~/.tessera/data.
	DataDir string `toml:"data_dir"`

	// PostgresURL is the pgx connection string, required when the
	// driver is postgres. Overridable via TESSERA_POSTGRES_URL.
	PostgresURL string `toml:"postgres_url"`

	// Dimensions is the pgvector column width. Zero means "use the
	// embedding provider's dimensionality".
	Dimensions int `toml:"dimensions"`
}

// Embedding selects and configures the embedding provider.
type Embedding struct {
	// Provider is one of "openai" or "ollama".
	Provider string `toml:"provider"`

	// APIKey authenticates openai requests. Usually supplied through
	// the OPENAI_API_KEY environment variable instead of the file.
	APIKey string `toml:"api_key"`

	// BaseURL overrides the provider endpoint, e.g. for Azure OpenAI
	// or a remote Ollama host.
	BaseURL string `toml:"base_url"`

	// Model is the embedding model. Empty picks the provider default.
	Model string `toml:"model"`

	// TimeoutSecs bounds a single provider request.
	TimeoutSecs int `toml:"timeout_secs"`

	// BatchSize caps texts per embedding request.
	BatchSize int `toml:"batch_size"`
}

// Segmenter configures document segmentation.
type Segmenter struct {
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`
}

// Retrieval configures search defaults.
type Retrieval struct {
	TopK          int     `toml:"top_k"`
	MinSimilarity float64 `toml:"min_similarity"`
}

// Worker configures the background queue drainer.
type Worker struct {
	PollIntervalSecs int `toml:"poll_interval_secs"`
	Concurrency      int `toml:"concurrency"`
}

// Config is the root application configuration.
type Config struct {
	Storage   Storage   `toml:"storage"`
	Embedding Embedding `toml:"embedding"`
	Segmenter Segmenter `toml:"segmenter"`
	Retrieval Retrieval `toml:"retrieval"`
	Worker    Worker    `toml:"worker"`
}

// Default returns the configuration used when no file exists: local
// sqlite storage and the openai provider.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg
}

// Load reads the config from the given path. A missing file yields the
// defaults; a present but malformed file is an error. Environment
// overrides are applied last.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault tries ./tessera.toml first, then ~/.tessera/config.toml.
// If neither exists it returns the defaults.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat("tessera.toml"); err == nil {
		return Load("tessera.toml")
	}

	userPath, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Load(userPath)
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tessera", "config.toml"), nil
}

// Validate rejects driver and provider values nothing can construct.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Storage.Driver == "postgres" && c.Storage.PostgresURL == "" {
		return errors.New("postgres driver requires storage.postgres_url or TESSERA_POSTGRES_URL")
	}

	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}

	if cfg.Segmenter.ChunkSize == 0 {
		cfg.Segmenter.ChunkSize = 800
	}
	if cfg.Segmenter.ChunkOverlap == 0 {
		cfg.Segmenter.ChunkOverlap = 150
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MinSimilarity == 0 {
		cfg.Retrieval.MinSimilarity = 0.7
	}

	if cfg.Worker.PollIntervalSecs == 0 {
		cfg.Worker.PollIntervalSecs = 5
	}
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = 2
	}
}

// applyEnv merges environment overrides. Set variables win over file
// values so secrets never need to live in the config file.
func applyEnv(cfg *Config) {
	if url := os.Getenv("TESSERA_POSTGRES_URL"); url != "" {
		cfg.Storage.PostgresURL = url
	}
	if dir := os.Getenv("TESSERA_DATA_DIR"); dir != "" {
		cfg.Storage.DataDir = dir
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
	}
	if url := os.Getenv("TESSERA_EMBEDDING_BASE_URL"); url != "" {
		cfg.Embedding.BaseURL = url
	}
}
