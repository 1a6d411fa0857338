// Package config loads the settings of insightgraph from defaults, an optional
// YAML file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrMissingConnectionString is returned when no index database is configured.
var ErrMissingConnectionString = errors.New("INDEX_DATABASE_URL (or NEON_KEY) environment variable is required")

// Config holds the application configuration.
type Config struct {
	// Index database (pgvector)
	IndexDatabaseURL string `yaml:"index_database_url" validate:"required"`
	Collection       string `yaml:"collection" validate:"required"`

	// Local storage
	StorageDir   string `yaml:"storage_dir" validate:"required"`
	OverviewPath string `yaml:"overview_path" validate:"required"`

	LLM        LLMConfig        `yaml:"llm"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Sandbox    SandboxConfig    `yaml:"sandbox"`
	Agents     AgentsConfig     `yaml:"agents"`
	Ingest     IngestConfig     `yaml:"ingest"`

	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error none"`
}

// LLMConfig configures the OpenAI compatible model and embedder.
type LLMConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url" validate:"omitempty,url"`
	Model          string `yaml:"model" validate:"required"`
	EmbeddingModel string `yaml:"embedding_model" validate:"required"`
}

// CheckpointConfig selects where conversation threads are stored.
type CheckpointConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=memory file postgres redis sqlite"`
	Dir         string `yaml:"dir" validate:"required_if=Backend file"`
	PostgresURL string `yaml:"postgres_url"`
	RedisAddr   string `yaml:"redis_addr" validate:"required_if=Backend redis"`
	SqlitePath  string `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
}

// SandboxConfig configures the Python executor.
type SandboxConfig struct {
	Interpreter string        `yaml:"interpreter" validate:"required"`
	ArtifactDir string        `yaml:"artifact_dir"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// AgentsConfig tunes the query workflow.
type AgentsConfig struct {
	RecursionLimit          int `yaml:"recursion_limit" validate:"gt=0"`
	RetrieverMaxIterations  int `yaml:"retriever_max_iterations" validate:"gte=0"`
	VisualizerMaxIterations int `yaml:"visualizer_max_iterations" validate:"gte=0"`
	SearchResults           int `yaml:"search_results" validate:"gte=0"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	Concurrency            int           `yaml:"concurrency" validate:"gt=0"`
	RollbackOnParseFailure bool          `yaml:"rollback_on_parse_failure"`
	Debounce               time.Duration `yaml:"debounce" validate:"gte=0"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Collection:   "auto_insurance",
		StorageDir:   "data/storage",
		OverviewPath: "data/documents_summary.txt",
		LLM: LLMConfig{
			Model:          "gpt-4o",
			EmbeddingModel: "text-embedding-3-small",
		},
		Checkpoint: CheckpointConfig{
			Backend:    "file",
			Dir:        "data/threads",
			SqlitePath: "data/threads.db",
		},
		Sandbox: SandboxConfig{
			Interpreter: "python3",
			Timeout:     60 * time.Second,
		},
		Agents: AgentsConfig{
			RecursionLimit: 30,
		},
		Ingest: IngestConfig{
			Concurrency: 1,
			Debounce:    2 * time.Second,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.IndexDatabaseURL = getEnv("INDEX_DATABASE_URL", getEnv("NEON_KEY", c.IndexDatabaseURL))
	c.Collection = getEnv("INDEX_COLLECTION", c.Collection)
	c.StorageDir = getEnv("STORAGE_DIR", c.StorageDir)
	c.OverviewPath = getEnv("OVERVIEW_PATH", c.OverviewPath)

	c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = getEnv("OPENAI_BASE_URL", c.LLM.BaseURL)
	c.LLM.Model = getEnv("OPENAI_MODEL", c.LLM.Model)
	c.LLM.EmbeddingModel = getEnv("OPENAI_EMBEDDING_MODEL", c.LLM.EmbeddingModel)

	c.Checkpoint.Backend = getEnv("CHECKPOINT_BACKEND", c.Checkpoint.Backend)
	c.Checkpoint.Dir = getEnv("CHECKPOINT_DIR", c.Checkpoint.Dir)
	c.Checkpoint.PostgresURL = getEnv("CHECKPOINT_POSTGRES_URL", c.Checkpoint.PostgresURL)
	c.Checkpoint.RedisAddr = getEnv("CHECKPOINT_REDIS_ADDR", c.Checkpoint.RedisAddr)
	c.Checkpoint.SqlitePath = getEnv("CHECKPOINT_SQLITE_PATH", c.Checkpoint.SqlitePath)

	c.Sandbox.Interpreter = getEnv("PYTHON_BIN", c.Sandbox.Interpreter)
	c.Sandbox.ArtifactDir = getEnv("ARTIFACT_DIR", c.Sandbox.ArtifactDir)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	var err error
	if c.Agents.RecursionLimit, err = getEnvInt("RECURSION_LIMIT", c.Agents.RecursionLimit); err != nil {
		return err
	}
	if c.Ingest.Concurrency, err = getEnvInt("INGEST_CONCURRENCY", c.Ingest.Concurrency); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration. A missing index connection string is
// reported as ErrMissingConnectionString.
func (c *Config) Validate() error {
	if c.IndexDatabaseURL == "" {
		return ErrMissingConnectionString
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// CheckpointPostgresURL is the checkpoint database, defaulting to the index database.
func (c *Config) CheckpointPostgresURL() string {
	if c.Checkpoint.PostgresURL != "" {
		return c.Checkpoint.PostgresURL
	}
	return c.IndexDatabaseURL
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}
