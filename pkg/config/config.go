package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Execution modes.
const (
	ExecutionModeLocal    = "local"
	ExecutionModeTemporal = "temporal"
)

// Config holds all configuration for ekaya-profiler.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values.
type Config struct {
	Version string `yaml:"-"` // Set at load time, not from config

	// DataSource names the origin of the datasets (e.g. "kaggle"). It is the
	// first segment of every column identity.
	DataSource string `yaml:"data_source" env:"DATA_SOURCE" env-default:""`

	// DataSourcePath is the dataset root. Each sub-directory is one dataset.
	DataSourcePath string `yaml:"data_source_path" env:"DATA_SOURCE_PATH" env-default:""`

	// ProfilesOutPath is where column profiles are written.
	ProfilesOutPath string `yaml:"profiles_out_path" env:"PROFILES_OUT_PATH" env-default:""`

	// ReplaceExistingProfiles deletes all stored profiles before a run.
	// When false, columns that already have a profile are skipped.
	ReplaceExistingProfiles bool `yaml:"replace_existing_profiles" env:"REPLACE_EXISTING_PROFILES" env-default:"false"`

	Execution ExecutionConfig `yaml:"execution"`
	Temporal  TemporalConfig  `yaml:"temporal"`
	Models    ModelsConfig    `yaml:"models"`
	Log       LogConfig       `yaml:"log"`
}

// ExecutionConfig controls how partitions are scheduled.
type ExecutionConfig struct {
	// Mode is "local" (in-process worker pool) or "temporal" (activities on remote workers).
	Mode string `yaml:"mode" env:"EXECUTION_MODE" env-default:"local"`
	// Workers is the number of partitions processed concurrently in local mode,
	// and the activity concurrency of a temporal worker process.
	Workers int `yaml:"workers" env:"EXECUTION_WORKERS" env-default:"4"`
	// ColumnsPerPartition is the target number of columns per partition. Models
	// are loaded once per partition, so larger values amortize loading further.
	ColumnsPerPartition int `yaml:"columns_per_partition" env:"EXECUTION_COLUMNS_PER_PARTITION" env-default:"10"`
}

// TemporalConfig holds Temporal connection settings used in temporal mode.
type TemporalConfig struct {
	HostPort         string        `yaml:"host_port" env:"TEMPORAL_ADDRESS" env-default:"127.0.0.1:7233"`
	Namespace        string        `yaml:"namespace" env:"TEMPORAL_NAMESPACE" env-default:"default"`
	TaskQueue        string        `yaml:"task_queue" env:"TEMPORAL_TASK_QUEUE" env-default:"column-profiling"`
	PartitionTimeout time.Duration `yaml:"partition_timeout" env:"TEMPORAL_PARTITION_TIMEOUT" env-default:"2h"`
	// ManifestPath holds each run's partitions while the workflow runs. It must
	// be on storage every worker sees at the same path, outside
	// profiles_out_path. Empty means "<profiles_out_path>.manifests".
	ManifestPath string `yaml:"manifest_path" env:"TEMPORAL_MANIFEST_PATH" env-default:""`
	// PartitionsPerBatch is the number of partitions one batch workflow runs.
	PartitionsPerBatch int `yaml:"partitions_per_batch" env:"TEMPORAL_PARTITIONS_PER_BATCH" env-default:"500"`
}

// ModelsConfig locates the pretrained model artifacts.
type ModelsConfig struct {
	// WordVectorsPath is a text word-vector file (".vec", optionally gzip ".gz").
	WordVectorsPath string `yaml:"word_vectors_path" env:"MODELS_WORD_VECTORS_PATH" env-default:""`
	// NLEmbeddingModelPath and NLScalingModelPath are the natural-language
	// transform networks (JSON layer weights).
	NLEmbeddingModelPath string `yaml:"nl_embedding_model_path" env:"MODELS_NL_EMBEDDING_PATH" env-default:""`
	NLScalingModelPath   string `yaml:"nl_scaling_model_path" env:"MODELS_NL_SCALING_PATH" env-default:""`
	// NERModelPath is the named-entity gazetteer (YAML).
	NERModelPath string `yaml:"ner_model_path" env:"MODELS_NER_PATH" env-default:""`
	// NERModelURL is fetched once into NERModelPath when the file is missing.
	NERModelURL string `yaml:"ner_model_url" env:"MODELS_NER_URL" env-default:""`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// Load reads configuration from the YAML file at path with environment variable
// overrides. An empty path reads environment variables only.
// The version parameter is injected at build time and set on the returned Config.
func Load(version, path string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.Execution.Mode = strings.ToLower(strings.TrimSpace(cfg.Execution.Mode))
	if cfg.Temporal.ManifestPath == "" && cfg.ProfilesOutPath != "" {
		cfg.Temporal.ManifestPath = filepath.Clean(cfg.ProfilesOutPath) + ".manifests"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that required settings are present and consistent.
func (c *Config) Validate() error {
	if c.DataSource == "" {
		return fmt.Errorf("data_source is required")
	}
	if c.DataSourcePath == "" {
		return fmt.Errorf("data_source_path is required")
	}
	if c.ProfilesOutPath == "" {
		return fmt.Errorf("profiles_out_path is required")
	}
	if c.Execution.Workers < 1 {
		return fmt.Errorf("execution.workers must be at least 1, got %d", c.Execution.Workers)
	}
	if c.Execution.ColumnsPerPartition < 1 {
		return fmt.Errorf("execution.columns_per_partition must be at least 1, got %d", c.Execution.ColumnsPerPartition)
	}

	switch c.Execution.Mode {
	case ExecutionModeLocal:
	case ExecutionModeTemporal:
		if c.Temporal.TaskQueue == "" {
			return fmt.Errorf("temporal.task_queue is required in temporal mode")
		}
		if c.Temporal.PartitionTimeout <= 0 {
			return fmt.Errorf("temporal.partition_timeout must be positive")
		}
		if c.Temporal.PartitionsPerBatch < 1 {
			return fmt.Errorf("temporal.partitions_per_batch must be at least 1, got %d", c.Temporal.PartitionsPerBatch)
		}
		if c.Temporal.ManifestPath == "" {
			return fmt.Errorf("temporal.manifest_path is required in temporal mode")
		}
		if isWithin(c.Temporal.ManifestPath, c.ProfilesOutPath) {
			return fmt.Errorf("temporal.manifest_path %q must be outside profiles_out_path %q", c.Temporal.ManifestPath, c.ProfilesOutPath)
		}
	default:
		return fmt.Errorf("execution.mode must be %q or %q, got %q", ExecutionModeLocal, ExecutionModeTemporal, c.Execution.Mode)
	}

	return c.validateModels()
}

// validateModels ensures the word vectors and both natural-language networks
// exist. The NER model may be missing as long as it can be downloaded.
func (c *Config) validateModels() error {
	required := map[string]string{
		"models.word_vectors_path":       c.Models.WordVectorsPath,
		"models.nl_embedding_model_path": c.Models.NLEmbeddingModelPath,
		"models.nl_scaling_model_path":   c.Models.NLScalingModelPath,
	}
	for name, path := range required {
		if path == "" {
			return fmt.Errorf("%s is required", name)
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%s does not exist: %w", name, err)
		}
	}

	if c.Models.NERModelPath == "" {
		return fmt.Errorf("models.ner_model_path is required")
	}
	if _, err := os.Stat(c.Models.NERModelPath); err != nil && c.Models.NERModelURL == "" {
		return fmt.Errorf("models.ner_model_path does not exist and models.ner_model_url is empty: %w", err)
	}

	return nil
}

// isWithin reports whether path is dir or lies below it.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// TemporalHostPort returns the Temporal frontend address, adjusted for Docker.
func (c *TemporalConfig) TemporalHostPort() string {
	return ResolveHostPortForDocker(c.HostPort)
}
