package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/taskmindhq/taskmind/internal/pipeline"
	"github.com/taskmindhq/taskmind/internal/predictor"
	"github.com/taskmindhq/taskmind/internal/training"
)

// Config holds all configuration for taskmind.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Training TrainingConfig `mapstructure:"training"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	API      APIConfig      `mapstructure:"api"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
}

// StorageConfig holds the paths of the two databases: the shared task
// dataset (read-mostly) and the process-local model artifact store.
type StorageConfig struct {
	TaskDB     string `mapstructure:"task_db"`
	ArtifactDB string `mapstructure:"artifact_db"`
}

// PipelineConfig holds the serialized inference pipeline settings.
type PipelineConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// TrainingConfig holds model training settings.
type TrainingConfig struct {
	MinRecords int     `mapstructure:"min_records"`
	Lambda     float64 `mapstructure:"lambda"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("storage.task_db", filepath.Join(homeDir(), ".taskmind", "tasks.db"))
	v.SetDefault("storage.artifact_db", filepath.Join(homeDir(), ".taskmind", "artifacts.db"))

	v.SetDefault("pipeline.queue_size", pipeline.DefaultQueueSize)

	v.SetDefault("training.min_records", training.DefaultMinRecords)
	v.SetDefault("training.lambda", predictor.DefaultLambda)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".taskmind"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("TASKMIND")
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("storage.task_db", "TASKMIND_TASK_DB")
	_ = v.BindEnv("storage.artifact_db", "TASKMIND_ARTIFACT_DB")
	_ = v.BindEnv("api.listen_addr", "TASKMIND_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "TASKMIND_API_AUTH_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	if c.Storage.TaskDB == "" {
		return fmt.Errorf("storage.task_db must not be empty")
	}
	if c.Storage.ArtifactDB == "" {
		return fmt.Errorf("storage.artifact_db must not be empty")
	}
	if c.Pipeline.QueueSize <= 0 {
		return fmt.Errorf("pipeline.queue_size must be greater than 0")
	}
	if c.Training.MinRecords <= 0 {
		return fmt.Errorf("training.min_records must be greater than 0")
	}
	if c.Training.Lambda < 0 {
		return fmt.Errorf("training.lambda must be >= 0")
	}
	if c.API.ListenAddr == "" {
		return fmt.Errorf("api.listen_addr must not be empty")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
