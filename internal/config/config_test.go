package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			TaskDB:     "/tmp/tasks.db",
			ArtifactDB: "/tmp/artifacts.db",
		},
		Pipeline: PipelineConfig{QueueSize: 64},
		Training: TrainingConfig{MinRecords: 3, Lambda: 1.0},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		API:      APIConfig{ListenAddr: ":8080"},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Storage.TaskDB)
	assert.NotEmpty(t, cfg.Storage.ArtifactDB)
	assert.Greater(t, cfg.Pipeline.QueueSize, 0)
	assert.Greater(t, cfg.Training.MinRecords, 0)
	assert.Greater(t, cfg.Training.Lambda, 0.0)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Empty(t, cfg.API.AuthToken)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TASKMIND_TASK_DB", "/data/shared.db")
	t.Setenv("TASKMIND_API_LISTEN_ADDR", ":9090")
	t.Setenv("TASKMIND_API_AUTH_TOKEN", "hunter2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/data/shared.db", cfg.Storage.TaskDB)
	assert.Equal(t, ":9090", cfg.API.ListenAddr)
	assert.Equal(t, "hunter2", cfg.API.AuthToken)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty task db", func(c *Config) { c.Storage.TaskDB = "" }, "task_db"},
		{"empty artifact db", func(c *Config) { c.Storage.ArtifactDB = "" }, "artifact_db"},
		{"zero queue size", func(c *Config) { c.Pipeline.QueueSize = 0 }, "queue_size"},
		{"zero min records", func(c *Config) { c.Training.MinRecords = 0 }, "min_records"},
		{"negative lambda", func(c *Config) { c.Training.Lambda = -0.5 }, "lambda"},
		{"empty listen addr", func(c *Config) { c.API.ListenAddr = "" }, "listen_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
