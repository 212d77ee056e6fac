package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taskmindhq/taskmind/internal/analytics"
	"github.com/taskmindhq/taskmind/internal/artifact"
	"github.com/taskmindhq/taskmind/internal/config"
	"github.com/taskmindhq/taskmind/internal/etc"
	"github.com/taskmindhq/taskmind/internal/freshness"
	"github.com/taskmindhq/taskmind/internal/pipeline"
	"github.com/taskmindhq/taskmind/internal/recommend"
	"github.com/taskmindhq/taskmind/internal/reminder"
	"github.com/taskmindhq/taskmind/internal/score"
	"github.com/taskmindhq/taskmind/internal/taskstore"
	"github.com/taskmindhq/taskmind/internal/training"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "taskmind",
		Short: "TaskMind — per-user predictive models over a task-tracking dataset",
		Long:  "TaskMind trains lightweight per-user regression models on demand and serves time estimates, productivity scores, task recommendations, reminders, and analytics.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		serveCmd(),
		mcpCmd(),
		trainCmd(),
		statsCmd(),
		healthCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newTaskStore(logger *slog.Logger) (taskstore.Store, error) {
	return taskstore.NewSQLiteStore(cfg.Storage.TaskDB, logger)
}

func newArtifactStore(logger *slog.Logger) (artifact.Store, error) {
	return artifact.NewSQLiteStore(cfg.Storage.ArtifactDB, logger)
}

// app bundles the shared wiring behind every command that serves requests:
// both stores, the serialized pipeline, and one service per capability.
type app struct {
	tasks     taskstore.Store
	artifacts artifact.Store
	pipe      *pipeline.Pipeline
	trainer   *training.Trainer

	etc       *etc.Service
	score     *score.Service
	recommend *recommend.Service
	reminder  *reminder.Service
	analytics *analytics.Service
}

func newApp(logger *slog.Logger) (*app, error) {
	tasks, err := newTaskStore(logger)
	if err != nil {
		return nil, fmt.Errorf("opening task store: %w", err)
	}
	artifacts, err := newArtifactStore(logger)
	if err != nil {
		_ = tasks.Close()
		return nil, fmt.Errorf("opening artifact store: %w", err)
	}

	trainer := training.NewTrainer(tasks, artifacts, logger)
	trainer.SetDefaults(cfg.Training.MinRecords, cfg.Training.Lambda)
	detector := freshness.NewDetector(artifacts, logger)
	pipe := pipeline.New(cfg.Pipeline.QueueSize, logger)

	return &app{
		tasks:     tasks,
		artifacts: artifacts,
		pipe:      pipe,
		trainer:   trainer,
		etc:       etc.NewService(tasks, trainer, detector, pipe, logger),
		score:     score.NewService(tasks, trainer, detector, pipe, logger),
		recommend: recommend.NewService(tasks, trainer, detector, pipe, logger),
		reminder:  reminder.NewService(tasks, pipe, logger),
		analytics: analytics.NewService(tasks, pipe, logger),
	}, nil
}

func (a *app) Close() {
	_ = a.tasks.Close()
	_ = a.artifacts.Close()
}
