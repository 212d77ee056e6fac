// Package recommend ranks a user's pending tasks by predicted productivity
// and surfaces the best one.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskmindhq/taskmind/internal/artifact"
	"github.com/taskmindhq/taskmind/internal/features"
	"github.com/taskmindhq/taskmind/internal/freshness"
	"github.com/taskmindhq/taskmind/internal/metrics"
	"github.com/taskmindhq/taskmind/internal/pipeline"
	"github.com/taskmindhq/taskmind/internal/taskstore"
	"github.com/taskmindhq/taskmind/internal/training"
)

// Capability is the artifact-store key for this service.
const Capability = "recommend"

// Features is the exact ordered list the recommendation model is fit on.
// Deadline-derived features are deliberately absent: a recommendation asks
// "where is this user most productive", not "what is due".
var Features = []string{
	features.FeatUser,
	features.FeatType,
	features.FeatPriority,
	features.FeatTaskLength,
	features.FeatTitleLength,
	features.FeatHasDescription,
	features.FeatDayOfWeek,
	features.FeatHourOfDay,
	features.FeatIsWeekend,
	features.FeatTimeOfDay,
	features.FeatEnergy,
	features.FeatMood,
}

// Request identifies the user to recommend for.
type Request struct {
	UserID string `json:"user_id"`
}

// Result names the recommended task, or nothing when no tasks are pending.
type Result struct {
	RecommendedTaskID string `json:"recommended_task_id,omitempty"`
}

// Service wires the recommendation capability into the shared pipeline.
type Service struct {
	tasks    taskstore.Store
	trainer  *training.Trainer
	detector *freshness.Detector
	pipe     *pipeline.Pipeline
	logger   *slog.Logger
}

// NewService creates the service.
func NewService(tasks taskstore.Store, trainer *training.Trainer, detector *freshness.Detector, pipe *pipeline.Pipeline, logger *slog.Logger) *Service {
	return &Service{tasks: tasks, trainer: trainer, detector: detector, pipe: pipe, logger: logger}
}

// Spec declares how this capability trains. Eligibility requires a completed
// task with a recorded productivity score; staleness uses the content
// fingerprint.
func Spec() training.Spec {
	return training.Spec{
		Capability: Capability,
		Features:   Features,
		Targets:    []string{features.FeatProductivity},
		Filter:     taskstore.CompletedFilter{RequireProductivity: true},
	}
}

// Recommend enqueues the request and suspends until the worker resolves it.
func (s *Service) Recommend(ctx context.Context, req Request, now time.Time) (*Result, error) {
	result, err := s.pipe.Do(ctx, "recommend", func(jobCtx context.Context) (any, error) {
		return s.recommend(jobCtx, req, now)
	})
	if err != nil {
		return nil, err
	}
	res, ok := result.(*Result)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type %T", pipeline.ErrInternal, result)
	}
	return res, nil
}

// recommend runs on the pipeline worker.
func (s *Service) recommend(ctx context.Context, req Request, now time.Time) (*Result, error) {
	user, err := s.tasks.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", req.UserID, err)
	}

	pending, err := s.tasks.PendingTasks(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading pending tasks for %s: %w", req.UserID, err)
	}
	if len(pending) == 0 {
		return &Result{}, nil
	}

	art, err := s.trainer.EnsureFresh(ctx, s.detector, req.UserID, Spec(), freshness.StrategyFingerprint, now)
	if err != nil {
		return nil, err
	}
	model, ok := art.Models[features.FeatProductivity]
	if !ok {
		return nil, fmt.Errorf("%w: no %s model stored", artifact.ErrInconsistent, features.FeatProductivity)
	}

	bestID := ""
	bestScore := 0.0
	for _, task := range pending {
		row := features.FromTask(task, *user, now)
		vec, err := art.Encoders.Vector(row, art.Features, s.logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", artifact.ErrInconsistent, err)
		}
		score, err := model.Predict(vec)
		if err != nil {
			return nil, fmt.Errorf("scoring task %s: %w", task.ID, err)
		}
		if bestID == "" || score > bestScore {
			bestID = task.ID
			bestScore = score
		}
	}

	metrics.Inc(metrics.RecommendedTotal)
	s.logger.Debug("recommendation resolved",
		"user", req.UserID, "task", bestID, "predicted_productivity", bestScore)

	return &Result{RecommendedTaskID: bestID}, nil
}
