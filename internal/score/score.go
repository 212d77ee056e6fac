// Package score predicts productivity and distraction scores for one task.
// The two targets are co-trained: separate models sharing a single encoder
// set and feature matrix. Predicted scores are written back onto the task,
// the one mutation this service performs on the shared dataset.
package score

import (
	"context"
	"fmt"
	"log/slog"
	"math"
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
const Capability = "score"

// Features is the exact ordered list the scoring models are fit on.
var Features = []string{
	features.FeatUser,
	features.FeatType,
	features.FeatPriority,
	features.FeatUrgency,
	features.FeatTaskLength,
	features.FeatTitleLength,
	features.FeatHasDescription,
	features.FeatDayOfWeek,
	features.FeatHourOfDay,
	features.FeatIsWeekend,
	features.FeatTimeOfDay,
	features.FeatActualTime,
	features.FeatEnergy,
	features.FeatMood,
}

// Request identifies the user and the task to score.
type Request struct {
	UserID string `json:"user_id"`
	TaskID string `json:"task_id"`
}

// Result carries both scores. When the task already has recorded actual
// scores, those are returned unchanged.
type Result struct {
	ProductivityScore float64 `json:"productivity_score"`
	DistractionScore  float64 `json:"distraction_score"`
}

// Service wires the scoring capability into the shared pipeline.
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

// Spec declares how this capability trains. All completed tasks are eligible
// (scores missing on a record fall back to the user's baselines); staleness
// uses the content fingerprint.
func Spec() training.Spec {
	return training.Spec{
		Capability: Capability,
		Features:   Features,
		Targets:    []string{features.FeatProductivity, features.FeatDistraction},
		Filter:     taskstore.CompletedFilter{},
	}
}

// Score enqueues the request and suspends until the worker resolves it.
func (s *Service) Score(ctx context.Context, req Request, now time.Time) (*Result, error) {
	result, err := s.pipe.Do(ctx, "score.predict", func(jobCtx context.Context) (any, error) {
		return s.score(jobCtx, req, now)
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

// score runs on the pipeline worker.
func (s *Service) score(ctx context.Context, req Request, now time.Time) (*Result, error) {
	user, err := s.tasks.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", req.UserID, err)
	}
	task, err := s.tasks.GetTask(ctx, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("loading task %s: %w", req.TaskID, err)
	}

	// Already-scored tasks are returned as recorded, no model involved.
	if task.ProductivityScore != nil && task.DistractionScore != nil {
		return &Result{
			ProductivityScore: *task.ProductivityScore,
			DistractionScore:  *task.DistractionScore,
		}, nil
	}

	art, err := s.trainer.EnsureFresh(ctx, s.detector, req.UserID, Spec(), freshness.StrategyFingerprint, now)
	if err != nil {
		return nil, err
	}

	row := features.FromTask(*task, *user, now)
	vec, err := art.Encoders.Vector(row, art.Features, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", artifact.ErrInconsistent, err)
	}

	prod, err := s.predictTarget(art, features.FeatProductivity, vec)
	if err != nil {
		return nil, err
	}
	distr, err := s.predictTarget(art, features.FeatDistraction, vec)
	if err != nil {
		return nil, err
	}

	metrics.Inc(metrics.PredictionsTotal)

	if err := s.tasks.SetPredictedScores(ctx, req.TaskID, prod, distr); err != nil {
		return nil, fmt.Errorf("writing predicted scores for task %s: %w", req.TaskID, err)
	}
	metrics.Inc(metrics.WriteBacksTotal)

	return &Result{ProductivityScore: prod, DistractionScore: distr}, nil
}

func (s *Service) predictTarget(art *artifact.Artifact, target string, vec []float64) (float64, error) {
	model, ok := art.Models[target]
	if !ok {
		return 0, fmt.Errorf("%w: no %s model stored", artifact.ErrInconsistent, target)
	}
	v, err := model.Predict(vec)
	if err != nil {
		return 0, fmt.Errorf("predicting %s: %w", target, err)
	}
	return clampScore(v), nil
}

// clampScore bounds a predicted score to the 0..100 scale, rounded to two
// decimals.
func clampScore(v float64) float64 {
	v = math.Round(v*100) / 100
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
