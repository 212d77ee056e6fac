// Package etc predicts a task's time to completion for one user. Requests
// carry raw task attributes; feature engineering, freshness checks, and
// train-if-stale all happen inside the serialized pipeline.
package etc

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
	"github.com/taskmindhq/taskmind/internal/models"
	"github.com/taskmindhq/taskmind/internal/pipeline"
	"github.com/taskmindhq/taskmind/internal/taskstore"
	"github.com/taskmindhq/taskmind/internal/training"
	"github.com/taskmindhq/taskmind/pkg/timefmt"
)

// Capability is the artifact-store key for this service.
const Capability = "etc"

// Features is the exact ordered list the time-to-completion model is fit on.
var Features = []string{
	features.FeatUser,
	features.FeatType,
	features.FeatPriority,
	features.FeatDeadlineGap,
	features.FeatDayOfWeek,
	features.FeatHourOfDay,
	features.FeatIsWeekend,
	features.FeatTimeOfDay,
	features.FeatHasDescription,
	features.FeatTitleLength,
	features.FeatUrgency,
	features.FeatTaskLength,
	features.FeatProductivity,
}

// Request identifies the user and the raw attributes of the task to estimate.
type Request struct {
	UserID      string          `json:"user_id"`
	Type        models.TaskType `json:"type"`
	Priority    models.Priority `json:"priority,omitempty"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Deadline    time.Time       `json:"deadline,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
}

// Prediction is the resolved estimate.
type Prediction struct {
	EstimatedMinutes float64 `json:"estimated_minutes"`
	Formatted        string  `json:"formatted"`
}

// Service wires the time-to-completion capability into the shared pipeline.
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
// task with a recorded actual time; staleness uses the row-count watermark.
func Spec() training.Spec {
	return training.Spec{
		Capability: Capability,
		Features:   Features,
		Targets:    []string{features.FeatActualTime},
		Filter:     taskstore.CompletedFilter{RequireActualTime: true},
	}
}

// Predict enqueues the request and suspends until the worker resolves it.
func (s *Service) Predict(ctx context.Context, req Request, now time.Time) (*Prediction, error) {
	result, err := s.pipe.Do(ctx, "etc.predict", func(jobCtx context.Context) (any, error) {
		return s.predict(jobCtx, req, now)
	})
	if err != nil {
		return nil, err
	}
	pred, ok := result.(*Prediction)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type %T", pipeline.ErrInternal, result)
	}
	return pred, nil
}

// predict runs on the pipeline worker.
func (s *Service) predict(ctx context.Context, req Request, now time.Time) (*Prediction, error) {
	user, err := s.tasks.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", req.UserID, err)
	}

	art, err := s.trainer.EnsureFresh(ctx, s.detector, req.UserID, Spec(), freshness.StrategyWatermark, now)
	if err != nil {
		return nil, err
	}

	task := models.Task{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
		Priority:    req.Priority,
		CreatedAt:   req.CreatedAt,
		Deadline:    req.Deadline,
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	row := features.FromTask(task, *user, now)

	vec, err := art.Encoders.Vector(row, art.Features, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", artifact.ErrInconsistent, err)
	}

	model, ok := art.Models[features.FeatActualTime]
	if !ok {
		return nil, fmt.Errorf("%w: no %s model stored", artifact.ErrInconsistent, features.FeatActualTime)
	}
	minutes, err := model.Predict(vec)
	if err != nil {
		return nil, fmt.Errorf("predicting time to completion: %w", err)
	}
	if minutes < 0 {
		minutes = 0
	}
	minutes = math.Round(minutes*100) / 100

	metrics.Inc(metrics.PredictionsTotal)

	// Queue a follow-up retrain on the same serialized worker. It runs after
	// any requests already waiting and is a no-op unless new data arrived.
	if _, err := s.pipe.Submit("etc.retrain", func(jobCtx context.Context) (any, error) {
		return s.trainer.EnsureFresh(jobCtx, s.detector, req.UserID, Spec(), freshness.StrategyWatermark, now)
	}); err != nil {
		s.logger.Warn("could not queue follow-up retrain", "user", req.UserID, "error", err)
	}

	return &Prediction{
		EstimatedMinutes: minutes,
		Formatted:        timefmt.Minutes(minutes),
	}, nil
}
