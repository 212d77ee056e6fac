// Package training assembles per-user training datasets, fits the capability
// models and their encoder set, and commits the resulting artifact.
package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskmindhq/taskmind/internal/artifact"
	"github.com/taskmindhq/taskmind/internal/encoding"
	"github.com/taskmindhq/taskmind/internal/features"
	"github.com/taskmindhq/taskmind/internal/freshness"
	"github.com/taskmindhq/taskmind/internal/metrics"
	"github.com/taskmindhq/taskmind/internal/models"
	"github.com/taskmindhq/taskmind/internal/predictor"
	"github.com/taskmindhq/taskmind/internal/taskstore"
)

// DefaultMinRecords is the eligible-record threshold below which bootstrap
// seeds are mixed into the training set.
const DefaultMinRecords = 3

// ErrInsufficientData is returned when not even the bootstrap seeds yield a
// usable training set. With the fixed seed set this should not occur, but
// callers must handle it.
var ErrInsufficientData = errors.New("insufficient training data")

// Seed is one hand-authored bootstrap record: a feature row plus its labels.
// Seeds exist so a cold-start user gets a usable, if weak, model and so every
// known category appears in the encoder vocabularies at least once.
type Seed struct {
	Row    features.Row
	Labels map[string]float64
}

// Spec declares how one capability trains: the exact ordered feature list,
// the target label(s), the eligibility filter, and the bootstrap seeds.
type Spec struct {
	Capability string
	Features   []string
	Targets    []string
	Filter     taskstore.CompletedFilter
	MinRecords int     // 0 = DefaultMinRecords
	Seeds      []Seed  // nil = DefaultSeeds()
	Lambda     float64 // 0 = predictor.DefaultLambda
}

// Trainer runs the train-and-commit cycle against the two stores.
type Trainer struct {
	tasks     taskstore.Store
	artifacts artifact.Store
	logger    *slog.Logger

	// Process-wide defaults applied when a spec leaves them zero.
	minRecords int
	lambda     float64
}

// NewTrainer creates a trainer.
func NewTrainer(tasks taskstore.Store, artifacts artifact.Store, logger *slog.Logger) *Trainer {
	return &Trainer{tasks: tasks, artifacts: artifacts, logger: logger}
}

// SetDefaults overrides the fallback minimum record count and regularization
// strength used when a capability spec does not set its own.
func (t *Trainer) SetDefaults(minRecords int, lambda float64) {
	t.minRecords = minRecords
	t.lambda = lambda
}

// Train gathers the user's eligible records, fits one model per target on a
// shared feature matrix and encoder set, and commits the artifact. The
// committed watermark is the eligible historical count (seeds excluded) and
// never moves the stored watermark backwards.
func (t *Trainer) Train(ctx context.Context, userID string, spec Spec, now time.Time) (*artifact.Artifact, error) {
	user, err := t.tasks.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("training %s/%s: %w", userID, spec.Capability, err)
	}

	eligible, err := t.tasks.CompletedTasks(ctx, userID, spec.Filter)
	if err != nil {
		return nil, fmt.Errorf("gathering training records for %s: %w", userID, err)
	}

	return t.fit(ctx, *user, eligible, spec, now)
}

// EnsureFresh returns a usable current artifact for the pair, retraining
// first when the detector reports the stored one stale or missing.
func (t *Trainer) EnsureFresh(ctx context.Context, detector *freshness.Detector, userID string, spec Spec, strategy freshness.Strategy, now time.Time) (*artifact.Artifact, error) {
	user, err := t.tasks.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", userID, err)
	}

	eligible, err := t.tasks.CompletedTasks(ctx, userID, spec.Filter)
	if err != nil {
		return nil, fmt.Errorf("gathering records for %s: %w", userID, err)
	}

	stale, err := detector.NeedsTraining(ctx, userID, spec.Capability, strategy, eligible)
	if err != nil {
		return nil, err
	}
	if stale {
		return t.fit(ctx, *user, eligible, spec, now)
	}

	metrics.Inc(metrics.TrainingsSkipped)
	art, err := t.artifacts.Load(ctx, userID, spec.Capability)
	if err != nil {
		return nil, fmt.Errorf("loading artifact for %s/%s: %w", userID, spec.Capability, err)
	}
	return art, nil
}

func (t *Trainer) fit(ctx context.Context, user models.User, eligible []models.Task, spec Spec, now time.Time) (*artifact.Artifact, error) {
	userID := user.ID
	minRecords := spec.MinRecords
	if minRecords == 0 {
		minRecords = t.minRecords
	}
	if minRecords == 0 {
		minRecords = DefaultMinRecords
	}
	lambda := spec.Lambda
	if lambda == 0 {
		lambda = t.lambda
	}

	rows := make([]features.Row, 0, len(eligible)+len(spec.Seeds))
	for _, task := range eligible {
		rows = append(rows, features.FromTask(task, user, now))
	}

	labels := make(map[string][]float64, len(spec.Targets))

	if len(eligible) < minRecords {
		seeds := spec.Seeds
		if seeds == nil {
			seeds = DefaultSeeds()
		}
		t.logger.Info("bootstrapping training set with seed data",
			"user", userID, "capability", spec.Capability, "eligible", len(eligible))
		metrics.Inc(metrics.BootstrapUsed)
		for _, seed := range seeds {
			row := seed.Row
			row.User = userID
			rows = append(rows, row)
		}
		for _, target := range spec.Targets {
			for _, seed := range seeds {
				labels[target] = append(labels[target], seed.Labels[target])
			}
		}
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("training %s/%s: %w", userID, spec.Capability, ErrInsufficientData)
	}

	// Label vectors: real records first, then any seed labels appended above.
	for _, target := range spec.Targets {
		real := make([]float64, 0, len(eligible))
		for _, row := range rows[:len(eligible)] {
			v, ok := row.Value(target)
			if !ok {
				return nil, fmt.Errorf("training %s/%s: target %q is not a known feature", userID, spec.Capability, target)
			}
			real = append(real, v)
		}
		labels[target] = append(real, labels[target]...)
	}

	encoders := encoding.FitSet(rows, spec.Features)

	matrix := make([][]float64, len(rows))
	for i, row := range rows {
		vec, err := encoders.Vector(row, spec.Features, t.logger)
		if err != nil {
			return nil, fmt.Errorf("assembling training matrix for %s: %w", userID, err)
		}
		matrix[i] = vec
	}

	modelsByTarget := make(map[string]*predictor.Ridge, len(spec.Targets))
	for _, target := range spec.Targets {
		model, err := predictor.Fit(spec.Features, matrix, labels[target], lambda)
		if err != nil {
			return nil, fmt.Errorf("fitting %s model for %s: %w", target, userID, err)
		}
		modelsByTarget[target] = model
	}

	art := artifact.Artifact{
		UserID:      userID,
		Capability:  spec.Capability,
		Features:    spec.Features,
		Models:      modelsByTarget,
		Encoders:    encoders,
		Watermark:   int64(len(eligible)),
		Fingerprint: freshness.Fingerprint(eligible),
		TrainedAt:   now,
	}
	if err := t.artifacts.Save(ctx, art); err != nil {
		return nil, fmt.Errorf("committing artifact for %s/%s: %w", userID, spec.Capability, err)
	}

	metrics.Inc(metrics.TrainingsTotal)
	t.logger.Info("model trained",
		"user", userID, "capability", spec.Capability,
		"rows", len(rows), "eligible", len(eligible), "targets", len(spec.Targets))

	return &art, nil
}
