package training

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmindhq/taskmind/internal/artifact"
	"github.com/taskmindhq/taskmind/internal/features"
	"github.com/taskmindhq/taskmind/internal/freshness"
	"github.com/taskmindhq/taskmind/internal/models"
	"github.com/taskmindhq/taskmind/internal/taskstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testFeatures = []string{
	features.FeatUser,
	features.FeatType,
	features.FeatPriority,
	features.FeatUrgency,
	features.FeatTimeOfDay,
	features.FeatTaskLength,
	features.FeatMood,
	features.FeatTitleLength,
}

func etcSpec() Spec {
	return Spec{
		Capability: "etc",
		Features:   testFeatures,
		Targets:    []string{features.FeatActualTime},
		Filter:     taskstore.CompletedFilter{RequireActualTime: true},
	}
}

func ptr(v float64) *float64 { return &v }

func seedFixture(completedCount int) (*taskstore.MockStore, *artifact.MockStore) {
	tasks := taskstore.NewMockStore()
	tasks.AddUser(models.User{
		ID:                        "u1",
		BaselineProductivityScore: 50,
		BaselineDistractionScore:  50,
		CurrentMood:               models.MoodNeutral,
		CurrentEnergyLevel:        5,
	})
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < completedCount; i++ {
		created := base.Add(time.Duration(i) * 24 * time.Hour)
		tasks.AddTask(models.Task{
			ID: string(rune('a' + i)), UserID: "u1", Title: "write report section",
			Type: models.TaskTypeWork, Priority: models.PriorityHigh,
			CreatedAt: created, UpdatedAt: created,
			Deadline:  created.Add(6 * time.Hour),
			Completed: true, CompletedAt: created.Add(time.Hour),
			ActualTimeSpent:   ptr(40 + float64(i)*5),
			ProductivityScore: ptr(65),
			DistractionScore:  ptr(30),
		})
	}
	return tasks, artifact.NewMockStore()
}

func TestTrain_BootstrapPopulatesVocabularies(t *testing.T) {
	tasks, artifacts := seedFixture(2) // below the threshold
	trainer := NewTrainer(tasks, artifacts, discardLogger())

	art, err := trainer.Train(context.Background(), "u1", etcSpec(), time.Now().UTC())
	require.NoError(t, err)

	// Watermark counts eligible historical records only, never seeds.
	assert.Equal(t, int64(2), art.Watermark)

	// Seeds span every categorical domain, so all known classes are present
	// even though the real history only contains Work/High tasks.
	assert.ElementsMatch(t, []string{"Work", "Study", "Personal"},
		art.Encoders[features.FeatType].Classes())
	assert.ElementsMatch(t, []string{"High", "Medium", "Low"},
		art.Encoders[features.FeatPriority].Classes())
	assert.ElementsMatch(t, []string{"Urgent", "Soon", "Low"},
		art.Encoders[features.FeatUrgency].Classes())
	assert.ElementsMatch(t, []string{"Morning", "Afternoon", "Evening"},
		art.Encoders[features.FeatTimeOfDay].Classes())
	assert.ElementsMatch(t, []string{"Short", "Medium", "Long"},
		art.Encoders[features.FeatTaskLength].Classes())

	require.Contains(t, art.Models, features.FeatActualTime)
	require.NoError(t, art.Validate())
}

func TestTrain_EnoughRecordsSkipsSeeds(t *testing.T) {
	tasks, artifacts := seedFixture(4)
	trainer := NewTrainer(tasks, artifacts, discardLogger())

	art, err := trainer.Train(context.Background(), "u1", etcSpec(), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, int64(4), art.Watermark)
	// All history is Work/High; no seeds means no other classes.
	assert.Equal(t, []string{"Work"}, art.Encoders[features.FeatType].Classes())
}

func TestTrain_UnknownUser(t *testing.T) {
	tasks, artifacts := seedFixture(0)
	trainer := NewTrainer(tasks, artifacts, discardLogger())

	_, err := trainer.Train(context.Background(), "ghost", etcSpec(), time.Now().UTC())
	assert.ErrorIs(t, err, taskstore.ErrNotFound)
}

func TestTrain_CoTrainedTargetsShareEncoders(t *testing.T) {
	tasks, artifacts := seedFixture(3)
	trainer := NewTrainer(tasks, artifacts, discardLogger())

	spec := etcSpec()
	spec.Capability = "score"
	spec.Targets = []string{features.FeatProductivity, features.FeatDistraction}
	spec.Filter = taskstore.CompletedFilter{}

	art, err := trainer.Train(context.Background(), "u1", spec, time.Now().UTC())
	require.NoError(t, err)
	assert.Len(t, art.Models, 2)
	require.Contains(t, art.Models, features.FeatProductivity)
	require.Contains(t, art.Models, features.FeatDistraction)
}

func TestEnsureFresh_TrainsOnceThenSkips(t *testing.T) {
	tasks, artifacts := seedFixture(4)
	trainer := NewTrainer(tasks, artifacts, discardLogger())
	detector := freshness.NewDetector(artifacts, discardLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := trainer.EnsureFresh(ctx, detector, "u1", etcSpec(), freshness.StrategyWatermark, now)
	require.NoError(t, err)

	// Nothing changed: the second call must load, not retrain.
	second, err := trainer.EnsureFresh(ctx, detector, "u1", etcSpec(), freshness.StrategyWatermark, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, second.TrainedAt.Equal(first.TrainedAt))
}

func TestEnsureFresh_RetrainsOnNewRecord(t *testing.T) {
	tasks, artifacts := seedFixture(4)
	trainer := NewTrainer(tasks, artifacts, discardLogger())
	detector := freshness.NewDetector(artifacts, discardLogger())
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := trainer.EnsureFresh(ctx, detector, "u1", etcSpec(), freshness.StrategyWatermark, now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), first.Watermark)

	created := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	tasks.AddTask(models.Task{
		ID: "new", UserID: "u1", Title: "another one",
		Type: models.TaskTypeStudy, Priority: models.PriorityLow,
		CreatedAt: created, UpdatedAt: created,
		Completed: true, CompletedAt: created.Add(time.Hour),
		ActualTimeSpent: ptr(80),
	})

	second, err := trainer.EnsureFresh(ctx, detector, "u1", etcSpec(), freshness.StrategyWatermark, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(5), second.Watermark)
	assert.Contains(t, second.Encoders[features.FeatType].Classes(), "Study")
}
