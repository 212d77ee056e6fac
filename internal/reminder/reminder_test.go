package reminder

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmindhq/taskmind/internal/models"
	"github.com/taskmindhq/taskmind/internal/pipeline"
	"github.com/taskmindhq/taskmind/internal/taskstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v float64) *float64 { return &v }

func newTestService(t *testing.T) (*Service, *taskstore.MockStore) {
	t.Helper()
	logger := discardLogger()

	tasks := taskstore.NewMockStore()
	tasks.AddUser(models.User{ID: "u1", CurrentMood: models.MoodNeutral, CurrentEnergyLevel: 5})

	pipe := pipeline.New(16, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = pipe.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return NewService(tasks, pipe, logger), tasks
}

func addCompleted(tasks *taskstore.MockStore, id string, completedAt time.Time, prod float64) {
	created := completedAt.Add(-2 * time.Hour)
	tasks.AddTask(models.Task{
		ID: id, UserID: "u1", Title: "done " + id,
		Type: models.TaskTypeWork, Priority: models.PriorityMedium,
		CreatedAt: created, UpdatedAt: created,
		Completed: true, CompletedAt: completedAt,
		ProductivityScore: ptr(prod),
	})
}

func TestSchedule_NoPendingTasks(t *testing.T) {
	svc, tasks := newTestService(t)
	addCompleted(tasks, "c1", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), 80)

	res, err := svc.Schedule(context.Background(), Request{UserID: "u1"}, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "No incomplete tasks needing reminders.", res.Message)
	assert.Empty(t, res.Reminders)
}

func TestSchedule_NoHistory(t *testing.T) {
	svc, tasks := newTestService(t)
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tasks.AddTask(models.Task{
		ID: "p1", UserID: "u1", Title: "open task",
		Type: models.TaskTypeWork, Priority: models.PriorityLow,
		CreatedAt: created, UpdatedAt: created,
	})

	res, err := svc.Schedule(context.Background(), Request{UserID: "u1"}, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "No past task history to base reminders on.", res.Message)
}

func TestSchedule_UnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Schedule(context.Background(), Request{UserID: "ghost"}, time.Now().UTC())
	assert.ErrorIs(t, err, taskstore.ErrNotFound)
}

func TestSchedule_PlacesReminderAtProductiveHour(t *testing.T) {
	svc, tasks := newTestService(t)

	// The user's best hour is 10:00.
	addCompleted(tasks, "c1", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), 90)
	addCompleted(tasks, "c2", time.Date(2026, 3, 3, 10, 30, 0, 0, time.UTC), 85)
	addCompleted(tasks, "c3", time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC), 40)

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	deadline := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	created := now.Add(-time.Hour)
	tasks.AddTask(models.Task{
		ID: "p1", UserID: "u1", Title: "submit the form",
		Type: models.TaskTypeWork, Priority: models.PriorityHigh,
		CreatedAt: created, UpdatedAt: created, Deadline: deadline,
	})

	res, err := svc.Schedule(context.Background(), Request{UserID: "u1"}, now)
	require.NoError(t, err)
	require.Len(t, res.Reminders, 1)

	r := res.Reminders[0]
	assert.Equal(t, "p1", r.TaskID)
	// Best hour 10 on the deadline day, minus one hour.
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), r.ReminderTime)
	assert.Contains(t, r.Message, "submit the form")
	assert.True(t, r.ReminderTime.After(now))
}

func TestSchedule_OverdueTaskFlagged(t *testing.T) {
	svc, tasks := newTestService(t)
	addCompleted(tasks, "c1", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), 80)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	created := now.Add(-72 * time.Hour)
	tasks.AddTask(models.Task{
		ID: "late", UserID: "u1", Title: "way overdue",
		Type: models.TaskTypePersonal, Priority: models.PriorityHigh,
		CreatedAt: created, UpdatedAt: created,
		Deadline: now.Add(-24 * time.Hour),
	})

	res, err := svc.Schedule(context.Background(), Request{UserID: "u1"}, now)
	require.NoError(t, err)
	require.Len(t, res.Reminders, 1)

	r := res.Reminders[0]
	assert.Equal(t, "Overdue task - the deadline has already passed!", r.Message)
	// Reminder times are never placed in the past.
	assert.False(t, r.ReminderTime.Before(now))
}

func TestSchedule_OverdueSortedFirst(t *testing.T) {
	svc, tasks := newTestService(t)
	addCompleted(tasks, "c1", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), 80)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	created := now.Add(-48 * time.Hour)
	tasks.AddTask(models.Task{
		ID: "future", UserID: "u1", Title: "due tomorrow",
		Type: models.TaskTypeWork, Priority: models.PriorityMedium,
		CreatedAt: created, UpdatedAt: created, Deadline: now.Add(24 * time.Hour),
	})
	tasks.AddTask(models.Task{
		ID: "past", UserID: "u1", Title: "was due yesterday",
		Type: models.TaskTypeWork, Priority: models.PriorityMedium,
		CreatedAt: created, UpdatedAt: created, Deadline: now.Add(-24 * time.Hour),
	})

	res, err := svc.Schedule(context.Background(), Request{UserID: "u1"}, now)
	require.NoError(t, err)
	require.Len(t, res.Reminders, 2)
	assert.Equal(t, "past", res.Reminders[0].TaskID)
	assert.Equal(t, "future", res.Reminders[1].TaskID)
}

func TestProductiveHours(t *testing.T) {
	mk := func(hour int, prod float64, id string) models.Task {
		at := time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC)
		return models.Task{ID: id, CompletedAt: at, ProductivityScore: &prod}
	}
	completed := []models.Task{
		mk(9, 80, "a"),
		mk(9, 90, "b"),
		mk(14, 60, "c"),
		mk(20, 95, "d"),
		mk(22, 40, "e"),
	}

	hours := ProductiveHours(completed, 3)
	assert.Equal(t, []int{20, 9, 14}, hours)

	hours = ProductiveHours(completed, 2)
	assert.Equal(t, []int{20, 9}, hours)
}

func TestProductiveHours_TieBreaksToEarlierHour(t *testing.T) {
	mk := func(hour int, prod float64, id string) models.Task {
		at := time.Date(2026, 3, 2, hour, 0, 0, 0, time.UTC)
		return models.Task{ID: id, CompletedAt: at, ProductivityScore: &prod}
	}
	completed := []models.Task{mk(15, 70, "a"), mk(8, 70, "b")}

	hours := ProductiveHours(completed, 3)
	assert.Equal(t, []int{8, 15}, hours)
}
