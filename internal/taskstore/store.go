// Package taskstore provides read access to the shared task-tracking
// dataset (users, tasks, activity logs) plus the single narrow write-back of
// predicted scores onto a task. The dataset is owned and mutated by the task
// server; everything else here is read-only.
package taskstore

import (
	"context"
	"errors"

	"github.com/taskmindhq/taskmind/internal/models"
)

// ErrNotFound is returned when the requested user or task does not exist.
var ErrNotFound = errors.New("record not found")

// CompletedFilter narrows CompletedTasks to records carrying the label a
// capability trains on. Zero value = all completed tasks.
type CompletedFilter struct {
	RequireActualTime   bool
	RequireProductivity bool
}

// Store defines the interface to the task-tracking document store.
type Store interface {
	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id string) (*models.User, error)

	// GetTask retrieves a task by ID.
	GetTask(ctx context.Context, id string) (*models.Task, error)

	// CompletedTasks returns the user's completed tasks, oldest first,
	// optionally restricted to those carrying a given label.
	CompletedTasks(ctx context.Context, userID string, filter CompletedFilter) ([]models.Task, error)

	// PendingTasks returns the user's incomplete tasks, oldest first.
	PendingTasks(ctx context.Context, userID string) ([]models.Task, error)

	// CountTasks returns the total number of tasks for the user.
	CountTasks(ctx context.Context, userID string) (int64, error)

	// CountLogs returns the number of log entries of the given type.
	CountLogs(ctx context.Context, userID string, logType models.LogType) (int64, error)

	// SetPredictedScores writes predicted scores back onto a task. This is
	// the only mutation this service performs on the shared dataset.
	SetPredictedScores(ctx context.Context, taskID string, productivity, distraction float64) error

	// Close cleans up resources.
	Close() error
}
