package taskstore

import (
	"context"
	"sort"
	"sync"

	"github.com/taskmindhq/taskmind/internal/models"
)

// MockStore is an in-memory implementation of Store for testing.
type MockStore struct {
	mu    sync.RWMutex
	users map[string]models.User
	tasks map[string]models.Task
	logs  []models.Log
}

// NewMockStore creates a new mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		users: make(map[string]models.User),
		tasks: make(map[string]models.Task),
	}
}

// AddUser seeds a user into the mock store.
func (m *MockStore) AddUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// AddTask seeds a task into the mock store.
func (m *MockStore) AddTask(t models.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = t
}

// AddLog seeds a log entry into the mock store.
func (m *MockStore) AddLog(l models.Log) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, l)
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

// GetTask retrieves a task by ID.
func (m *MockStore) GetTask(_ context.Context, id string) (*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

// CompletedTasks returns completed tasks for the user, oldest first.
func (m *MockStore) CompletedTasks(_ context.Context, userID string, filter CompletedFilter) ([]models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Task
	for _, t := range m.tasks {
		if t.UserID != userID || !t.Completed {
			continue
		}
		if filter.RequireActualTime && t.ActualTimeSpent == nil {
			continue
		}
		if filter.RequireProductivity && t.ProductivityScore == nil {
			continue
		}
		out = append(out, t)
	}
	sortTasksByCreation(out)
	return out, nil
}

// PendingTasks returns incomplete tasks for the user, oldest first.
func (m *MockStore) PendingTasks(_ context.Context, userID string) ([]models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Task
	for _, t := range m.tasks {
		if t.UserID == userID && !t.Completed {
			out = append(out, t)
		}
	}
	sortTasksByCreation(out)
	return out, nil
}

// CountTasks returns the total number of tasks for the user.
func (m *MockStore) CountTasks(_ context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, t := range m.tasks {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

// CountLogs returns the number of log entries of the given type.
func (m *MockStore) CountLogs(_ context.Context, userID string, logType models.LogType) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, l := range m.logs {
		if l.UserID == userID && l.Type == logType {
			n++
		}
	}
	return n, nil
}

// SetPredictedScores writes predicted scores back onto a task.
func (m *MockStore) SetPredictedScores(_ context.Context, taskID string, productivity, distraction float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	t.PredictedProductivityScore = &productivity
	t.PredictedDistractionScore = &distraction
	m.tasks[taskID] = t
	return nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error { return nil }

func sortTasksByCreation(tasks []models.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].ID < tasks[j].ID
		}
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
}
