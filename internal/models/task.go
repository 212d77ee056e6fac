package models

import (
	"time"
)

// TaskType classifies what kind of work a task is.
type TaskType string

const (
	TaskTypeWork     TaskType = "Work"
	TaskTypeStudy    TaskType = "Study"
	TaskTypePersonal TaskType = "Personal"
)

// ValidTaskTypes is the set of all recognized task types.
var ValidTaskTypes = []TaskType{
	TaskTypeWork,
	TaskTypeStudy,
	TaskTypePersonal,
}

// IsValid returns true if the task type is recognized.
func (tt TaskType) IsValid() bool {
	for _, v := range ValidTaskTypes {
		if tt == v {
			return true
		}
	}
	return false
}

// Priority is the user-assigned importance of a task.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// ValidPriorities is the set of all recognized priorities.
var ValidPriorities = []Priority{
	PriorityHigh,
	PriorityMedium,
	PriorityLow,
}

// IsValid returns true if the priority is recognized.
func (p Priority) IsValid() bool {
	for _, v := range ValidPriorities {
		if p == v {
			return true
		}
	}
	return false
}

// Task is a single tracked task belonging to one user. Completed tasks are
// immutable except for the two predicted score fields, which the scoring
// capability writes back.
type Task struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Type        TaskType `json:"type"`
	Priority    Priority `json:"priority"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Deadline    time.Time `json:"deadline,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"` // zero = not completed
	Completed   bool      `json:"completed"`

	// Labels recorded once the task is done. Nil = not recorded.
	ActualTimeSpent   *float64 `json:"actual_time_spent,omitempty"` // minutes
	ProductivityScore *float64 `json:"productivity_score,omitempty"`
	DistractionScore  *float64 `json:"distraction_score,omitempty"`

	// Snapshot of the user's state when the task was worked on. Nil/empty =
	// not captured; consumers fall back to the user's current values.
	EnergyLevel *float64 `json:"energy_level,omitempty"`
	Mood        Mood     `json:"mood,omitempty"`

	// Write-back side channel owned by the scoring capability.
	PredictedProductivityScore *float64 `json:"predicted_productivity_score,omitempty"`
	PredictedDistractionScore  *float64 `json:"predicted_distraction_score,omitempty"`
}

// Reminder is one scheduled nudge for an incomplete task.
type Reminder struct {
	UserID       string    `json:"user_id"`
	TaskID       string    `json:"task_id"`
	ReminderTime time.Time `json:"reminder_time"`
	Message      string    `json:"message"`
}
