package models

import (
	"time"
)

// Mood is the user's self-reported mood, ordered worst to best.
type Mood string

const (
	MoodTired     Mood = "Tired"
	MoodStressed  Mood = "Stressed"
	MoodNeutral   Mood = "Neutral"
	MoodHappy     Mood = "Happy"
	MoodMotivated Mood = "Motivated"
)

// MoodRank maps moods onto an ordinal scale for correlation analysis.
var MoodRank = map[Mood]float64{
	MoodTired:     1,
	MoodStressed:  2,
	MoodNeutral:   3,
	MoodHappy:     4,
	MoodMotivated: 5,
}

// User holds the baseline traits used as default feature values when
// task-level data is absent. Mutated externally; read-only to this service.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`

	BaselineProductivityScore float64 `json:"baseline_productivity_score"`
	BaselineDistractionScore  float64 `json:"baseline_distraction_score"`
	CurrentMood               Mood    `json:"current_mood"`
	CurrentEnergyLevel        float64 `json:"current_energy_level"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LogType classifies an activity log entry.
type LogType string

const (
	LogTypeMoodUpdate    LogType = "moodUpdate"
	LogTypeEnergyUpdate  LogType = "energyUpdate"
	LogTypeCoachFeedback LogType = "coachFeedback"
)

// Log is one activity log entry for a user.
type Log struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      LogType   `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Meta      string    `json:"meta,omitempty"`
}
