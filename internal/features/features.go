// Package features derives engineered model attributes from raw task and
// user records. Every transform is pure: the caller supplies the reference
// time and the same inputs always produce the same row.
package features

import (
	"strings"
	"time"

	"github.com/taskmindhq/taskmind/internal/models"
)

// Feature names. These appear in persisted artifacts, so they are stable.
const (
	FeatUser           = "user"
	FeatType           = "type"
	FeatPriority       = "priority"
	FeatUrgency        = "urgency"
	FeatTimeOfDay      = "timeOfDay"
	FeatTaskLength     = "taskLength"
	FeatMood           = "currentMood"
	FeatTitleLength    = "titleLength"
	FeatHasDescription = "hasDescription"
	FeatDayOfWeek      = "dayOfWeek"
	FeatHourOfDay      = "hourOfDay"
	FeatIsWeekend      = "isWeekend"
	FeatDeadlineGap    = "deadline_gap"
	FeatActualTime     = "actualTimeSpent"
	FeatEnergy         = "currentEnergyLevel"
	FeatProductivity   = "productivityScore"
	FeatDistraction    = "distractionScore"
)

// Categorical lists every feature that goes through a label encoder.
var Categorical = []string{
	FeatUser,
	FeatType,
	FeatPriority,
	FeatUrgency,
	FeatTimeOfDay,
	FeatTaskLength,
	FeatMood,
}

// IsCategorical reports whether the named feature is label-encoded.
func IsCategorical(name string) bool {
	for _, c := range Categorical {
		if c == name {
			return true
		}
	}
	return false
}

// Defaults applied when a source field is absent. Missing data falls back to
// these or to user-level baselines, never to an error.
const (
	defaultDeadlineGapHours = 4.0
	defaultEnergyLevel      = 5.0
)

// Row is the ephemeral feature mapping computed from one task and its user.
// It is never persisted.
type Row struct {
	User       string
	Type       string
	Priority   string
	Urgency    string
	TimeOfDay  string
	TaskLength string
	Mood       string

	TitleLength    float64
	HasDescription float64
	DayOfWeek      float64
	HourOfDay      float64
	IsWeekend      float64
	DeadlineGap    float64 // hours
	ActualTime     float64 // minutes
	EnergyLevel    float64
	Productivity   float64
	Distraction    float64
}

// Category returns the string value of a categorical feature.
func (r Row) Category(name string) (string, bool) {
	switch name {
	case FeatUser:
		return r.User, true
	case FeatType:
		return r.Type, true
	case FeatPriority:
		return r.Priority, true
	case FeatUrgency:
		return r.Urgency, true
	case FeatTimeOfDay:
		return r.TimeOfDay, true
	case FeatTaskLength:
		return r.TaskLength, true
	case FeatMood:
		return r.Mood, true
	}
	return "", false
}

// Value returns the numeric value of a non-categorical feature.
func (r Row) Value(name string) (float64, bool) {
	switch name {
	case FeatTitleLength:
		return r.TitleLength, true
	case FeatHasDescription:
		return r.HasDescription, true
	case FeatDayOfWeek:
		return r.DayOfWeek, true
	case FeatHourOfDay:
		return r.HourOfDay, true
	case FeatIsWeekend:
		return r.IsWeekend, true
	case FeatDeadlineGap:
		return r.DeadlineGap, true
	case FeatActualTime:
		return r.ActualTime, true
	case FeatEnergy:
		return r.EnergyLevel, true
	case FeatProductivity:
		return r.Productivity, true
	case FeatDistraction:
		return r.Distraction, true
	}
	return 0, false
}

// TitleLength is the word count of a title, 0 for an empty title.
func TitleLength(title string) int {
	return len(strings.Fields(title))
}

// TaskLengthBucket buckets a title word count into Short/Medium/Long.
func TaskLengthBucket(titleLength int) string {
	switch {
	case titleLength < 3:
		return "Short"
	case titleLength < 6:
		return "Medium"
	default:
		return "Long"
	}
}

// TimeOfDayBucket buckets an hour into Morning/Afternoon/Evening.
func TimeOfDayBucket(hour int) string {
	switch {
	case hour < 12:
		return "Morning"
	case hour < 18:
		return "Afternoon"
	default:
		return "Evening"
	}
}

// UrgencyBucket buckets the deadline gap (hours) into Urgent/Soon/Low.
func UrgencyBucket(gapHours float64) string {
	switch {
	case gapHours < 12:
		return "Urgent"
	case gapHours < 24:
		return "Soon"
	default:
		return "Low"
	}
}

// IsWeekend reports whether the weekday is Saturday or Sunday.
func IsWeekend(d time.Weekday) bool {
	return d == time.Saturday || d == time.Sunday
}

// FromTask computes the full feature row for one task. Temporal features use
// the task's creation time so that training and pre-completion prediction see
// identical derivations; a zero creation time falls back to now.
func FromTask(task models.Task, user models.User, now time.Time) Row {
	created := task.CreatedAt
	if created.IsZero() {
		created = now
	}
	deadline := task.Deadline
	if deadline.IsZero() {
		deadline = created.Add(defaultDeadlineGapHours * time.Hour)
	}
	gap := deadline.Sub(created).Hours()

	titleLen := TitleLength(task.Title)

	hasDesc := 0.0
	if strings.TrimSpace(task.Description) != "" {
		hasDesc = 1.0
	}

	weekend := 0.0
	if IsWeekend(created.Weekday()) {
		weekend = 1.0
	}

	// Task-time snapshots win over the user's current state when present.
	mood := task.Mood
	if mood == "" {
		mood = user.CurrentMood
	}
	energy := user.CurrentEnergyLevel
	if task.EnergyLevel != nil {
		energy = *task.EnergyLevel
	}

	row := Row{
		User:       user.ID,
		Type:       string(task.Type),
		Priority:   string(task.Priority),
		Urgency:    UrgencyBucket(gap),
		TimeOfDay:  TimeOfDayBucket(created.Hour()),
		TaskLength: TaskLengthBucket(titleLen),
		Mood:       string(moodOrDefault(mood)),

		TitleLength:    float64(titleLen),
		HasDescription: hasDesc,
		DayOfWeek:      float64(int(created.Weekday())),
		HourOfDay:      float64(created.Hour()),
		IsWeekend:      weekend,
		DeadlineGap:    gap,
		EnergyLevel:    energyOrDefault(energy),
	}

	if task.ActualTimeSpent != nil {
		row.ActualTime = *task.ActualTimeSpent
	}
	row.Productivity = user.BaselineProductivityScore
	if task.ProductivityScore != nil {
		row.Productivity = *task.ProductivityScore
	}
	row.Distraction = user.BaselineDistractionScore
	if task.DistractionScore != nil {
		row.Distraction = *task.DistractionScore
	}

	return row
}

func moodOrDefault(m models.Mood) models.Mood {
	if m == "" {
		return models.MoodNeutral
	}
	return m
}

func energyOrDefault(e float64) float64 {
	if e <= 0 {
		return defaultEnergyLevel
	}
	return e
}
