package training

import (
	"github.com/taskmindhq/taskmind/internal/features"
)

// DefaultSeeds returns the built-in bootstrap dataset. The rows are
// hand-authored to span the categorical domains (task type, priority,
// urgency, time of day, task length) so a cold-start user's encoder
// vocabularies contain every known category at least once. Capabilities may
// supply their own seeds via Spec.Seeds; the Row.User field is filled in at
// training time.
func DefaultSeeds() []Seed {
	return []Seed{
		{
			Row: features.Row{
				Type:           "Work",
				Priority:       "High",
				Urgency:        "Urgent",
				TimeOfDay:      "Morning",
				TaskLength:     "Short",
				Mood:           "Motivated",
				TitleLength:    3,
				HasDescription: 1,
				DayOfWeek:      1,
				HourOfDay:      9,
				IsWeekend:      0,
				DeadlineGap:    4,
				ActualTime:     45,
				EnergyLevel:    6,
				Productivity:   60,
				Distraction:    30,
			},
			Labels: map[string]float64{
				features.FeatActualTime:   45,
				features.FeatProductivity: 60,
				features.FeatDistraction:  30,
			},
		},
		{
			Row: features.Row{
				Type:           "Study",
				Priority:       "Medium",
				Urgency:        "Soon",
				TimeOfDay:      "Afternoon",
				TaskLength:     "Medium",
				Mood:           "Neutral",
				TitleLength:    5,
				HasDescription: 1,
				DayOfWeek:      2,
				HourOfDay:      14,
				IsWeekend:      0,
				DeadlineGap:    18,
				ActualTime:     90,
				EnergyLevel:    5,
				Productivity:   70,
				Distraction:    40,
			},
			Labels: map[string]float64{
				features.FeatActualTime:   90,
				features.FeatProductivity: 70,
				features.FeatDistraction:  40,
			},
		},
		{
			Row: features.Row{
				Type:           "Personal",
				Priority:       "Low",
				Urgency:        "Low",
				TimeOfDay:      "Evening",
				TaskLength:     "Long",
				Mood:           "Tired",
				TitleLength:    7,
				HasDescription: 0,
				DayOfWeek:      6,
				HourOfDay:      20,
				IsWeekend:      1,
				DeadlineGap:    36,
				ActualTime:     60,
				EnergyLevel:    4,
				Productivity:   50,
				Distraction:    60,
			},
			Labels: map[string]float64{
				features.FeatActualTime:   60,
				features.FeatProductivity: 50,
				features.FeatDistraction:  60,
			},
		},
	}
}
