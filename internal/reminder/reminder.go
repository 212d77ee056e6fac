// Package reminder schedules nudges for incomplete tasks around the hours a
// user historically focuses best. No model is trained; the capability is an
// aggregation over completed-task history, still run through the serialized
// pipeline so it observes a consistent store.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/taskmindhq/taskmind/internal/metrics"
	"github.com/taskmindhq/taskmind/internal/models"
	"github.com/taskmindhq/taskmind/internal/pipeline"
	"github.com/taskmindhq/taskmind/internal/taskstore"
)

// topHourCount is how many productive hours are considered for placement.
const topHourCount = 3

// defaultDeadlineOffset stands in for a missing deadline, matching the task
// server's schema default of 24 hours after creation.
const defaultDeadlineOffset = 24 * time.Hour

// Request identifies the user to schedule reminders for.
type Request struct {
	UserID string `json:"user_id"`
}

// Result is either a list of reminders or a message explaining why none
// could be scheduled. Both outcomes are successes.
type Result struct {
	Message   string            `json:"message,omitempty"`
	Reminders []models.Reminder `json:"reminders,omitempty"`
}

// Service wires reminder scheduling into the shared pipeline.
type Service struct {
	tasks  taskstore.Store
	pipe   *pipeline.Pipeline
	logger *slog.Logger
}

// NewService creates the service.
func NewService(tasks taskstore.Store, pipe *pipeline.Pipeline, logger *slog.Logger) *Service {
	return &Service{tasks: tasks, pipe: pipe, logger: logger}
}

// Schedule enqueues the request and suspends until the worker resolves it.
func (s *Service) Schedule(ctx context.Context, req Request, now time.Time) (*Result, error) {
	result, err := s.pipe.Do(ctx, "reminder", func(jobCtx context.Context) (any, error) {
		return s.schedule(jobCtx, req, now)
	})
	if err != nil {
		return nil, err
	}
	res, ok := result.(*Result)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type %T", pipeline.ErrInternal, result)
	}
	return res, nil
}

// schedule runs on the pipeline worker.
func (s *Service) schedule(ctx context.Context, req Request, now time.Time) (*Result, error) {
	if _, err := s.tasks.GetUser(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("loading user %s: %w", req.UserID, err)
	}

	pending, err := s.tasks.PendingTasks(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading pending tasks for %s: %w", req.UserID, err)
	}
	if len(pending) == 0 {
		return &Result{Message: "No incomplete tasks needing reminders."}, nil
	}

	completed, err := s.tasks.CompletedTasks(ctx, req.UserID, taskstore.CompletedFilter{RequireProductivity: true})
	if err != nil {
		return nil, fmt.Errorf("loading task history for %s: %w", req.UserID, err)
	}
	if len(completed) == 0 {
		return &Result{Message: "No past task history to base reminders on."}, nil
	}

	hours := ProductiveHours(completed, topHourCount)

	// Overdue tasks first, then whichever deadline is closest.
	sort.SliceStable(pending, func(i, j int) bool {
		di := deadlineOrDefault(pending[i])
		dj := deadlineOrDefault(pending[j])
		oi, oj := di.Before(now), dj.Before(now)
		if oi != oj {
			return oi
		}
		return absDuration(di.Sub(now)) < absDuration(dj.Sub(now))
	})

	reminders := make([]models.Reminder, 0, len(pending))
	for _, task := range pending {
		deadline := deadlineOrDefault(task)

		message := fmt.Sprintf("You usually focus well around this time. Start your %q task now for a productivity boost!", task.Title)
		if deadline.Before(now) {
			message = "Overdue task - the deadline has already passed!"
		}

		reminders = append(reminders, models.Reminder{
			UserID:       req.UserID,
			TaskID:       task.ID,
			ReminderTime: bestReminderTime(deadline, hours, now),
			Message:      message,
		})
	}

	metrics.Inc(metrics.RemindersTotal)
	return &Result{Reminders: reminders}, nil
}

// ProductiveHours returns up to n completion hours ranked by mean
// productivity score, best first. Ties break toward the earlier hour so the
// ranking is deterministic.
func ProductiveHours(completed []models.Task, n int) []int {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, t := range completed {
		if t.CompletedAt.IsZero() || t.ProductivityScore == nil {
			continue
		}
		h := t.CompletedAt.Hour()
		sums[h] += *t.ProductivityScore
		counts[h]++
	}

	hours := make([]int, 0, len(sums))
	for h := range sums {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		mi := sums[hours[i]] / float64(counts[hours[i]])
		mj := sums[hours[j]] / float64(counts[hours[j]])
		if mi == mj {
			return hours[i] < hours[j]
		}
		return mi > mj
	})

	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}

// bestReminderTime places the reminder an hour before the deadline at one of
// the user's productive hours, falling back to two hours before the
// deadline, and never in the past.
func bestReminderTime(deadline time.Time, productiveHours []int, now time.Time) time.Time {
	for _, hour := range productiveHours {
		tentative := time.Date(deadline.Year(), deadline.Month(), deadline.Day(),
			hour, 0, 0, 0, deadline.Location()).Add(-time.Hour)
		if tentative.After(now) {
			return tentative
		}
	}

	fallback := deadline.Add(-2 * time.Hour)
	if fallback.Before(now) {
		fallback = now.Add(5 * time.Minute)
	}
	return fallback
}

func deadlineOrDefault(t models.Task) time.Time {
	if t.Deadline.IsZero() {
		return t.CreatedAt.Add(defaultDeadlineOffset)
	}
	return t.Deadline
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
