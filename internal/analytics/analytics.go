// Package analytics computes aggregate insights over a user's completed-task
// history. Nothing here is model-backed; every insight is a direct statistic
// over stored records, so results are reproducible from the dataset alone.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/taskmindhq/taskmind/internal/features"
	"github.com/taskmindhq/taskmind/internal/metrics"
	"github.com/taskmindhq/taskmind/internal/models"
	"github.com/taskmindhq/taskmind/internal/pipeline"
	"github.com/taskmindhq/taskmind/internal/taskstore"
)

// trendWindow is how many recent completions the productivity trend compares
// against the older remainder.
const trendWindow = 5

// Request identifies the user to analyze.
type Request struct {
	UserID string `json:"user_id"`
}

// Result carries the computed insight map. Keys are stable identifiers;
// values are numbers, strings, or small string-keyed maps.
type Result struct {
	UserID   string         `json:"user_id"`
	Insights map[string]any `json:"insights"`
}

// Service wires analytics into the shared pipeline.
type Service struct {
	tasks  taskstore.Store
	pipe   *pipeline.Pipeline
	logger *slog.Logger
}

// NewService creates the service.
func NewService(tasks taskstore.Store, pipe *pipeline.Pipeline, logger *slog.Logger) *Service {
	return &Service{tasks: tasks, pipe: pipe, logger: logger}
}

// Insights enqueues the request and suspends until the worker resolves it.
func (s *Service) Insights(ctx context.Context, req Request, now time.Time) (*Result, error) {
	result, err := s.pipe.Do(ctx, "analytics", func(jobCtx context.Context) (any, error) {
		return s.insights(jobCtx, req, now)
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

// insights runs on the pipeline worker.
func (s *Service) insights(ctx context.Context, req Request, now time.Time) (*Result, error) {
	user, err := s.tasks.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading user %s: %w", req.UserID, err)
	}

	completed, err := s.tasks.CompletedTasks(ctx, req.UserID, taskstore.CompletedFilter{})
	if err != nil {
		return nil, fmt.Errorf("loading task history for %s: %w", req.UserID, err)
	}
	if len(completed) == 0 {
		return nil, fmt.Errorf("no completed tasks for %s: %w", req.UserID, taskstore.ErrNotFound)
	}

	total, err := s.tasks.CountTasks(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("counting tasks for %s: %w", req.UserID, err)
	}
	feedback, err := s.tasks.CountLogs(ctx, req.UserID, models.LogTypeCoachFeedback)
	if err != nil {
		return nil, fmt.Errorf("counting feedback logs for %s: %w", req.UserID, err)
	}

	insights := build(completed, *user, total, feedback)

	metrics.Inc(metrics.InsightsTotal)
	s.logger.Debug("insights resolved", "user", req.UserID,
		"completed", len(completed), "insights", len(insights), "at", now)

	return &Result{UserID: req.UserID, Insights: insights}, nil
}

// build computes every insight from the completed history. The slice is
// ordered oldest first, which the trend insights rely on.
func build(completed []models.Task, user models.User, totalTasks, feedbackLogs int64) map[string]any {
	in := make(map[string]any)

	prod := labelSeries(completed, func(t models.Task) *float64 { return t.ProductivityScore })
	distr := labelSeries(completed, func(t models.Task) *float64 { return t.DistractionScore })
	spent := labelSeries(completed, func(t models.Task) *float64 { return t.ActualTimeSpent })

	in["completion_rate"] = round2(ratio(float64(len(completed)), float64(totalTasks)) * 100)
	in["coach_feedback_entries"] = feedbackLogs
	in["missed_deadline_count"] = missedDeadlines(completed)
	in["avg_time_spent"] = round2(meanOrZero(spent))
	in["avg_distraction_score"] = round2(meanOrZero(distr))
	in["distraction_severity"] = distractionSeverity(meanOrZero(distr))
	in["avg_title_length"] = round2(meanTitleLength(completed))

	in["best_productivity_day"] = bestByKey(completed, func(t models.Task) (string, bool) {
		if t.CompletedAt.IsZero() {
			return "", false
		}
		return t.CompletedAt.Weekday().String(), true
	})
	in["best_time_of_day"] = bestByKey(completed, func(t models.Task) (string, bool) {
		if t.CompletedAt.IsZero() {
			return "", false
		}
		return features.TimeOfDayBucket(t.CompletedAt.Hour()), true
	})
	in["best_mood"] = bestByKey(completed, func(t models.Task) (string, bool) {
		if t.Mood == "" {
			return "", false
		}
		return string(t.Mood), true
	})

	in["productivity_by_type"] = meanByKey(completed, typeKey)
	in["least_productive_type"] = worstByKey(completed, typeKey)
	in["least_distracting_type"] = leastDistractingType(completed)
	in["most_common_task_type"] = mostCommon(completed, typeKey)
	in["most_common_time_block"] = mostCommon(completed, func(t models.Task) (string, bool) {
		if t.CompletedAt.IsZero() {
			return "", false
		}
		return features.TimeOfDayBucket(t.CompletedAt.Hour()), true
	})
	in["productivity_by_task_length"] = meanByKey(completed, func(t models.Task) (string, bool) {
		return features.TaskLengthBucket(features.TitleLength(t.Title)), true
	})

	in["hourly_productivity"] = hourlyProductivity(completed)
	in["high_impact_hours"] = highImpactHours(completed, 3)
	in["weekend_vs_weekday_productivity"] = weekendSplit(completed)
	in["most_efficient_time_block"] = mostEfficientBlock(completed)
	in["most_productive_task_title"] = mostProductiveTitle(completed)

	in["productivity_trend"] = productivityTrend(prod)
	in["energy_trend"] = energyTrend(completed)
	in["productivity_variability"] = round2(stdDevOrZero(prod))
	in["consistency_score"] = round2(consistency(prod))

	in["energy_productivity_correlation"] = round2(energyProductivityCorr(completed, user))
	in["mood_productivity_correlation"] = round2(moodProductivityCorr(completed))
	in["time_vs_productivity_corr"] = round2(pairCorr(completed,
		func(t models.Task) (float64, bool) { return deref(t.ActualTimeSpent) },
		func(t models.Task) (float64, bool) { return deref(t.ProductivityScore) }))
	in["deadline_pressure_impact"] = deadlinePressureImpact(completed)

	in["energy_distribution"] = energyDistribution(completed)
	in["mood_distribution"] = distribution(completed, func(t models.Task) (string, bool) {
		if t.Mood == "" {
			return "", false
		}
		return string(t.Mood), true
	})

	return in
}

func typeKey(t models.Task) (string, bool) { return string(t.Type), true }

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

func labelSeries(tasks []models.Task, pick func(models.Task) *float64) []float64 {
	out := make([]float64, 0, len(tasks))
	for _, t := range tasks {
		if v := pick(t); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func missedDeadlines(tasks []models.Task) int {
	n := 0
	for _, t := range tasks {
		if !t.Deadline.IsZero() && !t.CompletedAt.IsZero() && t.CompletedAt.After(t.Deadline) {
			n++
		}
	}
	return n
}

func distractionSeverity(avg float64) string {
	switch {
	case avg > 70:
		return "High"
	case avg > 40:
		return "Moderate"
	default:
		return "Low"
	}
}

func meanTitleLength(tasks []models.Task) float64 {
	vals := make([]float64, 0, len(tasks))
	for _, t := range tasks {
		vals = append(vals, float64(features.TitleLength(t.Title)))
	}
	return meanOrZero(vals)
}

// groupMeans buckets productivity scores by a derived key.
func groupMeans(tasks []models.Task, key func(models.Task) (string, bool)) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]float64)
	for _, t := range tasks {
		k, ok := key(t)
		if !ok || t.ProductivityScore == nil {
			continue
		}
		sums[k] += *t.ProductivityScore
		counts[k]++
	}
	means := make(map[string]float64, len(sums))
	for k := range sums {
		means[k] = sums[k] / counts[k]
	}
	return means
}

func meanByKey(tasks []models.Task, key func(models.Task) (string, bool)) map[string]float64 {
	means := groupMeans(tasks, key)
	for k, v := range means {
		means[k] = round2(v)
	}
	return means
}

// bestByKey returns the key with the highest mean productivity; ties break on
// the lexicographically smaller key.
func bestByKey(tasks []models.Task, key func(models.Task) (string, bool)) string {
	return extremeKey(groupMeans(tasks, key), true)
}

func worstByKey(tasks []models.Task, key func(models.Task) (string, bool)) string {
	return extremeKey(groupMeans(tasks, key), false)
}

func extremeKey(means map[string]float64, max bool) string {
	keys := make([]string, 0, len(means))
	for k := range means {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	best := ""
	for _, k := range keys {
		if best == "" {
			best = k
			continue
		}
		if (max && means[k] > means[best]) || (!max && means[k] < means[best]) {
			best = k
		}
	}
	return best
}

func leastDistractingType(tasks []models.Task) string {
	sums := make(map[string]float64)
	counts := make(map[string]float64)
	for _, t := range tasks {
		if t.DistractionScore == nil {
			continue
		}
		sums[string(t.Type)] += *t.DistractionScore
		counts[string(t.Type)]++
	}
	means := make(map[string]float64, len(sums))
	for k := range sums {
		means[k] = sums[k] / counts[k]
	}
	return extremeKey(means, false)
}

func mostCommon(tasks []models.Task, key func(models.Task) (string, bool)) string {
	counts := make(map[string]float64)
	for _, t := range tasks {
		if k, ok := key(t); ok {
			counts[k]++
		}
	}
	return extremeKey(counts, true)
}

// hourlyProductivity maps completion hour (as a string key, "0".."23") to
// mean productivity for that hour.
func hourlyProductivity(tasks []models.Task) map[string]float64 {
	return meanByKey(tasks, func(t models.Task) (string, bool) {
		if t.CompletedAt.IsZero() {
			return "", false
		}
		return strconv.Itoa(t.CompletedAt.Hour()), true
	})
}

// highImpactHours returns up to n completion hours with the highest mean
// productivity, best first.
func highImpactHours(tasks []models.Task, n int) []int {
	means := groupMeans(tasks, func(t models.Task) (string, bool) {
		if t.CompletedAt.IsZero() {
			return "", false
		}
		return strconv.Itoa(t.CompletedAt.Hour()), true
	})

	hours := make([]int, 0, len(means))
	for k := range means {
		h, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		mi := means[strconv.Itoa(hours[i])]
		mj := means[strconv.Itoa(hours[j])]
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

func weekendSplit(tasks []models.Task) map[string]float64 {
	return meanByKey(tasks, func(t models.Task) (string, bool) {
		if t.CompletedAt.IsZero() {
			return "", false
		}
		if features.IsWeekend(t.CompletedAt.Weekday()) {
			return "weekend", true
		}
		return "weekday", true
	})
}

// mostEfficientBlock is the time block with the best productivity earned per
// minute spent.
func mostEfficientBlock(tasks []models.Task) string {
	sums := make(map[string]float64)
	counts := make(map[string]float64)
	for _, t := range tasks {
		if t.CompletedAt.IsZero() || t.ProductivityScore == nil ||
			t.ActualTimeSpent == nil || *t.ActualTimeSpent <= 0 {
			continue
		}
		block := features.TimeOfDayBucket(t.CompletedAt.Hour())
		sums[block] += *t.ProductivityScore / *t.ActualTimeSpent
		counts[block]++
	}
	means := make(map[string]float64, len(sums))
	for k := range sums {
		means[k] = sums[k] / counts[k]
	}
	return extremeKey(means, true)
}

func mostProductiveTitle(tasks []models.Task) string {
	title := ""
	best := math.Inf(-1)
	for _, t := range tasks {
		if t.ProductivityScore != nil && *t.ProductivityScore > best {
			best = *t.ProductivityScore
			title = t.Title
		}
	}
	return title
}

// productivityTrend compares the mean of the most recent completions against
// the older remainder.
func productivityTrend(prod []float64) string {
	if len(prod) <= trendWindow {
		return "Not enough variation in task history to compute trend."
	}
	older := prod[:len(prod)-trendWindow]
	recent := prod[len(prod)-trendWindow:]
	delta := meanOrZero(recent) - meanOrZero(older)
	switch {
	case delta > 2:
		return "Improving"
	case delta < -2:
		return "Declining"
	default:
		return "Stable"
	}
}

// energyTrend fits a regression slope over recorded task energy snapshots in
// completion order.
func energyTrend(tasks []models.Task) string {
	xs := make([]float64, 0, len(tasks))
	ys := make([]float64, 0, len(tasks))
	for _, t := range tasks {
		if t.EnergyLevel == nil {
			continue
		}
		xs = append(xs, float64(len(xs)))
		ys = append(ys, *t.EnergyLevel)
	}
	if len(ys) < 3 {
		return "Not enough energy data to compute trend."
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	switch {
	case slope > 0.05:
		return "Rising"
	case slope < -0.05:
		return "Falling"
	default:
		return "Stable"
	}
}

// consistency is 100 minus the productivity standard deviation, floored at 0.
// A user who always scores the same gets 100.
func consistency(prod []float64) float64 {
	if len(prod) < 2 {
		return 100
	}
	score := 100 - stat.StdDev(prod, nil)
	if score < 0 {
		return 0
	}
	return score
}

func energyProductivityCorr(tasks []models.Task, user models.User) float64 {
	return pairCorr(tasks,
		func(t models.Task) (float64, bool) {
			if t.EnergyLevel != nil {
				return *t.EnergyLevel, true
			}
			if user.CurrentEnergyLevel > 0 {
				return user.CurrentEnergyLevel, true
			}
			return 0, false
		},
		func(t models.Task) (float64, bool) { return deref(t.ProductivityScore) })
}

func moodProductivityCorr(tasks []models.Task) float64 {
	return pairCorr(tasks,
		func(t models.Task) (float64, bool) {
			rank, ok := models.MoodRank[t.Mood]
			return rank, ok
		},
		func(t models.Task) (float64, bool) { return deref(t.ProductivityScore) })
}

// deadlinePressureImpact is the mean productivity difference between tasks
// completed under a tight deadline (under 24h from creation) and the rest.
func deadlinePressureImpact(tasks []models.Task) float64 {
	var tight, loose []float64
	for _, t := range tasks {
		if t.ProductivityScore == nil || t.Deadline.IsZero() || t.CreatedAt.IsZero() {
			continue
		}
		if t.Deadline.Sub(t.CreatedAt).Hours() < 24 {
			tight = append(tight, *t.ProductivityScore)
		} else {
			loose = append(loose, *t.ProductivityScore)
		}
	}
	if len(tight) == 0 || len(loose) == 0 {
		return 0
	}
	return round2(meanOrZero(tight) - meanOrZero(loose))
}

func energyDistribution(tasks []models.Task) map[string]float64 {
	counts := make(map[string]float64)
	for _, t := range tasks {
		if t.EnergyLevel == nil {
			continue
		}
		switch {
		case *t.EnergyLevel <= 3:
			counts["low"]++
		case *t.EnergyLevel <= 7:
			counts["medium"]++
		default:
			counts["high"]++
		}
	}
	return counts
}

func distribution(tasks []models.Task, key func(models.Task) (string, bool)) map[string]float64 {
	counts := make(map[string]float64)
	for _, t := range tasks {
		if k, ok := key(t); ok {
			counts[k]++
		}
	}
	return counts
}

// pairCorr computes the Pearson correlation over task pairs where both values
// are present. Degenerate series (under two pairs, or zero variance) yield 0.
func pairCorr(tasks []models.Task, x, y func(models.Task) (float64, bool)) float64 {
	var xs, ys []float64
	for _, t := range tasks {
		xv, xok := x(t)
		yv, yok := y(t)
		if xok && yok {
			xs = append(xs, xv)
			ys = append(ys, yv)
		}
	}
	if len(xs) < 2 {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func meanOrZero(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}

func stdDevOrZero(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	return stat.StdDev(vals, nil)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
