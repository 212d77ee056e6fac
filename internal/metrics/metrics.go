// Package metrics provides application-level counters using stdlib expvar.
// Counters are automatically exported on the /debug/vars HTTP endpoint
// when net/http/pprof is imported in the main binary.
package metrics

import "expvar"

// Operation counters.
var (
	PredictionsTotal = expvar.NewInt("taskmind_predictions_total")
	TrainingsTotal   = expvar.NewInt("taskmind_trainings_total")
	TrainingsSkipped = expvar.NewInt("taskmind_trainings_skipped_total")
	BootstrapUsed    = expvar.NewInt("taskmind_bootstrap_used_total")
	EncoderFallbacks = expvar.NewInt("taskmind_encoder_fallbacks_total")
	PipelineFailures = expvar.NewInt("taskmind_pipeline_failures_total")
	WriteBacksTotal  = expvar.NewInt("taskmind_writebacks_total")
	RecommendedTotal = expvar.NewInt("taskmind_recommendations_total")
	RemindersTotal   = expvar.NewInt("taskmind_reminders_total")
	InsightsTotal    = expvar.NewInt("taskmind_insights_total")
)

// PipelineDepth tracks the number of queued, unprocessed pipeline jobs.
var PipelineDepth = expvar.NewInt("taskmind_pipeline_depth")

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
