package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmindhq/taskmind/internal/analytics"
	"github.com/taskmindhq/taskmind/internal/artifact"
	"github.com/taskmindhq/taskmind/internal/etc"
	"github.com/taskmindhq/taskmind/internal/freshness"
	"github.com/taskmindhq/taskmind/internal/models"
	"github.com/taskmindhq/taskmind/internal/pipeline"
	"github.com/taskmindhq/taskmind/internal/recommend"
	"github.com/taskmindhq/taskmind/internal/taskstore"
	"github.com/taskmindhq/taskmind/internal/training"
)

func ptr(v float64) *float64 { return &v }

// newMCPServer returns a Server over mock stores with a running pipeline.
func newMCPServer(t *testing.T) (*Server, *taskstore.MockStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tasks := taskstore.NewMockStore()
	tasks.AddUser(models.User{
		ID:                        "u1",
		BaselineProductivityScore: 55,
		BaselineDistractionScore:  40,
		CurrentMood:               models.MoodNeutral,
		CurrentEnergyLevel:        6,
	})
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		created := base.Add(time.Duration(i) * 24 * time.Hour)
		tasks.AddTask(models.Task{
			ID: "h" + string(rune('a'+i)), UserID: "u1", Title: "past work item",
			Type: models.TaskTypeWork, Priority: models.PriorityMedium,
			CreatedAt: created, UpdatedAt: created,
			Completed: true, CompletedAt: created.Add(2 * time.Hour),
			ActualTimeSpent:   ptr(40 + float64(i)*10),
			ProductivityScore: ptr(70 + float64(i)),
			DistractionScore:  ptr(30),
		})
	}

	artifacts := artifact.NewMockStore()
	trainer := training.NewTrainer(tasks, artifacts, logger)
	detector := freshness.NewDetector(artifacts, logger)

	pipe := pipeline.New(32, logger)
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

	srv := NewServer(
		etc.NewService(tasks, trainer, detector, pipe, logger),
		recommend.NewService(tasks, trainer, detector, pipe, logger),
		analytics.NewService(tasks, pipe, logger),
		logger)
	srv.SetClock(func() time.Time { return time.Date(2026, 3, 12, 10, 0, 0, 0, time.UTC) })
	return srv, tasks
}

// makeReq builds a CallToolRequest with the given string arguments.
func makeReq(toolName string, args map[string]any) mcpgo.CallToolRequest {
	req := mcpgo.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args
	return req
}

// textContent extracts the first TextContent string from a CallToolResult.
func textContent(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content, "expected at least one content item")
	tc, ok := result.Content[0].(mcpgo.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func TestMCPPredictETC_ReturnsEstimate(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandlePredictETC(context.Background(), makeReq("predict_etc", map[string]any{
		"user_id": "u1",
		"type":    "Work",
		"title":   "draft quarterly report",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "predict_etc returned error: %s", textContent(t, result))

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	minutes, ok := out["estimated_minutes"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, minutes, 0.0)
	assert.NotEmpty(t, out["formatted"])
}

func TestMCPPredictETC_MissingUserID(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandlePredictETC(context.Background(), makeReq("predict_etc", map[string]any{
		"type": "Work",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPPredictETC_InvalidType(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandlePredictETC(context.Background(), makeReq("predict_etc", map[string]any{
		"user_id": "u1",
		"type":    "Hobby",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "invalid type")
}

func TestMCPPredictETC_InvalidDeadline(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandlePredictETC(context.Background(), makeReq("predict_etc", map[string]any{
		"user_id":  "u1",
		"deadline": "tomorrow",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textContent(t, result), "RFC 3339")
}

func TestMCPRecommendTask_ReturnsPendingTask(t *testing.T) {
	srv, tasks := newMCPServer(t)
	created := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	tasks.AddTask(models.Task{
		ID: "p1", UserID: "u1", Title: "open item",
		Type: models.TaskTypeWork, Priority: models.PriorityHigh,
		CreatedAt: created, UpdatedAt: created,
	})

	result, err := srv.HandleRecommendTask(context.Background(), makeReq("recommend_task", map[string]any{
		"user_id": "u1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "recommend_task returned error: %s", textContent(t, result))

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, "p1", out["recommended_task_id"])
}

func TestMCPRecommendTask_NoPendingTasks(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleRecommendTask(context.Background(), makeReq("recommend_task", map[string]any{
		"user_id": "u1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, "No pending tasks to recommend.", out["message"])
}

func TestMCPUserInsights_ReturnsInsightMap(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleUserInsights(context.Background(), makeReq("user_insights", map[string]any{
		"user_id": "u1",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, "user_insights returned error: %s", textContent(t, result))

	var out analytics.Result
	require.NoError(t, json.Unmarshal([]byte(textContent(t, result)), &out))
	assert.Equal(t, "u1", out.UserID)
	assert.Contains(t, out.Insights, "completion_rate")
}

func TestMCPUserInsights_UnknownUser(t *testing.T) {
	srv, _ := newMCPServer(t)

	result, err := srv.HandleUserInsights(context.Background(), makeReq("user_insights", map[string]any{
		"user_id": "ghost",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPServer_ExposesUnderlyingServer(t *testing.T) {
	srv, _ := newMCPServer(t)
	assert.NotNil(t, srv.MCPServer())
}
