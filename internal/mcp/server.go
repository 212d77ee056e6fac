// Package mcp implements the Model Context Protocol server for taskmind.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskmindhq/taskmind/internal/analytics"
	"github.com/taskmindhq/taskmind/internal/etc"
	"github.com/taskmindhq/taskmind/internal/models"
	"github.com/taskmindhq/taskmind/internal/recommend"
)

// Server wraps an MCPServer with taskmind dependencies.
type Server struct {
	mcp       *mcpserver.MCPServer
	etc       *etc.Service
	recommend *recommend.Service
	analytics *analytics.Service
	logger    *slog.Logger
	clock     func() time.Time
}

// NewServer creates a new MCP server. If a service is nil, the corresponding
// tool calls return an error response instead of panicking.
func NewServer(etcSvc *etc.Service, recSvc *recommend.Service, anaSvc *analytics.Service, logger *slog.Logger) *Server {
	s := &Server{
		etc:       etcSvc,
		recommend: recSvc,
		analytics: anaSvc,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}

	mcpSrv := mcpserver.NewMCPServer(
		"taskmind",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
	)

	mcpSrv.AddTool(buildPredictETCTool(), s.handlePredictETC)
	mcpSrv.AddTool(buildRecommendTaskTool(), s.handleRecommendTask)
	mcpSrv.AddTool(buildUserInsightsTool(), s.handleUserInsights)

	s.mcp = mcpSrv
	return s
}

// MCPServer returns the underlying mcp-go MCPServer for use with ServeStdio.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcp
}

// SetClock overrides the server's notion of now. Test hook.
func (s *Server) SetClock(clock func() time.Time) { s.clock = clock }

// HandlePredictETC is the exported handler for the "predict_etc" tool.
// It is exposed for direct testing without the mcp-go transport layer.
func (s *Server) HandlePredictETC(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handlePredictETC(ctx, req)
}

// HandleRecommendTask is the exported handler for the "recommend_task" tool.
func (s *Server) HandleRecommendTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleRecommendTask(ctx, req)
}

// HandleUserInsights is the exported handler for the "user_insights" tool.
func (s *Server) HandleUserInsights(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	return s.handleUserInsights(ctx, req)
}

// --- helpers ---

// toolResultJSON marshals v to JSON and returns it as a tool text result.
func toolResultJSON(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("mcp: marshaling result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

// --- tool definitions ---

func buildPredictETCTool() mcpgo.Tool {
	return mcpgo.NewTool("predict_etc",
		mcpgo.WithDescription("Predict the estimated time to completion for a task, training the user's model on demand if it is stale."),
		mcpgo.WithString("user_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the user the task belongs to"),
		),
		mcpgo.WithString("type",
			mcpgo.Description("Task type: Work, Study, or Personal"),
		),
		mcpgo.WithString("priority",
			mcpgo.Description("Task priority: High, Medium, or Low (default: Medium)"),
		),
		mcpgo.WithString("title",
			mcpgo.Description("Task title"),
		),
		mcpgo.WithString("description",
			mcpgo.Description("Task description"),
		),
		mcpgo.WithString("deadline",
			mcpgo.Description("Task deadline in RFC 3339 format"),
		),
	)
}

func buildRecommendTaskTool() mcpgo.Tool {
	return mcpgo.NewTool("recommend_task",
		mcpgo.WithDescription("Recommend which pending task the user should work on now, ranked by predicted productivity."),
		mcpgo.WithString("user_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the user to recommend for"),
		),
	)
}

func buildUserInsightsTool() mcpgo.Tool {
	return mcpgo.NewTool("user_insights",
		mcpgo.WithDescription("Compute productivity insights over the user's completed-task history: best hours, trends, correlations, distributions."),
		mcpgo.WithString("user_id",
			mcpgo.Required(),
			mcpgo.Description("The ID of the user to analyze"),
		),
	)
}

// --- tool handlers ---

// handlePredictETC estimates time to completion for a described task.
func (s *Server) handlePredictETC(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.etc == nil {
		return mcpgo.NewToolResultError("prediction service is unavailable"), nil
	}

	userID := req.GetString("user_id", "")
	if strings.TrimSpace(userID) == "" {
		return mcpgo.NewToolResultError("user_id is required and must not be empty"), nil
	}

	predictReq := etc.Request{
		UserID:      userID,
		Title:       req.GetString("title", ""),
		Description: req.GetString("description", ""),
	}

	if t := req.GetString("type", ""); t != "" {
		candidate := models.TaskType(t)
		if !candidate.IsValid() {
			return mcpgo.NewToolResultErrorf("invalid type %q: must be one of Work, Study, Personal", t), nil
		}
		predictReq.Type = candidate
	}
	if p := req.GetString("priority", ""); p != "" {
		candidate := models.Priority(p)
		if !candidate.IsValid() {
			return mcpgo.NewToolResultErrorf("invalid priority %q: must be one of High, Medium, Low", p), nil
		}
		predictReq.Priority = candidate
	}
	if d := req.GetString("deadline", ""); d != "" {
		deadline, err := time.Parse(time.RFC3339, d)
		if err != nil {
			return mcpgo.NewToolResultErrorf("invalid deadline %q: must be RFC 3339", d), nil
		}
		predictReq.Deadline = deadline
	}

	pred, err := s.etc.Predict(ctx, predictReq, s.clock())
	if err != nil {
		return mcpgo.NewToolResultErrorf("prediction failed: %s", err.Error()), nil
	}

	s.logger.Info("mcp: predict_etc resolved", "user", userID, "minutes", pred.EstimatedMinutes)

	result := map[string]any{
		"estimated_minutes": pred.EstimatedMinutes,
		"formatted":         pred.Formatted,
	}
	return toolResultJSON(result)
}

// handleRecommendTask picks the pending task with the best predicted
// productivity.
func (s *Server) handleRecommendTask(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.recommend == nil {
		return mcpgo.NewToolResultError("recommendation service is unavailable"), nil
	}

	userID := req.GetString("user_id", "")
	if strings.TrimSpace(userID) == "" {
		return mcpgo.NewToolResultError("user_id is required and must not be empty"), nil
	}

	res, err := s.recommend.Recommend(ctx, recommend.Request{UserID: userID}, s.clock())
	if err != nil {
		return mcpgo.NewToolResultErrorf("recommendation failed: %s", err.Error()), nil
	}

	if res.RecommendedTaskID == "" {
		return toolResultJSON(map[string]any{"message": "No pending tasks to recommend."})
	}

	s.logger.Info("mcp: recommend_task resolved", "user", userID, "task", res.RecommendedTaskID)

	result := map[string]any{
		"recommended_task_id": res.RecommendedTaskID,
	}
	return toolResultJSON(result)
}

// handleUserInsights computes the analytics insight map.
func (s *Server) handleUserInsights(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if s.analytics == nil {
		return mcpgo.NewToolResultError("analytics service is unavailable"), nil
	}

	userID := req.GetString("user_id", "")
	if strings.TrimSpace(userID) == "" {
		return mcpgo.NewToolResultError("user_id is required and must not be empty"), nil
	}

	res, err := s.analytics.Insights(ctx, analytics.Request{UserID: userID}, s.clock())
	if err != nil {
		return mcpgo.NewToolResultErrorf("insights failed: %s", err.Error()), nil
	}

	return toolResultJSON(res)
}
