package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/eduverse/pkg/study"
)

var (
	progressToolName    = "get_progress"
	progressDescription = "Get a learner's progress on one source: sessions taken, average and best score, recent trend, persistent weak topics and study recommendations."

	planToolName    = "plan_next_test"
	planDescription = "Decide how the learner's next test on a source should be generated. Retakes focus on persistent weak topics when there are any."
)

// ProgressInput identifies a learner and a source fingerprint.
type ProgressInput struct {
	UserID      string `json:"user_id" jsonschema:"the learner's user id"`
	Fingerprint string `json:"fingerprint" jsonschema:"the source fingerprint"`
}

// ProgressOutput is the result of the get_progress tool.
type ProgressOutput struct {
	Found            bool     `json:"found"`
	TotalSessions    int      `json:"total_sessions"`
	AverageScore     float64  `json:"average_score"`
	BestScore        float64  `json:"best_score"`
	RecentTrend      float64  `json:"recent_trend"`
	WeakTopics       []string `json:"weak_topics"`
	ImprovementAreas []string `json:"improvement_areas"`
	LastSessionAt    string   `json:"last_session_at,omitempty"`
	Recommendations  []string `json:"recommendations"`
}

// PlanInput identifies the next test to plan.
type PlanInput struct {
	UserID      string `json:"user_id" jsonschema:"the learner's user id"`
	Fingerprint string `json:"fingerprint" jsonschema:"the source fingerprint"`
	IsRetake    bool   `json:"is_retake,omitempty" jsonschema:"whether the learner is retaking a test on this source"`
}

// PlanOutput is the result of the plan_next_test tool.
type PlanOutput struct {
	Mode          string   `json:"mode"`
	WeakTopics    []string `json:"weak_topics"`
	Difficulty    string   `json:"difficulty"`
	QuestionCount int      `json:"question_count"`
	IncludeReview bool     `json:"include_review"`
}

func (s *Server) handleGetProgress(ctx context.Context, _ *mcp.CallToolRequest, input ProgressInput) (*mcp.CallToolResult, ProgressOutput, error) {
	logger := s.config.Logger
	logger.Debug("MCP progress request",
		"user_id", input.UserID,
		"fingerprint", input.Fingerprint,
	)

	if input.UserID == "" || input.Fingerprint == "" {
		return errorResult("user_id and fingerprint are required"), progressOutput(nil, nil), nil
	}

	snapshot, err := s.config.Service.ProgressByFingerprint(ctx, input.UserID, input.Fingerprint)
	if err != nil {
		logger.Error("failed to read progress", "error", err)
		return errorResult(fmt.Sprintf("Failed to read progress: %v", err)), progressOutput(nil, nil), nil
	}

	recs, err := s.config.Service.Recommendations(ctx, input.UserID, input.Fingerprint)
	if err != nil {
		logger.Error("failed to build recommendations", "error", err)
		return errorResult(fmt.Sprintf("Failed to build recommendations: %v", err)), progressOutput(nil, nil), nil
	}

	return nil, progressOutput(snapshot, recs), nil
}

func (s *Server) handlePlanNextTest(ctx context.Context, _ *mcp.CallToolRequest, input PlanInput) (*mcp.CallToolResult, PlanOutput, error) {
	s.config.Logger.Debug("MCP plan request",
		"user_id", input.UserID,
		"fingerprint", input.Fingerprint,
		"is_retake", input.IsRetake,
	)

	if input.UserID == "" || input.Fingerprint == "" {
		return errorResult("user_id and fingerprint are required"), emptyPlan(), nil
	}

	strategy := s.config.Service.PlanByFingerprint(ctx, input.UserID, input.Fingerprint, input.IsRetake)

	return nil, PlanOutput{
		Mode:          string(strategy.Mode),
		WeakTopics:    nonNil(strategy.WeakTopics),
		Difficulty:    string(strategy.Difficulty),
		QuestionCount: strategy.QuestionCount,
		IncludeReview: strategy.IncludeReview,
	}, nil
}

// emptyPlan is the structured output sent with a plan_next_test error.
// Array fields must be non-null to satisfy the tool's output schema.
func emptyPlan() PlanOutput {
	return PlanOutput{WeakTopics: []string{}}
}

func progressOutput(snapshot *study.ProgressSnapshot, recs []string) ProgressOutput {
	out := ProgressOutput{
		WeakTopics:       []string{},
		ImprovementAreas: []string{},
		Recommendations:  nonNil(recs),
	}
	if snapshot == nil {
		return out
	}

	out.Found = true
	out.TotalSessions = snapshot.TotalSessions
	out.AverageScore = snapshot.AverageScore
	out.BestScore = snapshot.BestScore
	out.RecentTrend = snapshot.RecentTrend
	out.WeakTopics = nonNil(snapshot.OverallWeakTopics)
	out.ImprovementAreas = nonNil(snapshot.ImprovementAreas)
	if !snapshot.LastSessionAt.IsZero() {
		out.LastSessionAt = snapshot.LastSessionAt.UTC().Format(time.RFC3339)
	}
	return out
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
