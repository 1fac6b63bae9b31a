package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/eduverse/pkg/generator"
	"github.com/papercomputeco/eduverse/pkg/learning"
	"github.com/papercomputeco/eduverse/pkg/planner"
	"github.com/papercomputeco/eduverse/pkg/progress"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ContentRequest asks for study material generated from a source.
type ContentRequest struct {
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Kind     string `json:"kind"`
	Force    bool   `json:"force"`
	IsRetake bool   `json:"is_retake"`
}

// ContentResponse carries generated or cached study material.
type ContentResponse struct {
	Fingerprint string            `json:"fingerprint"`
	Kind        study.Kind        `json:"kind"`
	Payload     study.Payload     `json:"payload"`
	Strategy    *planner.Strategy `json:"strategy,omitempty"`
}

// AssessmentRequest submits a completed assessment on a source.
type AssessmentRequest struct {
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	learning.Assessment
}

// AssessmentResponse returns the progress snapshot after an assessment.
type AssessmentResponse struct {
	Fingerprint string                  `json:"fingerprint"`
	Snapshot    *study.ProgressSnapshot `json:"snapshot"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleGetOrGenerate handles POST /content. Quizzes and verbal tests are
// planned against the learner's progress first.
func (s *Server) handleGetOrGenerate(c *fiber.Ctx) error {
	var req ContentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.UserID == "" {
		return badRequest(c, "user_id is required")
	}
	if req.Content == "" {
		return badRequest(c, "content is required")
	}

	kind, err := study.ParseKind(req.Kind)
	if err != nil {
		return badRequest(c, err.Error())
	}

	source := study.Source{Title: req.Title, Content: req.Content}
	resp := ContentResponse{
		Fingerprint: source.Fingerprint(),
		Kind:        kind,
	}

	if kind.IsAssessment() {
		payload, strategy, err := s.service.GetOrGenerateWithPlan(c.Context(), req.UserID, source, kind, req.Force, req.IsRetake)
		if err != nil {
			return s.generationFailed(c, err)
		}
		resp.Payload = payload
		resp.Strategy = &strategy
	} else {
		payload, err := s.service.GetOrGenerate(c.Context(), req.UserID, source, kind, req.Force)
		if err != nil {
			return s.generationFailed(c, err)
		}
		resp.Payload = payload
	}

	return c.JSON(resp)
}

// handleContentStatus handles GET /content/status?title=&content=.
func (s *Server) handleContentStatus(c *fiber.Ctx) error {
	content := c.Query("content")
	if content == "" {
		return badRequest(c, "content query parameter is required")
	}

	source := study.Source{Title: c.Query("title"), Content: content}
	return c.JSON(s.service.CacheStatus(c.Context(), source))
}

// handleRecordAssessment handles POST /assessments.
func (s *Server) handleRecordAssessment(c *fiber.Ctx) error {
	var req AssessmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	source := study.Source{Title: req.Title, Content: req.Content}
	snapshot, err := s.service.RecordAssessment(c.Context(), req.UserID, source, req.Assessment)
	if err != nil {
		var verr *progress.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:  progress.ErrValidation.Error(),
				Fields: verr.Fields,
			})
		}
		s.logger.Error("failed to record assessment",
			"user_id", req.UserID,
			"error", err,
		)
		return internalError(c, "failed to record assessment")
	}

	return c.Status(fiber.StatusCreated).JSON(AssessmentResponse{
		Fingerprint: source.Fingerprint(),
		Snapshot:    snapshot,
	})
}

// handleListAssessments handles GET /assessments?user_id=&fingerprint=.
func (s *Server) handleListAssessments(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return badRequest(c, "user_id query parameter is required")
	}

	records, err := s.service.History(c.Context(), userID, c.Query("fingerprint"))
	if err != nil {
		return internalError(c, "failed to list assessments")
	}
	if records == nil {
		records = []*study.AssessmentRecord{}
	}

	return c.JSON(records)
}

// handleGetProgress handles GET /progress/:user_id/:fingerprint.
func (s *Server) handleGetProgress(c *fiber.Ctx) error {
	snapshot, err := s.service.ProgressByFingerprint(c.Context(), c.Params("user_id"), c.Params("fingerprint"))
	if err != nil {
		return internalError(c, "failed to read progress")
	}
	if snapshot == nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "no progress recorded"})
	}

	return c.JSON(snapshot)
}

// handleRecommendations handles GET /progress/:user_id/:fingerprint/recommendations.
func (s *Server) handleRecommendations(c *fiber.Ctx) error {
	recs, err := s.service.Recommendations(c.Context(), c.Params("user_id"), c.Params("fingerprint"))
	if err != nil {
		return internalError(c, "failed to build recommendations")
	}

	return c.JSON(fiber.Map{"recommendations": recs})
}

// handleStatistics handles GET /progress/:user_id/:fingerprint/statistics.
func (s *Server) handleStatistics(c *fiber.Ctx) error {
	stats, err := s.service.Statistics(c.Context(), c.Params("user_id"), c.Params("fingerprint"))
	if err != nil {
		return internalError(c, "failed to compute statistics")
	}

	return c.JSON(stats)
}

// handlePlan handles GET /plan/:user_id/:fingerprint?retake=true.
func (s *Server) handlePlan(c *fiber.Ctx) error {
	strategy := s.service.PlanByFingerprint(c.Context(), c.Params("user_id"), c.Params("fingerprint"), c.QueryBool("retake"))
	return c.JSON(strategy)
}

// handleCacheStats handles GET /cache/stats/:user_id.
func (s *Server) handleCacheStats(c *fiber.Ctx) error {
	stats, err := s.service.CacheStatistics(c.Context(), c.Params("user_id"))
	if err != nil {
		return internalError(c, "failed to read cache statistics")
	}

	return c.JSON(stats)
}

// handleSweep handles POST /cache/sweep.
func (s *Server) handleSweep(c *fiber.Ctx) error {
	removed, err := s.service.Sweep(c.Context())
	if err != nil {
		s.logger.Error("cache sweep failed", "error", err)
		return internalError(c, "cache sweep failed")
	}

	return c.JSON(fiber.Map{"removed": removed})
}

func (s *Server) generationFailed(c *fiber.Ctx, err error) error {
	s.logger.Error("study content unavailable", "error", err)
	if errors.Is(err, generator.ErrGenerationUnavailable) {
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: err.Error()})
	}
	return internalError(c, "failed to produce study content")
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}

func internalError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: msg})
}
