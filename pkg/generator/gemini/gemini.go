// Package gemini implements pkg/generator's Generator with Google's Gemini
// models through the google.golang.org/genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/papercomputeco/eduverse/pkg/generator"
	"github.com/papercomputeco/eduverse/pkg/logger"
	"github.com/papercomputeco/eduverse/pkg/planner"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// DefaultModel is the model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrMissingAPIKey is returned by NewGenerator without an API key.
var ErrMissingAPIKey = errors.New("gemini API key not configured")

// modelsAPI is the subset of *genai.Models the generator calls.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds configuration for the Gemini generator.
type Config struct {
	// APIKey is the Gemini API key.
	APIKey string

	// Model defaults to DefaultModel if empty.
	Model string

	Logger *slog.Logger
}

// Generator wraps the Gemini content generation API.
type Generator struct {
	models modelsAPI
	model  string
	logger *slog.Logger
}

// NewGenerator creates a generator backed by the Gemini API.
func NewGenerator(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return newGenerator(client.Models, cfg), nil
}

func newGenerator(models modelsAPI, cfg Config) *Generator {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Generator{
		models: models,
		model:  model,
		logger: logger.OrNop(cfg.Logger),
	}
}

// Generate asks the model for a JSON document of kind's shape and decodes it.
func (g *Generator) Generate(ctx context.Context, kind study.Kind, source study.Source, strategy planner.Strategy) (study.Payload, error) {
	if !kind.Valid() {
		return nil, &generator.GenerationError{Kind: kind, Err: fmt.Errorf("unsupported kind %q", kind)}
	}

	prompt := buildPrompt(kind, source, strategy)

	g.logger.Debug("requesting generation",
		"model", g.model,
		"kind", kind,
		"mode", strategy.Mode,
		"prompt_bytes", len(prompt),
	)

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, &generator.GenerationError{Kind: kind, Err: err}
	}

	text := stripFence(resp.Text())
	if text == "" {
		return nil, &generator.GenerationError{Kind: kind, Err: errors.New("empty response")}
	}

	payload, err := study.DecodePayload(kind, []byte(text))
	if err != nil {
		return nil, &generator.GenerationError{Kind: kind, Err: err}
	}

	return payload, nil
}

// stripFence removes a markdown code fence the model may wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
