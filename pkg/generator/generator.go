// Package generator defines the contract for producing study material from a
// source with a generative model.
package generator

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/eduverse/pkg/planner"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// ErrGenerationUnavailable is matched by every failure of the generation
// backend.
var ErrGenerationUnavailable = errors.New("generation unavailable")

// Generator produces a payload of kind for source, following strategy for
// question-bearing kinds.
type Generator interface {
	Generate(ctx context.Context, kind study.Kind, source study.Source, strategy planner.Strategy) (study.Payload, error)
}

// GenerationError wraps a backend failure for Kind.
type GenerationError struct {
	Kind study.Kind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating %s: %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGenerationUnavailable, e.Err}
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, kind study.Kind, source study.Source, strategy planner.Strategy) (study.Payload, error)

// Generate calls f.
func (f Func) Generate(ctx context.Context, kind study.Kind, source study.Source, strategy planner.Strategy) (study.Payload, error) {
	return f(ctx, kind, source, strategy)
}
