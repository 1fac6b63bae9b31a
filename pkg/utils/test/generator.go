package testutils

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/eduverse/pkg/planner"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// SamplePayload returns a small payload of kind.
func SamplePayload(kind study.Kind) study.Payload {
	switch kind {
	case study.KindSummary:
		return study.Summary{Text: "Sorting arranges items in order."}
	case study.KindFlashcards:
		return study.Flashcards{Cards: []study.Flashcard{
			{ID: 1, Question: "What is a pivot?", Answer: "The element partitions are built around.", Tag: "quicksort"},
		}}
	case study.KindQuiz:
		return study.Quiz{Questions: []study.QuizQuestion{
			{ID: 1, Question: "Best case of quicksort?", Options: []string{"O(n)", "O(n log n)"}, CorrectAnswer: "O(n log n)"},
		}}
	case study.KindDeepDive:
		return study.DeepDive{Text: "Merge sort is stable."}
	case study.KindSlides:
		return study.Slides{Slides: []study.Slide{{Title: "Sorting", Content: []string{"Comparison sorts"}}}}
	case study.KindVerbalTestQuestions:
		return study.VerbalTestQuestions{Questions: []string{"Explain recursion."}}
	default:
		return nil
	}
}

// GenerateCall is one recorded call to a FakeGenerator.
type GenerateCall struct {
	Kind     study.Kind
	Source   study.Source
	Strategy planner.Strategy
}

// FakeGenerator returns SamplePayload for every kind and records its calls.
type FakeGenerator struct {
	// Err, when set, is returned instead of a payload.
	Err error

	// Gate, when set, blocks every call until it is closed or the context
	// is done.
	Gate chan struct{}

	// Started receives one value per call when set.
	Started chan struct{}

	count atomic.Int64
	mu    sync.Mutex
	calls []GenerateCall
}

// NewFakeGenerator creates a FakeGenerator.
func NewFakeGenerator() *FakeGenerator {
	return &FakeGenerator{}
}

func (g *FakeGenerator) Generate(ctx context.Context, kind study.Kind, source study.Source, strategy planner.Strategy) (study.Payload, error) {
	g.count.Add(1)
	g.mu.Lock()
	g.calls = append(g.calls, GenerateCall{Kind: kind, Source: source, Strategy: strategy})
	g.mu.Unlock()

	if g.Started != nil {
		g.Started <- struct{}{}
	}

	if g.Gate != nil {
		select {
		case <-g.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if g.Err != nil {
		return nil, g.Err
	}
	return SamplePayload(kind), nil
}

// Count returns the number of Generate calls.
func (g *FakeGenerator) Count() int {
	return int(g.count.Load())
}

// Calls returns the recorded calls in order.
func (g *FakeGenerator) Calls() []GenerateCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GenerateCall(nil), g.calls...)
}
