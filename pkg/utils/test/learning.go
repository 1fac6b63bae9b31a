package testutils

import (
	"context"
	"time"

	"github.com/papercomputeco/eduverse/pkg/cache"
	"github.com/papercomputeco/eduverse/pkg/learning"
	"github.com/papercomputeco/eduverse/pkg/planner"
	"github.com/papercomputeco/eduverse/pkg/progress"
	"github.com/papercomputeco/eduverse/pkg/storage/inmemory"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// LearningHarness is a learning.Service over an in-memory driver, a fake
// generator and a recording publisher, read through a manual clock.
type LearningHarness struct {
	Service   *learning.Service
	Driver    *inmemory.Driver
	Generator *FakeGenerator
	Events    *RecordingPublisher
	Clock     *Clock
}

// NewLearningHarness wires a harness with default cache and planner settings.
func NewLearningHarness() (*LearningHarness, error) {
	h := &LearningHarness{
		Driver:    inmemory.NewDriver(),
		Generator: NewFakeGenerator(),
		Events:    NewRecordingPublisher(),
		Clock:     NewClock(),
	}

	cacheCfg := cache.NewDefaultConfig(h.Driver)
	cacheCfg.Now = h.Clock.Now
	store, err := cache.New(cacheCfg)
	if err != nil {
		return nil, err
	}

	tracker := progress.NewTracker(progress.Config{Driver: h.Driver, Now: h.Clock.Now})

	h.Service, err = learning.New(learning.Config{
		Cache:     store,
		Tracker:   tracker,
		Planner:   planner.New(tracker, planner.NewDefaultConfig(), nil),
		Generator: h.Generator,
		Events:    h.Events,
		Now:       h.Clock.Now,
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Record submits a graded verbal test on source and advances the clock an
// hour.
func (h *LearningHarness) Record(ctx context.Context, userID string, source study.Source, score float64, topics ...string) (*study.ProgressSnapshot, error) {
	if topics == nil {
		topics = []string{}
	}
	snapshot, err := h.Service.RecordAssessment(ctx, userID, source, learning.Assessment{
		Kind:       study.AssessmentVerbalTest,
		Questions:  []string{"Explain the topic."},
		Answers:    []study.Answer{{Question: "Explain the topic.", Answer: "It depends."}},
		Score:      Score(score),
		WeakTopics: topics,
	})
	h.Clock.Advance(time.Hour)
	return snapshot, err
}
