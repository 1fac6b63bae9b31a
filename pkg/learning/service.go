// Package learning is the application facade over the study core. A Service
// is built once at process start with every collaborator injected and is
// safe for concurrent use.
package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/papercomputeco/eduverse/pkg/cache"
	"github.com/papercomputeco/eduverse/pkg/eventstream"
	"github.com/papercomputeco/eduverse/pkg/fingerprint"
	"github.com/papercomputeco/eduverse/pkg/generator"
	"github.com/papercomputeco/eduverse/pkg/logger"
	"github.com/papercomputeco/eduverse/pkg/planner"
	"github.com/papercomputeco/eduverse/pkg/progress"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// Config wires a Service.
type Config struct {
	Cache     *cache.Store
	Tracker   *progress.Tracker
	Planner   *planner.Planner
	Generator generator.Generator

	// Events receives study events. Nil disables publishing. Publish must not
	// block; wrap slow transports in a worker.Pool.
	Events eventstream.Publisher

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Service ties the cache, the assessment tracker and the planner together.
type Service struct {
	cache     *cache.Store
	tracker   *progress.Tracker
	planner   *planner.Planner
	generator generator.Generator
	events    eventstream.Publisher
	now       func() time.Time
	logger    *slog.Logger

	inflight  singleflight.Group
	flightsMu sync.Mutex
	flights   map[string]*flight
}

// Assessment is a completed assessment submitted by a learner.
type Assessment struct {
	Kind              study.AssessmentKind `json:"kind"`
	Questions         []string             `json:"questions"`
	Answers           []study.Answer       `json:"answers"`
	Score             *float64             `json:"score"`
	WeakTopics        []string             `json:"weak_topics"`
	IsRetake          bool                 `json:"is_retake"`
	PreviousSessionID string               `json:"previous_session_id,omitempty"`
}

// CacheStatus lists, for one source, the kinds already cached and the study
// material still worth generating.
type CacheStatus struct {
	Fingerprint string              `json:"fingerprint"`
	Kinds       map[study.Kind]bool `json:"kinds"`
	Cached      []study.Kind        `json:"cached"`
	Suggested   []study.Kind        `json:"suggested"`
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	switch {
	case cfg.Cache == nil:
		return nil, errors.New("learning service requires a cache")
	case cfg.Tracker == nil:
		return nil, errors.New("learning service requires a progress tracker")
	case cfg.Planner == nil:
		return nil, errors.New("learning service requires a planner")
	case cfg.Generator == nil:
		return nil, errors.New("learning service requires a generator")
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		cache:     cfg.Cache,
		tracker:   cfg.Tracker,
		planner:   cfg.Planner,
		generator: cfg.Generator,
		events:    cfg.Events,
		now:       cfg.Now,
		logger:    logger.OrNop(cfg.Logger),
	}, nil
}

// GetOrGenerate returns the cached payload of kind for source, generating and
// caching it on a miss. force drops any cached copy first. Concurrent misses
// for the same source and kind share one generator call.
func (s *Service) GetOrGenerate(ctx context.Context, userID string, source study.Source, kind study.Kind, force bool) (study.Payload, error) {
	return s.getOrGenerate(ctx, userID, source, kind, force, planner.Standard())
}

// GetOrGenerateWithPlan is GetOrGenerate for assessment material: quizzes and
// verbal test questions follow the planner. A targeted plan is specific to the
// learner, so it always reaches the generator and its result is not cached.
func (s *Service) GetOrGenerateWithPlan(ctx context.Context, userID string, source study.Source, kind study.Kind, force, isRetake bool) (study.Payload, planner.Strategy, error) {
	if !kind.Valid() {
		return nil, planner.Strategy{}, fmt.Errorf("unknown content kind: %q", kind)
	}

	strategy := planner.Standard()
	if kind.IsAssessment() {
		strategy = s.planner.Plan(ctx, isRetake, userID, source.Fingerprint())
	}

	if !strategy.IsTargeted() {
		payload, err := s.getOrGenerate(ctx, userID, source, kind, force, strategy)
		return payload, strategy, err
	}

	payload, err := s.generate(ctx, userID, source, kind, strategy, force)
	if err != nil {
		return nil, strategy, err
	}
	return payload, strategy, nil
}

func (s *Service) getOrGenerate(ctx context.Context, userID string, source study.Source, kind study.Kind, force bool, strategy planner.Strategy) (study.Payload, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown content kind: %q", kind)
	}

	fp := source.Fingerprint()

	var err error
	for attempt := 1; attempt <= maxJoinAttempts; attempt++ {
		if force {
			s.cache.Invalidate(ctx, fp, kind)
		} else if payload, ok := s.cache.Get(ctx, fp, kind); ok {
			s.touch(ctx, userID, fp, kind)
			return payload, nil
		}

		var (
			payload study.Payload
			led     bool
		)
		payload, led, err = s.shared(ctx, userID, source, kind, force, strategy)
		if err == nil {
			// Callers that joined another caller's generation still need
			// their own ledger row.
			if !led {
				s.touch(ctx, userID, fp, kind)
			}
			return payload, nil
		}

		// The generation was abandoned by everyone else while this caller
		// still waits for it.
		if ctx.Err() != nil || !isContextErr(err) {
			return nil, err
		}
		s.logger.Debug("shared generation cancelled, retrying",
			"fingerprint", fp,
			"kind", kind,
			"attempt", attempt,
		)
		force = false
	}
	return nil, err
}

// shared runs one generation per cache key for all concurrent callers. The
// generator sees a context that ends only when every caller has gone, and the
// result is cached only if some caller is still waiting for it.
func (s *Service) shared(ctx context.Context, userID string, source study.Source, kind study.Kind, force bool, strategy planner.Strategy) (study.Payload, bool, error) {
	fp := source.Fingerprint()
	key := fingerprint.Key(fp, string(kind))

	f, w := s.join(ctx, key)
	defer func() {
		w.stop()
		s.leave(key, f, w)
	}()

	ch := s.inflight.DoChan(key, func() (any, error) {
		payload, err := s.generate(f.ctx, userID, source, kind, strategy, force)
		if err != nil {
			return nil, err
		}

		res := flightResult{payload: payload, leader: w}
		if !s.alive(f) {
			s.logger.Debug("generation finished after cancellation, not caching",
				"fingerprint", fp,
				"kind", kind,
			)
			return res, nil
		}

		if err := s.cache.Set(f.ctx, fp, kind, payload, userID, source.Title); err != nil {
			s.logger.Warn("caching generated content failed",
				"fingerprint", fp,
				"kind", kind,
				"error", err,
			)
		}
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, false, r.Err
		}
		res := r.Val.(flightResult)
		return res.payload, res.leader == w, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// generate calls the generator and publishes the content event.
func (s *Service) generate(ctx context.Context, userID string, source study.Source, kind study.Kind, strategy planner.Strategy, force bool) (study.Payload, error) {
	fp := source.Fingerprint()
	started := s.now()

	payload, err := s.generator.Generate(ctx, kind, source, strategy)
	if err != nil {
		s.logger.Error("content generation failed",
			"fingerprint", fp,
			"kind", kind,
			"error", err,
		)
		return nil, err
	}
	if err := study.CheckKind(kind, payload); err != nil {
		return nil, &generator.GenerationError{Kind: kind, Err: err}
	}

	size := 0
	if data, err := study.EncodePayload(payload); err == nil {
		size = len(data)
	}

	s.logger.Info("content generated",
		"user_id", userID,
		"fingerprint", fp,
		"kind", kind,
		"targeted", strategy.IsTargeted(),
	)

	s.publish(ctx, eventstream.NewContentGenerated(userID, fp, eventstream.ContentGenerated{
		Kind:        kind,
		SourceTitle: source.Title,
		SizeBytes:   size,
		Forced:      force,
		Targeted:    strategy.IsTargeted(),
		DurationMs:  s.now().Sub(started).Milliseconds(),
	}, s.now()))

	return payload, nil
}

func (s *Service) touch(ctx context.Context, userID, fp string, kind study.Kind) {
	ledger := s.cache.Ledger()
	if ledger == nil || userID == "" {
		return
	}
	if err := ledger.Touch(ctx, userID, fp, kind); err != nil {
		s.logger.Warn("cache ledger touch failed",
			"user_id", userID,
			"fingerprint", fp,
			"kind", kind,
			"error", err,
		)
	}
}

// RecordAssessment appends a completed assessment for source and returns the
// recomputed progress snapshot. Only validation and storage failures of the
// append itself are returned; the snapshot is nil when it could not be
// computed.
func (s *Service) RecordAssessment(ctx context.Context, userID string, source study.Source, a Assessment) (*study.ProgressSnapshot, error) {
	rec := &study.AssessmentRecord{
		UserID:            userID,
		Fingerprint:       source.Fingerprint(),
		Kind:              a.Kind,
		SourceTitle:       source.Title,
		Questions:         a.Questions,
		Answers:           a.Answers,
		Score:             a.Score,
		WeakTopics:        a.WeakTopics,
		IsRetake:          a.IsRetake,
		PreviousSessionID: a.PreviousSessionID,
	}

	stored, snapshot, err := s.tracker.Record(ctx, rec)
	if err != nil {
		return nil, err
	}

	s.logger.Info("assessment recorded",
		"user_id", stored.UserID,
		"fingerprint", stored.Fingerprint,
		"record_id", stored.ID,
		"kind", stored.Kind,
	)

	s.publish(ctx, eventstream.NewAssessmentRecorded(stored, snapshot, s.now()))

	return snapshot, nil
}

// GetProgress returns the learner's snapshot for source, or nil when there is
// no assessment yet.
func (s *Service) GetProgress(ctx context.Context, userID string, source study.Source) (*study.ProgressSnapshot, error) {
	return s.ProgressByFingerprint(ctx, userID, source.Fingerprint())
}

// ProgressByFingerprint is GetProgress for callers that only hold the
// fingerprint.
func (s *Service) ProgressByFingerprint(ctx context.Context, userID, fp string) (*study.ProgressSnapshot, error) {
	return s.tracker.Snapshot(ctx, userID, fp)
}

// PlanNextTest decides how the next assessment on source is generated.
func (s *Service) PlanNextTest(ctx context.Context, userID string, source study.Source, isRetake bool) planner.Strategy {
	return s.PlanByFingerprint(ctx, userID, source.Fingerprint(), isRetake)
}

// PlanByFingerprint is PlanNextTest keyed by fingerprint.
func (s *Service) PlanByFingerprint(ctx context.Context, userID, fp string, isRetake bool) planner.Strategy {
	return s.planner.Plan(ctx, isRetake, userID, fp)
}

// CacheStatus reports which kinds are cached for source.
func (s *Service) CacheStatus(ctx context.Context, source study.Source) CacheStatus {
	fp := source.Fingerprint()
	suggested, cached := s.cache.Suggestions(ctx, fp)
	return CacheStatus{
		Fingerprint: fp,
		Kinds:       s.cache.Status(ctx, fp),
		Cached:      cached,
		Suggested:   suggested,
	}
}

// Suggestions returns the study material kinds not yet generated for source.
func (s *Service) Suggestions(ctx context.Context, source study.Source) []study.Kind {
	suggested, _ := s.cache.Suggestions(ctx, source.Fingerprint())
	return suggested
}

// CacheStatistics summarizes the user's cached material.
func (s *Service) CacheStatistics(ctx context.Context, userID string) (cache.Statistics, error) {
	ledger := s.cache.Ledger()
	if ledger == nil {
		return cache.Statistics{}, nil
	}
	return ledger.Statistics(ctx, userID, s.now())
}

// Statistics summarizes the user's assessments by fingerprint, or across
// every source when fp is empty.
func (s *Service) Statistics(ctx context.Context, userID, fp string) (progress.Statistics, error) {
	return s.tracker.Statistics(ctx, userID, fp)
}

// Recommendations returns study advice for the user on fp.
func (s *Service) Recommendations(ctx context.Context, userID, fp string) ([]string, error) {
	return s.tracker.Recommendations(ctx, userID, fp)
}

// History returns the user's assessments on fp newest first, or every
// assessment of the user when fp is empty.
func (s *Service) History(ctx context.Context, userID, fp string) ([]*study.AssessmentRecord, error) {
	return s.tracker.History().Query(ctx, userID, fp)
}

// Sweep removes expired cache entries and ledger rows.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	ledger := s.cache.Ledger()
	if ledger == nil {
		return 0, nil
	}
	return ledger.SweepExpired(ctx, s.now())
}

func (s *Service) publish(ctx context.Context, event *eventstream.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("study event not published",
			"event_type", event.EventType,
			"event_id", event.EventID,
			"error", err,
		)
	}
}
