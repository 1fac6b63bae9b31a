// Package planner chooses how the next set of assessment questions is
// generated: a standard sample of the source, or a set targeted at the
// learner's persistent weak topics.
package planner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/eduverse/pkg/logger"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// Mode distinguishes standard from targeted generation.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeTargeted Mode = "targeted"
)

// Difficulty adjusts the difficulty of generated questions.
type Difficulty string

const (
	DifficultyNone   Difficulty = "none"
	DifficultyEasier Difficulty = "easier"
	DifficultyHarder Difficulty = "harder"
)

// ParseDifficulty accepts "", "none", "easier" and "harder".
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case "":
		return DifficultyNone, nil
	case DifficultyNone, DifficultyEasier, DifficultyHarder:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty: %q", s)
	}
}

// DefaultQuestionCount is the number of questions asked per assessment.
const DefaultQuestionCount = 5

// Strategy tells the generator what to produce.
type Strategy struct {
	Mode          Mode       `json:"mode"`
	WeakTopics    []string   `json:"weak_topics,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
	QuestionCount int        `json:"question_count"`
	IncludeReview bool       `json:"include_review"`
}

// Standard is the default generation strategy.
func Standard() Strategy {
	return Strategy{
		Mode:          ModeStandard,
		Difficulty:    DifficultyNone,
		QuestionCount: DefaultQuestionCount,
	}
}

// Targeted biases generation toward topics.
func Targeted(topics []string) Strategy {
	s := Standard()
	s.Mode = ModeTargeted
	s.WeakTopics = append([]string(nil), topics...)
	return s
}

// IsTargeted reports whether s focuses on weak topics.
func (s Strategy) IsTargeted() bool {
	return s.Mode == ModeTargeted
}

// Config holds the adaptive assessment settings.
type Config struct {
	FocusOnWeakTopics bool
	Difficulty        Difficulty
	QuestionCount     int
	IncludeReview     bool
}

// NewDefaultConfig focuses retakes on weak topics with five questions.
func NewDefaultConfig() Config {
	return Config{
		FocusOnWeakTopics: true,
		Difficulty:        DifficultyNone,
		QuestionCount:     DefaultQuestionCount,
	}
}

// SnapshotReader looks up the progress snapshot for (userID, fp). A nil
// snapshot with a nil error means none exists.
type SnapshotReader interface {
	Snapshot(ctx context.Context, userID, fp string) (*study.ProgressSnapshot, error)
}

// Planner picks a Strategy from the learner's progress.
type Planner struct {
	snapshots SnapshotReader
	cfg       Config
	logger    *slog.Logger
}

// New creates a Planner.
func New(snapshots SnapshotReader, cfg Config, log *slog.Logger) *Planner {
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = DefaultQuestionCount
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = DifficultyNone
	}
	return &Planner{
		snapshots: snapshots,
		cfg:       cfg,
		logger:    logger.OrNop(log),
	}
}

// Plan returns a targeted strategy for a retake when weak-topic focus is on
// and the learner has persistent weak topics for fp. Every other case,
// including a failed snapshot lookup, gets the standard strategy.
func (p *Planner) Plan(ctx context.Context, isRetake bool, userID, fp string) Strategy {
	strategy := p.apply(Standard())

	if !isRetake || !p.cfg.FocusOnWeakTopics {
		return strategy
	}

	snapshot, err := p.snapshots.Snapshot(ctx, userID, fp)
	if err != nil {
		p.logger.Warn("progress lookup failed, planning a standard test",
			"user_id", userID,
			"fingerprint", fp,
			"error", err,
		)
		return strategy
	}

	if snapshot == nil || len(snapshot.OverallWeakTopics) == 0 {
		return strategy
	}

	return p.apply(Targeted(snapshot.OverallWeakTopics))
}

func (p *Planner) apply(s Strategy) Strategy {
	s.Difficulty = p.cfg.Difficulty
	s.QuestionCount = p.cfg.QuestionCount
	s.IncludeReview = p.cfg.IncludeReview
	return s
}
