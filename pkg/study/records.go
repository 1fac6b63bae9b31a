package study

import (
	"slices"
	"time"

	"github.com/papercomputeco/eduverse/pkg/fingerprint"
)

// Source is a piece of learning material content is generated from.
type Source struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Fingerprint returns the cache and history key for the source.
func (s Source) Fingerprint() string {
	return fingerprint.Fingerprint(s.Title, s.Content)
}

// CacheEntry is one generated artifact in the durable cache tier, keyed by
// (Fingerprint, Kind).
type CacheEntry struct {
	Fingerprint string    `json:"fingerprint"`
	Kind        Kind      `json:"kind"`
	Payload     []byte    `json:"payload"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// CacheMetadata summarizes what one user has cached for one fingerprint.
type CacheMetadata struct {
	UserID          string    `json:"user_id"`
	Fingerprint     string    `json:"fingerprint"`
	SourceTitle     string    `json:"source_title"`
	RegisteredKinds []Kind    `json:"registered_kinds"`
	AccessCount     int       `json:"access_count"`
	SizeBytes       int64     `json:"size_bytes"`
	LastAccessedAt  time.Time `json:"last_accessed_at"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// HasKind reports whether kind is registered.
func (m *CacheMetadata) HasKind(kind Kind) bool {
	return slices.Contains(m.RegisteredKinds, kind)
}

// AddKind registers kind, keeping RegisteredKinds sorted and unique.
func (m *CacheMetadata) AddKind(kind Kind) {
	if m.HasKind(kind) {
		return
	}
	m.RegisteredKinds = append(m.RegisteredKinds, kind)
	slices.Sort(m.RegisteredKinds)
}

// RemoveKind unregisters kind.
func (m *CacheMetadata) RemoveKind(kind Kind) {
	m.RegisteredKinds = slices.DeleteFunc(m.RegisteredKinds, func(k Kind) bool {
		return k == kind
	})
}

// Answer is one question/answer exchange of an assessment.
type Answer struct {
	Question string `json:"question" validate:"notblank"`
	Answer   string `json:"answer"`
}

// AssessmentRecord is an immutable, scored assessment attempt.
type AssessmentRecord struct {
	ID                string         `json:"id"`
	UserID            string         `json:"user_id" validate:"notblank"`
	Fingerprint       string         `json:"fingerprint" validate:"notblank"`
	Kind              AssessmentKind `json:"kind" validate:"required,oneof=quiz verbal_test targeted_quiz targeted_verbal_test"`
	SourceTitle       string         `json:"source_title,omitempty"`
	Questions         []string       `json:"questions"`
	Answers           []Answer       `json:"answers" validate:"dive"`
	Score             *float64       `json:"score" validate:"omitempty,gte=0,lte=100"`
	WeakTopics        []string       `json:"weak_topics" validate:"dive,notblank"`
	IsRetake          bool           `json:"is_retake"`
	PreviousSessionID string         `json:"previous_session_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// ProgressSnapshot is derived from a user's assessment history for one
// fingerprint.
type ProgressSnapshot struct {
	UserID            string    `json:"user_id"`
	Fingerprint       string    `json:"fingerprint"`
	OverallWeakTopics []string  `json:"overall_weak_topics"`
	ImprovementAreas  []string  `json:"improvement_areas"`
	TotalSessions     int       `json:"total_sessions"`
	AverageScore      float64   `json:"average_score"`
	BestScore         float64   `json:"best_score"`
	RecentTrend       float64   `json:"recent_trend"`
	LastSessionAt     time.Time `json:"last_session_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
