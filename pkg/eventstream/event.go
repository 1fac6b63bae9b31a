package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/eduverse/pkg/study"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeContentGenerated is emitted after generated material is cached.
	EventTypeContentGenerated = "study.content.generated"

	// EventTypeAssessmentRecorded is emitted after an assessment is appended.
	EventTypeAssessmentRecorded = "study.assessment.recorded"
)

// Event is a transport-neutral study event. Exactly one of Content and
// Assessment is set, matching EventType.
type Event struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	UserID        string    `json:"user_id"`
	Fingerprint   string    `json:"fingerprint"`

	Content    *ContentGenerated   `json:"content,omitempty"`
	Assessment *AssessmentRecorded `json:"assessment,omitempty"`
}

// Key groups the events of one learner and source. Transports that partition
// use it to keep those events ordered.
func (e *Event) Key() string {
	return e.UserID + "/" + e.Fingerprint
}

// ContentGenerated describes freshly generated material.
type ContentGenerated struct {
	Kind        study.Kind `json:"kind"`
	SourceTitle string     `json:"source_title,omitempty"`
	SizeBytes   int        `json:"size_bytes"`
	Forced      bool       `json:"forced"`
	Targeted    bool       `json:"targeted"`
	DurationMs  int64      `json:"duration_ms"`
}

// AssessmentRecorded describes an appended assessment and the progress it
// produced.
type AssessmentRecorded struct {
	RecordID      string               `json:"record_id"`
	Kind          study.AssessmentKind `json:"kind"`
	Score         *float64             `json:"score"`
	WeakTopics    []string             `json:"weak_topics"`
	IsRetake      bool                 `json:"is_retake"`
	TotalSessions int                  `json:"total_sessions,omitempty"`
	AverageScore  float64              `json:"average_score,omitempty"`
	RecentTrend   float64              `json:"recent_trend,omitempty"`
}

func newEvent(eventType, userID, fp string, now time.Time) *Event {
	return &Event{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       uuid.NewString(),
		EmittedAt:     now,
		UserID:        userID,
		Fingerprint:   fp,
	}
}

// NewContentGenerated builds a study.content.generated event.
func NewContentGenerated(userID, fp string, content ContentGenerated, now time.Time) *Event {
	e := newEvent(EventTypeContentGenerated, userID, fp, now)
	e.Content = &content
	return e
}

// NewAssessmentRecorded builds a study.assessment.recorded event from the
// stored record and, when available, the recomputed snapshot.
func NewAssessmentRecorded(rec *study.AssessmentRecord, snapshot *study.ProgressSnapshot, now time.Time) *Event {
	e := newEvent(EventTypeAssessmentRecorded, rec.UserID, rec.Fingerprint, now)
	e.Assessment = &AssessmentRecorded{
		RecordID:   rec.ID,
		Kind:       rec.Kind,
		Score:      rec.Score,
		WeakTopics: rec.WeakTopics,
		IsRetake:   rec.IsRetake,
	}
	if snapshot != nil {
		e.Assessment.TotalSessions = snapshot.TotalSessions
		e.Assessment.AverageScore = snapshot.AverageScore
		e.Assessment.RecentTrend = snapshot.RecentTrend
	}
	return e
}
