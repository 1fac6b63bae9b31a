package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/papercomputeco/eduverse/pkg/study"
)

type entryRow struct {
	Fingerprint string `db:"fingerprint"`
	Kind        string `db:"kind"`
	Payload     string `db:"payload"`
	CreatedAt   int64  `db:"created_at"`
	ExpiresAt   int64  `db:"expires_at"`
}

type metadataRow struct {
	UserID          string `db:"user_id"`
	Fingerprint     string `db:"fingerprint"`
	SourceTitle     string `db:"source_title"`
	RegisteredKinds string `db:"registered_kinds"`
	AccessCount     int    `db:"access_count"`
	SizeBytes       int64  `db:"size_bytes"`
	LastAccessedAt  int64  `db:"last_accessed_at"`
	CreatedAt       int64  `db:"created_at"`
	ExpiresAt       int64  `db:"expires_at"`
}

type recordRow struct {
	ID                string          `db:"id"`
	UserID            string          `db:"user_id"`
	Fingerprint       string          `db:"fingerprint"`
	Kind              string          `db:"kind"`
	SourceTitle       string          `db:"source_title"`
	Questions         string          `db:"questions"`
	Answers           string          `db:"answers"`
	Score             sql.NullFloat64 `db:"score"`
	WeakTopics        string          `db:"weak_topics"`
	IsRetake          bool            `db:"is_retake"`
	PreviousSessionID string          `db:"previous_session_id"`
	CreatedAt         int64           `db:"created_at"`
}

type snapshotRow struct {
	UserID            string  `db:"user_id"`
	Fingerprint       string  `db:"fingerprint"`
	OverallWeakTopics string  `db:"overall_weak_topics"`
	ImprovementAreas  string  `db:"improvement_areas"`
	TotalSessions     int     `db:"total_sessions"`
	AverageScore      float64 `db:"average_score"`
	BestScore         float64 `db:"best_score"`
	RecentTrend       float64 `db:"recent_trend"`
	LastSessionAt     int64   `db:"last_session_at"`
	UpdatedAt         int64   `db:"updated_at"`
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func newEntryRow(e *study.CacheEntry) entryRow {
	return entryRow{
		Fingerprint: e.Fingerprint,
		Kind:        string(e.Kind),
		Payload:     string(e.Payload),
		CreatedAt:   toNanos(e.CreatedAt),
		ExpiresAt:   toNanos(e.ExpiresAt),
	}
}

func (r entryRow) entry() *study.CacheEntry {
	return &study.CacheEntry{
		Fingerprint: r.Fingerprint,
		Kind:        study.Kind(r.Kind),
		Payload:     []byte(r.Payload),
		CreatedAt:   fromNanos(r.CreatedAt),
		ExpiresAt:   fromNanos(r.ExpiresAt),
	}
}

func newMetadataRow(m *study.CacheMetadata) (metadataRow, error) {
	kinds := m.RegisteredKinds
	if kinds == nil {
		kinds = []study.Kind{}
	}
	encoded, err := encodeJSON(kinds)
	if err != nil {
		return metadataRow{}, fmt.Errorf("encoding registered kinds: %w", err)
	}

	return metadataRow{
		UserID:          m.UserID,
		Fingerprint:     m.Fingerprint,
		SourceTitle:     m.SourceTitle,
		RegisteredKinds: encoded,
		AccessCount:     m.AccessCount,
		SizeBytes:       m.SizeBytes,
		LastAccessedAt:  toNanos(m.LastAccessedAt),
		CreatedAt:       toNanos(m.CreatedAt),
		ExpiresAt:       toNanos(m.ExpiresAt),
	}, nil
}

func (r metadataRow) metadata() (*study.CacheMetadata, error) {
	m := &study.CacheMetadata{
		UserID:         r.UserID,
		Fingerprint:    r.Fingerprint,
		SourceTitle:    r.SourceTitle,
		AccessCount:    r.AccessCount,
		SizeBytes:      r.SizeBytes,
		LastAccessedAt: fromNanos(r.LastAccessedAt),
		CreatedAt:      fromNanos(r.CreatedAt),
		ExpiresAt:      fromNanos(r.ExpiresAt),
	}
	if err := decodeJSON(r.RegisteredKinds, &m.RegisteredKinds); err != nil {
		return nil, fmt.Errorf("decoding registered kinds: %w", err)
	}
	return m, nil
}

func newRecordRow(rec *study.AssessmentRecord) (recordRow, error) {
	row := recordRow{
		ID:                rec.ID,
		UserID:            rec.UserID,
		Fingerprint:       rec.Fingerprint,
		Kind:              string(rec.Kind),
		SourceTitle:       rec.SourceTitle,
		IsRetake:          rec.IsRetake,
		PreviousSessionID: rec.PreviousSessionID,
		CreatedAt:         toNanos(rec.CreatedAt),
	}

	if rec.Score != nil {
		row.Score = sql.NullFloat64{Float64: *rec.Score, Valid: true}
	}

	var err error
	if row.Questions, err = encodeJSON(nonNil(rec.Questions)); err != nil {
		return recordRow{}, fmt.Errorf("encoding questions: %w", err)
	}
	answers := rec.Answers
	if answers == nil {
		answers = []study.Answer{}
	}
	if row.Answers, err = encodeJSON(answers); err != nil {
		return recordRow{}, fmt.Errorf("encoding answers: %w", err)
	}
	if row.WeakTopics, err = encodeJSON(nonNil(rec.WeakTopics)); err != nil {
		return recordRow{}, fmt.Errorf("encoding weak topics: %w", err)
	}

	return row, nil
}

func (r recordRow) record() (*study.AssessmentRecord, error) {
	rec := &study.AssessmentRecord{
		ID:                r.ID,
		UserID:            r.UserID,
		Fingerprint:       r.Fingerprint,
		Kind:              study.AssessmentKind(r.Kind),
		SourceTitle:       r.SourceTitle,
		IsRetake:          r.IsRetake,
		PreviousSessionID: r.PreviousSessionID,
		CreatedAt:         fromNanos(r.CreatedAt),
	}

	if r.Score.Valid {
		score := r.Score.Float64
		rec.Score = &score
	}

	if err := decodeJSON(r.Questions, &rec.Questions); err != nil {
		return nil, fmt.Errorf("decoding questions: %w", err)
	}
	if err := decodeJSON(r.Answers, &rec.Answers); err != nil {
		return nil, fmt.Errorf("decoding answers: %w", err)
	}
	if err := decodeJSON(r.WeakTopics, &rec.WeakTopics); err != nil {
		return nil, fmt.Errorf("decoding weak topics: %w", err)
	}

	return rec, nil
}

func newSnapshotRow(s *study.ProgressSnapshot) (snapshotRow, error) {
	row := snapshotRow{
		UserID:        s.UserID,
		Fingerprint:   s.Fingerprint,
		TotalSessions: s.TotalSessions,
		AverageScore:  s.AverageScore,
		BestScore:     s.BestScore,
		RecentTrend:   s.RecentTrend,
		LastSessionAt: toNanos(s.LastSessionAt),
		UpdatedAt:     toNanos(s.UpdatedAt),
	}

	var err error
	if row.OverallWeakTopics, err = encodeJSON(nonNil(s.OverallWeakTopics)); err != nil {
		return snapshotRow{}, fmt.Errorf("encoding weak topics: %w", err)
	}
	if row.ImprovementAreas, err = encodeJSON(nonNil(s.ImprovementAreas)); err != nil {
		return snapshotRow{}, fmt.Errorf("encoding improvement areas: %w", err)
	}

	return row, nil
}

func (r snapshotRow) snapshot() (*study.ProgressSnapshot, error) {
	s := &study.ProgressSnapshot{
		UserID:        r.UserID,
		Fingerprint:   r.Fingerprint,
		TotalSessions: r.TotalSessions,
		AverageScore:  r.AverageScore,
		BestScore:     r.BestScore,
		RecentTrend:   r.RecentTrend,
		LastSessionAt: fromNanos(r.LastSessionAt),
		UpdatedAt:     fromNanos(r.UpdatedAt),
	}

	if err := decodeJSON(r.OverallWeakTopics, &s.OverallWeakTopics); err != nil {
		return nil, fmt.Errorf("decoding weak topics: %w", err)
	}
	if err := decodeJSON(r.ImprovementAreas, &s.ImprovementAreas); err != nil {
		return nil, fmt.Errorf("decoding improvement areas: %w", err)
	}

	return s, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
