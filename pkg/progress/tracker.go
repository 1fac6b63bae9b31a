package progress

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/eduverse/pkg/storage"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// Tracker appends assessments and keeps the progress snapshot of each
// (user, fingerprint) in step with its history.
type Tracker struct {
	history *History
	driver  storage.AssessmentDriver
	now     func() time.Time
	logger  *slog.Logger
}

// NewTracker creates a Tracker over cfg.Driver.
func NewTracker(cfg Config) *Tracker {
	cfg = cfg.withDefaults()
	return &Tracker{
		history: NewHistory(cfg),
		driver:  cfg.Driver,
		now:     cfg.Now,
		logger:  cfg.Logger,
	}
}

// History returns the underlying assessment log.
func (t *Tracker) History() *History {
	return t.history
}

// Record appends rec and recomputes the snapshot for its user and
// fingerprint. Only the append can fail the call. When the snapshot cannot be
// recomputed the failure is logged and a nil snapshot is returned; when it
// cannot be saved the computed snapshot is still returned.
func (t *Tracker) Record(ctx context.Context, rec *study.AssessmentRecord) (*study.AssessmentRecord, *study.ProgressSnapshot, error) {
	stored, err := t.history.Append(ctx, rec)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := t.refresh(ctx, stored.UserID, stored.Fingerprint)
	if err != nil {
		t.logger.Error("progress aggregation failed",
			"user_id", stored.UserID,
			"fingerprint", stored.Fingerprint,
			"record_id", stored.ID,
			"error", err,
		)
	}

	return stored, snapshot, nil
}

// refresh recomputes and saves the snapshot. A save failure still returns the
// computed snapshot alongside the error.
func (t *Tracker) refresh(ctx context.Context, userID, fp string) (*study.ProgressSnapshot, error) {
	records, err := t.history.Query(ctx, userID, fp)
	if err != nil {
		return nil, err
	}

	snapshot, err := Aggregate(records, t.now())
	if err != nil {
		return nil, err
	}

	if err := t.driver.PutSnapshot(ctx, snapshot); err != nil {
		return snapshot, fmt.Errorf("saving progress snapshot: %w", err)
	}
	return snapshot, nil
}

// Snapshot returns the stored snapshot for (userID, fp), or nil when the user
// has no assessments for it.
func (t *Tracker) Snapshot(ctx context.Context, userID, fp string) (*study.ProgressSnapshot, error) {
	s, err := t.driver.GetSnapshot(ctx, userID, fp)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading progress snapshot: %w", err)
	}
	return s, nil
}

// Statistics summarizes the user's history for fp, or across every source
// when fp is empty.
func (t *Tracker) Statistics(ctx context.Context, userID, fp string) (Statistics, error) {
	records, err := t.history.Query(ctx, userID, fp)
	if err != nil {
		return Statistics{}, err
	}
	return ComputeStatistics(records), nil
}

// Recommendations returns study advice for (userID, fp).
func (t *Tracker) Recommendations(ctx context.Context, userID, fp string) ([]string, error) {
	s, err := t.Snapshot(ctx, userID, fp)
	if err != nil {
		return nil, err
	}
	return Recommendations(s), nil
}
