package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/eduverse/pkg/logger"
	"github.com/papercomputeco/eduverse/pkg/storage"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// Config configures History and Tracker.
type Config struct {
	Driver storage.AssessmentDriver

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Now == nil {
		c.Now = time.Now
	}
	c.Logger = logger.OrNop(c.Logger)
	return c
}

// History is the append-only log of assessment records. It offers no way to
// change or remove a record once appended.
type History struct {
	driver storage.AssessmentDriver
	now    func() time.Time
}

// NewHistory creates a History over cfg.Driver.
func NewHistory(cfg Config) *History {
	cfg = cfg.withDefaults()
	return &History{
		driver: cfg.Driver,
		now:    cfg.Now,
	}
}

// Append validates rec, stamps it with an id (when empty) and the current
// time, and persists a copy. The stored record is returned. Invalid records
// yield a *ValidationError and are not persisted.
func (h *History) Append(ctx context.Context, rec *study.AssessmentRecord) (*study.AssessmentRecord, error) {
	if rec == nil {
		return nil, errors.New("cannot append nil assessment record")
	}

	stored := *rec
	if stored.Questions == nil {
		stored.Questions = []string{}
	}
	if stored.Answers == nil {
		stored.Answers = []study.Answer{}
	}
	if stored.WeakTopics == nil {
		stored.WeakTopics = []string{}
	}

	if err := validateStruct(&stored); err != nil {
		return nil, err
	}

	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.CreatedAt = h.now()

	if err := h.driver.AppendRecord(ctx, &stored); err != nil {
		return nil, fmt.Errorf("appending assessment record: %w", err)
	}

	return &stored, nil
}

// Query returns the user's records for fp, newest first. An empty fp returns
// the user's records for every source.
func (h *History) Query(ctx context.Context, userID, fp string) ([]*study.AssessmentRecord, error) {
	records, err := h.driver.QueryRecords(ctx, storage.AssessmentQuery{
		UserID:      userID,
		Fingerprint: fp,
	})
	if err != nil {
		return nil, fmt.Errorf("querying assessment records: %w", err)
	}
	return records, nil
}
