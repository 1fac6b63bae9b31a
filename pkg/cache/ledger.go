package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/eduverse/pkg/logger"
	"github.com/papercomputeco/eduverse/pkg/storage"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// recentWindow bounds "recently accessed" in Statistics.
const recentWindow = 24 * time.Hour

// Ledger records, per user and fingerprint, which kinds have been generated,
// how often they are accessed and how much space they take.
type Ledger struct {
	driver storage.CacheDriver
	now    func() time.Time
	logger *slog.Logger
}

// Statistics summarizes a user's cached material.
type Statistics struct {
	TotalItems       int        `json:"total_cached_items"`
	TotalBytes       int64      `json:"total_cache_size"`
	RecentlyAccessed int        `json:"recently_accessed"`
	Oldest           *time.Time `json:"oldest_item,omitempty"`
	Newest           *time.Time `json:"newest_item,omitempty"`
}

// NewLedger creates a ledger over driver. A nil now uses time.Now and a nil
// logger discards output.
func NewLedger(driver storage.CacheDriver, now func() time.Time, log *slog.Logger) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		driver: driver,
		now:    now,
		logger: logger.OrNop(log),
	}
}

// Register records that kind was stored for (userID, fp). Kinds are
// set-unioned, the access count is incremented and the expiry refreshed.
// sizeBytes is the encoded size of kind's payload.
func (l *Ledger) Register(ctx context.Context, userID, fp, title string, kind study.Kind, sizeBytes int64, expiresAt time.Time) error {
	now := l.now()

	m, err := l.driver.GetMetadata(ctx, userID, fp)
	switch {
	case storage.IsNotFound(err):
		m = &study.CacheMetadata{
			UserID:          userID,
			Fingerprint:     fp,
			RegisteredKinds: []study.Kind{},
			CreatedAt:       now,
		}
	case err != nil:
		return fmt.Errorf("register %s for %s: %w", kind, fp, err)
	}

	if title != "" {
		m.SourceTitle = title
	}
	m.AddKind(kind)
	m.AccessCount++
	m.LastAccessedAt = now
	if expiresAt.After(m.ExpiresAt) {
		m.ExpiresAt = expiresAt
	}

	live, err := l.liveKinds(ctx, fp, now)
	if err != nil {
		return fmt.Errorf("register %s for %s: %w", kind, fp, err)
	}
	m.SizeBytes = sizeBytes
	for _, k := range m.RegisteredKinds {
		if e, ok := live[k]; ok && k != kind {
			m.SizeBytes += int64(len(e.Payload))
		}
	}

	if err := l.driver.PutMetadata(ctx, m); err != nil {
		return fmt.Errorf("register %s for %s: %w", kind, fp, err)
	}
	return nil
}

// Touch records a cache hit of kind for (userID, fp). A user hitting an entry
// another user generated gets a ledger row of their own.
func (l *Ledger) Touch(ctx context.Context, userID, fp string, kind study.Kind) error {
	now := l.now()

	m, err := l.driver.GetMetadata(ctx, userID, fp)
	if storage.IsNotFound(err) {
		entry, entryErr := l.driver.GetEntry(ctx, fp, kind)
		if entryErr != nil {
			return fmt.Errorf("touch %s for %s: %w", kind, fp, entryErr)
		}
		return l.Register(ctx, userID, fp, "", kind, int64(len(entry.Payload)), entry.ExpiresAt)
	}
	if err != nil {
		return fmt.Errorf("touch %s for %s: %w", kind, fp, err)
	}

	m.AddKind(kind)
	m.AccessCount++
	m.LastAccessedAt = now

	if err := l.driver.PutMetadata(ctx, m); err != nil {
		return fmt.Errorf("touch %s for %s: %w", kind, fp, err)
	}
	return nil
}

// Get returns the ledger row for (userID, fp) with RegisteredKinds narrowed to
// kinds that still have a live cache entry.
func (l *Ledger) Get(ctx context.Context, userID, fp string) (*study.CacheMetadata, error) {
	m, err := l.driver.GetMetadata(ctx, userID, fp)
	if err != nil {
		return nil, err
	}

	live, err := l.liveKinds(ctx, fp, l.now())
	if err != nil {
		return nil, err
	}

	kinds := make([]study.Kind, 0, len(m.RegisteredKinds))
	for _, k := range m.RegisteredKinds {
		if _, ok := live[k]; ok {
			kinds = append(kinds, k)
		}
	}
	m.RegisteredKinds = kinds

	return m, nil
}

// Forget removes kind from every ledger row of fp.
func (l *Ledger) Forget(ctx context.Context, fp string, kind study.Kind) error {
	rows, err := l.driver.ListMetadata(ctx, storage.MetadataQuery{Fingerprint: fp})
	if err != nil {
		return fmt.Errorf("forget %s for %s: %w", kind, fp, err)
	}

	for _, m := range rows {
		if !m.HasKind(kind) {
			continue
		}
		m.RemoveKind(kind)
		if err := l.driver.PutMetadata(ctx, m); err != nil {
			return fmt.Errorf("forget %s for %s: %w", kind, fp, err)
		}
	}
	return nil
}

// SweepExpired deletes cache entries and ledger rows that expired at or
// before now, then drops kinds without a live entry from the remaining rows.
// It returns the number of entries and rows removed.
func (l *Ledger) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	entries, err := l.driver.DeleteExpiredEntries(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweeping expired entries: %w", err)
	}

	rows, err := l.driver.DeleteExpiredMetadata(ctx, now)
	if err != nil {
		return entries, fmt.Errorf("sweeping expired metadata: %w", err)
	}

	remaining, err := l.driver.ListMetadata(ctx, storage.MetadataQuery{})
	if err != nil {
		return entries + rows, fmt.Errorf("listing metadata: %w", err)
	}

	liveByFingerprint := make(map[string]map[study.Kind]*study.CacheEntry)
	for _, m := range remaining {
		live, ok := liveByFingerprint[m.Fingerprint]
		if !ok {
			live, err = l.liveKinds(ctx, m.Fingerprint, now)
			if err != nil {
				return entries + rows, err
			}
			liveByFingerprint[m.Fingerprint] = live
		}

		changed := false
		for _, k := range append([]study.Kind(nil), m.RegisteredKinds...) {
			if _, ok := live[k]; !ok {
				m.RemoveKind(k)
				changed = true
			}
		}
		if !changed {
			continue
		}

		m.SizeBytes = 0
		for _, k := range m.RegisteredKinds {
			m.SizeBytes += int64(len(live[k].Payload))
		}
		if err := l.driver.PutMetadata(ctx, m); err != nil {
			return entries + rows, fmt.Errorf("pruning kinds for %s: %w", m.Fingerprint, err)
		}
	}

	l.logger.Debug("swept expired cache",
		"entries", entries,
		"metadata", rows,
	)

	return entries + rows, nil
}

// Statistics summarizes every live item the user has cached as of now.
func (l *Ledger) Statistics(ctx context.Context, userID string, now time.Time) (Statistics, error) {
	var stats Statistics

	rows, err := l.driver.ListMetadata(ctx, storage.MetadataQuery{UserID: userID})
	if err != nil {
		return stats, fmt.Errorf("listing metadata for %s: %w", userID, err)
	}

	recentSince := now.Add(-recentWindow)
	for _, m := range rows {
		live, err := l.liveKinds(ctx, m.Fingerprint, now)
		if err != nil {
			return stats, err
		}

		for _, k := range m.RegisteredKinds {
			entry, ok := live[k]
			if !ok {
				continue
			}

			stats.TotalItems++
			stats.TotalBytes += int64(len(entry.Payload))
			if m.LastAccessedAt.After(recentSince) {
				stats.RecentlyAccessed++
			}

			created := entry.CreatedAt
			if stats.Oldest == nil || created.Before(*stats.Oldest) {
				stats.Oldest = &created
			}
			if stats.Newest == nil || created.After(*stats.Newest) {
				stats.Newest = &created
			}
		}
	}

	return stats, nil
}

func (l *Ledger) liveKinds(ctx context.Context, fp string, now time.Time) (map[study.Kind]*study.CacheEntry, error) {
	entries, err := l.driver.ListEntries(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("listing entries for %s: %w", fp, err)
	}

	live := make(map[study.Kind]*study.CacheEntry, len(entries))
	for _, e := range entries {
		if !e.Expired(now) {
			live[e.Kind] = e
		}
	}
	return live, nil
}
