// Package inmemory provides a map-backed storage.Driver for tests and
// single-process deployments.
package inmemory

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/eduverse/pkg/fingerprint"
	"github.com/papercomputeco/eduverse/pkg/storage"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// Driver implements storage.Driver using in-memory maps.
type Driver struct {
	// mu guards every map and the record log below
	mu sync.RWMutex

	// entries is keyed by fingerprint.Key(fp, kind)
	entries map[string]*study.CacheEntry

	// metadata is keyed by metadataKey(userID, fp)
	metadata map[string]*study.CacheMetadata

	// records is the append-only assessment log in insertion order
	records []*study.AssessmentRecord

	// snapshots is keyed by metadataKey(userID, fp)
	snapshots map[string]*study.ProgressSnapshot
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		entries:   make(map[string]*study.CacheEntry),
		metadata:  make(map[string]*study.CacheMetadata),
		snapshots: make(map[string]*study.ProgressSnapshot),
	}
}

func metadataKey(userID, fp string) string {
	return userID + "\x00" + fp
}

// GetEntry retrieves the entry for (fp, kind).
func (d *Driver) GetEntry(_ context.Context, fp string, kind study.Kind) (*study.CacheEntry, error) {
	key := fingerprint.Key(fp, string(kind))

	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.entries[key]
	if !ok {
		return nil, storage.NotFoundError{Key: key}
	}

	return cloneEntry(e), nil
}

// PutEntry creates or overwrites the entry for its key.
func (d *Driver) PutEntry(_ context.Context, entry *study.CacheEntry) error {
	if entry == nil {
		return errors.New("cannot store nil cache entry")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries[fingerprint.Key(entry.Fingerprint, string(entry.Kind))] = cloneEntry(entry)
	return nil
}

// DeleteEntry removes the entry for (fp, kind).
func (d *Driver) DeleteEntry(_ context.Context, fp string, kind study.Kind) (bool, error) {
	key := fingerprint.Key(fp, string(kind))

	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.entries[key]
	delete(d.entries, key)
	return ok, nil
}

// ListEntries returns every entry stored for fp, ordered by kind.
func (d *Driver) ListEntries(_ context.Context, fp string) ([]*study.CacheEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*study.CacheEntry
	for _, e := range d.entries {
		if e.Fingerprint == fp {
			result = append(result, cloneEntry(e))
		}
	}

	slices.SortFunc(result, func(a, b *study.CacheEntry) int {
		if a.Kind < b.Kind {
			return -1
		}
		if a.Kind > b.Kind {
			return 1
		}
		return 0
	})

	return result, nil
}

// DeleteExpiredEntries removes entries whose expiry is at or before now.
func (d *Driver) DeleteExpiredEntries(_ context.Context, now time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, e := range d.entries {
		if e.Expired(now) {
			delete(d.entries, key)
			removed++
		}
	}

	return removed, nil
}

// GetMetadata retrieves the ledger row for (userID, fp).
func (d *Driver) GetMetadata(_ context.Context, userID, fp string) (*study.CacheMetadata, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	m, ok := d.metadata[metadataKey(userID, fp)]
	if !ok {
		return nil, storage.NotFoundError{Key: userID + "/" + fp}
	}

	return cloneMetadata(m), nil
}

// PutMetadata creates or overwrites the ledger row.
func (d *Driver) PutMetadata(_ context.Context, m *study.CacheMetadata) error {
	if m == nil {
		return errors.New("cannot store nil cache metadata")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.metadata[metadataKey(m.UserID, m.Fingerprint)] = cloneMetadata(m)
	return nil
}

// ListMetadata returns ledger rows matching the query, most recently accessed first.
func (d *Driver) ListMetadata(_ context.Context, query storage.MetadataQuery) ([]*study.CacheMetadata, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*study.CacheMetadata
	for _, m := range d.metadata {
		if query.UserID != "" && m.UserID != query.UserID {
			continue
		}
		if query.Fingerprint != "" && m.Fingerprint != query.Fingerprint {
			continue
		}
		result = append(result, cloneMetadata(m))
	}

	slices.SortFunc(result, func(a, b *study.CacheMetadata) int {
		return b.LastAccessedAt.Compare(a.LastAccessedAt)
	})

	return result, nil
}

// DeleteExpiredMetadata removes ledger rows whose expiry is at or before now.
func (d *Driver) DeleteExpiredMetadata(_ context.Context, now time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	removed := 0
	for key, m := range d.metadata {
		if !now.Before(m.ExpiresAt) {
			delete(d.metadata, key)
			removed++
		}
	}

	return removed, nil
}

// AppendRecord stores a new assessment record.
func (d *Driver) AppendRecord(_ context.Context, rec *study.AssessmentRecord) error {
	if rec == nil {
		return errors.New("cannot store nil assessment record")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.records {
		if existing.ID == rec.ID {
			return errors.New("assessment record already exists: " + rec.ID)
		}
	}

	d.records = append(d.records, cloneRecord(rec))
	return nil
}

// QueryRecords returns matching records, newest first. Records sharing a
// creation time are returned in reverse insertion order.
func (d *Driver) QueryRecords(_ context.Context, query storage.AssessmentQuery) ([]*study.AssessmentRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*study.AssessmentRecord
	for i := len(d.records) - 1; i >= 0; i-- {
		rec := d.records[i]
		if rec.UserID != query.UserID {
			continue
		}
		if query.Fingerprint != "" && rec.Fingerprint != query.Fingerprint {
			continue
		}
		result = append(result, cloneRecord(rec))
	}

	slices.SortStableFunc(result, func(a, b *study.AssessmentRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if query.Limit > 0 && len(result) > query.Limit {
		result = result[:query.Limit]
	}

	return result, nil
}

// GetSnapshot retrieves the progress snapshot for (userID, fp).
func (d *Driver) GetSnapshot(_ context.Context, userID, fp string) (*study.ProgressSnapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.snapshots[metadataKey(userID, fp)]
	if !ok {
		return nil, storage.NotFoundError{Key: userID + "/" + fp}
	}

	return cloneSnapshot(s), nil
}

// PutSnapshot creates or overwrites the snapshot.
func (d *Driver) PutSnapshot(_ context.Context, s *study.ProgressSnapshot) error {
	if s == nil {
		return errors.New("cannot store nil progress snapshot")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.snapshots[metadataKey(s.UserID, s.Fingerprint)] = cloneSnapshot(s)
	return nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

func cloneEntry(e *study.CacheEntry) *study.CacheEntry {
	c := *e
	c.Payload = slices.Clone(e.Payload)
	return &c
}

func cloneMetadata(m *study.CacheMetadata) *study.CacheMetadata {
	c := *m
	c.RegisteredKinds = slices.Clone(m.RegisteredKinds)
	return &c
}

func cloneRecord(r *study.AssessmentRecord) *study.AssessmentRecord {
	c := *r
	c.Questions = slices.Clone(r.Questions)
	c.Answers = slices.Clone(r.Answers)
	c.WeakTopics = slices.Clone(r.WeakTopics)
	if r.Score != nil {
		score := *r.Score
		c.Score = &score
	}
	return &c
}

func cloneSnapshot(s *study.ProgressSnapshot) *study.ProgressSnapshot {
	c := *s
	c.OverallWeakTopics = slices.Clone(s.OverallWeakTopics)
	c.ImprovementAreas = slices.Clone(s.ImprovementAreas)
	return &c
}
