// Package storage defines the durable store contracts for cached study material
// and assessment history.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/eduverse/pkg/study"
)

// CacheDriver persists cache entries (keyed by fingerprint and kind) and cache
// metadata (keyed by user and fingerprint).
type CacheDriver interface {
	// GetEntry retrieves the entry for (fp, kind). Returns NotFoundError if
	// there is none; expiry is not checked by the driver.
	GetEntry(ctx context.Context, fp string, kind study.Kind) (*study.CacheEntry, error)

	// PutEntry creates or overwrites the entry for (entry.Fingerprint, entry.Kind).
	PutEntry(ctx context.Context, entry *study.CacheEntry) error

	// DeleteEntry removes the entry for (fp, kind). Returns true if a row was removed.
	DeleteEntry(ctx context.Context, fp string, kind study.Kind) (bool, error)

	// ListEntries returns every entry stored for fp.
	ListEntries(ctx context.Context, fp string) ([]*study.CacheEntry, error)

	// DeleteExpiredEntries removes every entry whose expiry is at or before now.
	DeleteExpiredEntries(ctx context.Context, now time.Time) (int, error)

	// GetMetadata retrieves the ledger row for (userID, fp).
	GetMetadata(ctx context.Context, userID, fp string) (*study.CacheMetadata, error)

	// PutMetadata creates or overwrites the ledger row for (m.UserID, m.Fingerprint).
	PutMetadata(ctx context.Context, m *study.CacheMetadata) error

	// ListMetadata returns ledger rows matching the query.
	ListMetadata(ctx context.Context, query MetadataQuery) ([]*study.CacheMetadata, error)

	// DeleteExpiredMetadata removes every ledger row whose expiry is at or before now.
	DeleteExpiredMetadata(ctx context.Context, now time.Time) (int, error)

	// Close closes the store and releases any resources.
	Close() error
}

// MetadataQuery filters ledger rows. Empty fields match everything.
type MetadataQuery struct {
	UserID      string
	Fingerprint string
}

// AssessmentDriver persists the append-only assessment log and the derived
// progress snapshots.
type AssessmentDriver interface {
	// AppendRecord stores a new record. Records are never updated or deleted.
	AppendRecord(ctx context.Context, rec *study.AssessmentRecord) error

	// QueryRecords returns records matching the query, newest first.
	QueryRecords(ctx context.Context, query AssessmentQuery) ([]*study.AssessmentRecord, error)

	// GetSnapshot retrieves the progress snapshot for (userID, fp).
	GetSnapshot(ctx context.Context, userID, fp string) (*study.ProgressSnapshot, error)

	// PutSnapshot creates or overwrites the snapshot for (s.UserID, s.Fingerprint).
	PutSnapshot(ctx context.Context, s *study.ProgressSnapshot) error

	// Close closes the store and releases any resources.
	Close() error
}

// AssessmentQuery filters assessment records. UserID is required; an empty
// Fingerprint returns the user's global history. Limit <= 0 means no limit.
type AssessmentQuery struct {
	UserID      string
	Fingerprint string
	Limit       int
}

// Driver is a store that backs both the cache and the progress subsystems.
type Driver interface {
	CacheDriver
	AssessmentDriver
}
