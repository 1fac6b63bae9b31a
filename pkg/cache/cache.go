// Package cache implements the two-tier cache of generated study material:
// a bounded in-process LRU in front of a durable storage.CacheDriver, plus
// the per-user metadata ledger kept alongside it.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/papercomputeco/eduverse/pkg/fingerprint"
	"github.com/papercomputeco/eduverse/pkg/logger"
	"github.com/papercomputeco/eduverse/pkg/storage"
	"github.com/papercomputeco/eduverse/pkg/study"
)

const (
	// DefaultLocalSize is the memory tier capacity.
	DefaultLocalSize = 50

	// DefaultLocalTTL bounds how long a memory entry is trusted.
	DefaultLocalTTL = 30 * time.Minute

	// DefaultTTL is the durable entry lifetime.
	DefaultTTL = 7 * 24 * time.Hour
)

// Config configures a Store.
type Config struct {
	// Driver is the durable tier. Required when EnableDurable is set.
	Driver storage.CacheDriver

	EnableLocal   bool
	EnableDurable bool

	LocalSize int
	LocalTTL  time.Duration
	TTL       time.Duration

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// NewDefaultConfig returns a Config with both tiers enabled over driver.
func NewDefaultConfig(driver storage.CacheDriver) Config {
	return Config{
		Driver:        driver,
		EnableLocal:   true,
		EnableDurable: true,
		LocalSize:     DefaultLocalSize,
		LocalTTL:      DefaultLocalTTL,
		TTL:           DefaultTTL,
	}
}

// Stats counts tier hits and misses since the store was created.
type Stats struct {
	LocalHits     int64 `json:"local_hits"`
	LocalMisses   int64 `json:"local_misses"`
	DurableHits   int64 `json:"durable_hits"`
	DurableMisses int64 `json:"durable_misses"`
	LocalEntries  int   `json:"local_entries"`
}

type localEntry struct {
	payload   study.Payload
	cachedAt  time.Time
	expiresAt time.Time
}

// Store is the tiered cache. It is safe for concurrent use.
type Store struct {
	driver storage.CacheDriver
	ledger *Ledger
	local  *lru.Cache[string, localEntry]

	localTTL time.Duration
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger

	localHits     atomic.Int64
	localMisses   atomic.Int64
	durableHits   atomic.Int64
	durableMisses atomic.Int64
}

// New creates a Store. Zero sizes and durations take the package defaults.
func New(cfg Config) (*Store, error) {
	if cfg.EnableDurable && cfg.Driver == nil {
		return nil, errors.New("durable cache tier enabled without a driver")
	}
	if cfg.LocalSize <= 0 {
		cfg.LocalSize = DefaultLocalSize
	}
	if cfg.LocalTTL <= 0 {
		cfg.LocalTTL = DefaultLocalTTL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Store{
		localTTL: cfg.LocalTTL,
		ttl:      cfg.TTL,
		now:      cfg.Now,
		logger:   logger.OrNop(cfg.Logger),
	}

	if cfg.EnableDurable {
		s.driver = cfg.Driver
		s.ledger = NewLedger(cfg.Driver, cfg.Now, s.logger)
	}

	if cfg.EnableLocal {
		local, err := lru.New[string, localEntry](cfg.LocalSize)
		if err != nil {
			return nil, fmt.Errorf("creating memory tier: %w", err)
		}
		s.local = local
	}

	return s, nil
}

// Ledger returns the metadata ledger, or nil when the durable tier is off.
func (s *Store) Ledger() *Ledger {
	return s.ledger
}

// Has reports whether a live entry exists for (fp, kind).
func (s *Store) Has(ctx context.Context, fp string, kind study.Kind) bool {
	_, ok := s.Get(ctx, fp, kind)
	return ok
}

// Get returns the cached payload for (fp, kind). The memory tier is consulted
// first; durable hits are copied into it. Expired entries and store failures
// are misses.
func (s *Store) Get(ctx context.Context, fp string, kind study.Kind) (study.Payload, bool) {
	key := fingerprint.Key(fp, string(kind))
	now := s.now()

	if s.local != nil {
		if e, ok := s.local.Get(key); ok {
			if s.fresh(e, now) {
				s.localHits.Add(1)
				return e.payload, true
			}
			s.local.Remove(key)
		}
		s.localMisses.Add(1)
	}

	if s.driver == nil {
		return nil, false
	}

	entry, err := s.driver.GetEntry(ctx, fp, kind)
	if err != nil {
		if !storage.IsNotFound(err) {
			s.logger.Warn("durable cache read failed",
				"fingerprint", fp,
				"kind", kind,
				"error", err,
			)
		}
		s.durableMisses.Add(1)
		return nil, false
	}

	if entry.Expired(now) {
		s.durableMisses.Add(1)
		return nil, false
	}

	payload, err := study.DecodePayload(kind, entry.Payload)
	if err != nil {
		s.logger.Warn("discarding undecodable cache entry",
			"fingerprint", fp,
			"kind", kind,
			"error", err,
		)
		s.durableMisses.Add(1)
		return nil, false
	}

	s.durableHits.Add(1)
	if s.local != nil {
		s.local.Add(key, localEntry{payload: payload, cachedAt: now, expiresAt: entry.ExpiresAt})
	}

	return payload, true
}

// Set stores payload under (fp, kind) in both tiers and registers it in the
// ledger for userID. Store failures are logged, not returned; an error means
// the payload itself could not be cached.
func (s *Store) Set(ctx context.Context, fp string, kind study.Kind, payload study.Payload, userID, sourceTitle string) error {
	if err := study.CheckKind(kind, payload); err != nil {
		return err
	}

	data, err := study.EncodePayload(payload)
	if err != nil {
		return err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)

	if s.local != nil {
		s.local.Add(fingerprint.Key(fp, string(kind)), localEntry{payload: payload, cachedAt: now, expiresAt: expiresAt})
	}

	if s.driver == nil {
		return nil
	}

	entry := &study.CacheEntry{
		Fingerprint: fp,
		Kind:        kind,
		Payload:     data,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}
	if err := s.driver.PutEntry(ctx, entry); err != nil {
		s.logger.Warn("durable cache write failed",
			"fingerprint", fp,
			"kind", kind,
			"error", err,
		)
		return nil
	}

	if userID == "" {
		return nil
	}

	if err := s.ledger.Register(ctx, userID, fp, sourceTitle, kind, int64(len(data)), expiresAt); err != nil {
		s.logger.Warn("cache ledger update failed",
			"user_id", userID,
			"fingerprint", fp,
			"kind", kind,
			"error", err,
		)
	}

	return nil
}

// Invalidate removes (fp, kind) from both tiers and from every ledger row of
// fp.
func (s *Store) Invalidate(ctx context.Context, fp string, kind study.Kind) {
	if s.local != nil {
		s.local.Remove(fingerprint.Key(fp, string(kind)))
	}

	if s.driver == nil {
		return
	}

	if _, err := s.driver.DeleteEntry(ctx, fp, kind); err != nil {
		s.logger.Warn("durable cache delete failed",
			"fingerprint", fp,
			"kind", kind,
			"error", err,
		)
	}

	if err := s.ledger.Forget(ctx, fp, kind); err != nil {
		s.logger.Warn("cache ledger update failed",
			"fingerprint", fp,
			"kind", kind,
			"error", err,
		)
	}
}

// Status reports, for every kind, whether a live entry exists for fp.
func (s *Store) Status(ctx context.Context, fp string) map[study.Kind]bool {
	status := make(map[study.Kind]bool, len(study.Kinds()))
	now := s.now()

	for _, kind := range study.Kinds() {
		status[kind] = false
		if s.local == nil {
			continue
		}
		if e, ok := s.local.Peek(fingerprint.Key(fp, string(kind))); ok && s.fresh(e, now) {
			status[kind] = true
		}
	}

	if s.driver == nil {
		return status
	}

	entries, err := s.driver.ListEntries(ctx, fp)
	if err != nil {
		s.logger.Warn("durable cache listing failed",
			"fingerprint", fp,
			"error", err,
		)
		return status
	}

	for _, e := range entries {
		if !e.Expired(now) {
			status[e.Kind] = true
		}
	}

	return status
}

// Suggestions splits the study material kinds into those not yet generated
// for fp and those already cached.
func (s *Store) Suggestions(ctx context.Context, fp string) (suggested, cached []study.Kind) {
	status := s.Status(ctx, fp)

	suggested = []study.Kind{}
	cached = []study.Kind{}
	for _, kind := range study.MaterialKinds() {
		if status[kind] {
			cached = append(cached, kind)
		} else {
			suggested = append(suggested, kind)
		}
	}

	return suggested, cached
}

// Stats returns hit and miss counters for both tiers.
func (s *Store) Stats() Stats {
	stats := Stats{
		LocalHits:     s.localHits.Load(),
		LocalMisses:   s.localMisses.Load(),
		DurableHits:   s.durableHits.Load(),
		DurableMisses: s.durableMisses.Load(),
	}
	if s.local != nil {
		stats.LocalEntries = s.local.Len()
	}
	return stats
}

func (s *Store) fresh(e localEntry, now time.Time) bool {
	return now.Before(e.expiresAt) && now.Sub(e.cachedAt) < s.localTTL
}
