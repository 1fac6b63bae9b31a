package testutils

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/papercomputeco/eduverse/pkg/storage"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// ErrInjected is the cause wrapped by every FailingDriver failure.
var ErrInjected = errors.New("injected failure")

// FailingDriver wraps a storage.Driver and fails reads or writes on demand.
// Failures match storage.ErrStoreUnavailable.
type FailingDriver struct {
	storage.Driver

	FailReads  atomic.Bool
	FailWrites atomic.Bool
}

// NewFailingDriver wraps inner.
func NewFailingDriver(inner storage.Driver) *FailingDriver {
	return &FailingDriver{Driver: inner}
}

func (f *FailingDriver) read(op string) error {
	if f.FailReads.Load() {
		return storage.Unavailable(op, ErrInjected)
	}
	return nil
}

func (f *FailingDriver) write(op string) error {
	if f.FailWrites.Load() {
		return storage.Unavailable(op, ErrInjected)
	}
	return nil
}

func (f *FailingDriver) GetEntry(ctx context.Context, fp string, kind study.Kind) (*study.CacheEntry, error) {
	if err := f.read("get entry"); err != nil {
		return nil, err
	}
	return f.Driver.GetEntry(ctx, fp, kind)
}

func (f *FailingDriver) PutEntry(ctx context.Context, entry *study.CacheEntry) error {
	if err := f.write("put entry"); err != nil {
		return err
	}
	return f.Driver.PutEntry(ctx, entry)
}

func (f *FailingDriver) DeleteEntry(ctx context.Context, fp string, kind study.Kind) (bool, error) {
	if err := f.write("delete entry"); err != nil {
		return false, err
	}
	return f.Driver.DeleteEntry(ctx, fp, kind)
}

func (f *FailingDriver) ListEntries(ctx context.Context, fp string) ([]*study.CacheEntry, error) {
	if err := f.read("list entries"); err != nil {
		return nil, err
	}
	return f.Driver.ListEntries(ctx, fp)
}

func (f *FailingDriver) DeleteExpiredEntries(ctx context.Context, now time.Time) (int, error) {
	if err := f.write("delete expired entries"); err != nil {
		return 0, err
	}
	return f.Driver.DeleteExpiredEntries(ctx, now)
}

func (f *FailingDriver) GetMetadata(ctx context.Context, userID, fp string) (*study.CacheMetadata, error) {
	if err := f.read("get metadata"); err != nil {
		return nil, err
	}
	return f.Driver.GetMetadata(ctx, userID, fp)
}

func (f *FailingDriver) PutMetadata(ctx context.Context, m *study.CacheMetadata) error {
	if err := f.write("put metadata"); err != nil {
		return err
	}
	return f.Driver.PutMetadata(ctx, m)
}

func (f *FailingDriver) ListMetadata(ctx context.Context, query storage.MetadataQuery) ([]*study.CacheMetadata, error) {
	if err := f.read("list metadata"); err != nil {
		return nil, err
	}
	return f.Driver.ListMetadata(ctx, query)
}

func (f *FailingDriver) DeleteExpiredMetadata(ctx context.Context, now time.Time) (int, error) {
	if err := f.write("delete expired metadata"); err != nil {
		return 0, err
	}
	return f.Driver.DeleteExpiredMetadata(ctx, now)
}

func (f *FailingDriver) AppendRecord(ctx context.Context, rec *study.AssessmentRecord) error {
	if err := f.write("append record"); err != nil {
		return err
	}
	return f.Driver.AppendRecord(ctx, rec)
}

func (f *FailingDriver) QueryRecords(ctx context.Context, query storage.AssessmentQuery) ([]*study.AssessmentRecord, error) {
	if err := f.read("query records"); err != nil {
		return nil, err
	}
	return f.Driver.QueryRecords(ctx, query)
}

func (f *FailingDriver) GetSnapshot(ctx context.Context, userID, fp string) (*study.ProgressSnapshot, error) {
	if err := f.read("get snapshot"); err != nil {
		return nil, err
	}
	return f.Driver.GetSnapshot(ctx, userID, fp)
}

func (f *FailingDriver) PutSnapshot(ctx context.Context, s *study.ProgressSnapshot) error {
	if err := f.write("put snapshot"); err != nil {
		return err
	}
	return f.Driver.PutSnapshot(ctx, s)
}
