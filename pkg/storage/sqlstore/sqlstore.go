// Package sqlstore implements storage.Driver over any database/sql backend
// through sqlx. Dialect packages (sqlite, postgres, libsql) open the
// connection and embed a *Driver.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/papercomputeco/eduverse/pkg/fingerprint"
	"github.com/papercomputeco/eduverse/pkg/storage"
	"github.com/papercomputeco/eduverse/pkg/study"
)

// Driver implements storage.Driver on top of a *sqlx.DB. Queries are written
// with '?' placeholders and rebound for the connection's dialect.
type Driver struct {
	DB *sqlx.DB

	postgres bool
}

// New wraps db and creates the schema if it does not exist.
func New(ctx context.Context, db *sqlx.DB) (*Driver, error) {
	d := &Driver{
		DB:       db,
		postgres: sqlx.BindType(db.DriverName()) == sqlx.DOLLAR,
	}
	if err := d.migrate(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) migrate(ctx context.Context) error {
	for _, stmt := range append(schema, recordsSchema(d.postgres)...) {
		if _, err := d.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (d *Driver) q(query string) string {
	return d.DB.Rebind(query)
}

const entryColumns = `fingerprint, kind, payload, created_at, expires_at`

// GetEntry retrieves the entry for (fp, kind).
func (d *Driver) GetEntry(ctx context.Context, fp string, kind study.Kind) (*study.CacheEntry, error) {
	var row entryRow
	err := d.DB.GetContext(ctx, &row,
		d.q(`SELECT `+entryColumns+` FROM cache_entries WHERE fingerprint = ? AND kind = ?`),
		fp, string(kind))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Key: fingerprint.Key(fp, string(kind))}
	}
	if err != nil {
		return nil, storage.Unavailable("get entry", err)
	}
	return row.entry(), nil
}

// PutEntry creates or overwrites the entry for (entry.Fingerprint, entry.Kind).
func (d *Driver) PutEntry(ctx context.Context, entry *study.CacheEntry) error {
	if entry == nil {
		return errors.New("cannot store nil cache entry")
	}

	_, err := d.DB.NamedExecContext(ctx, `
		INSERT INTO cache_entries (`+entryColumns+`)
		VALUES (:fingerprint, :kind, :payload, :created_at, :expires_at)
		ON CONFLICT (fingerprint, kind) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		newEntryRow(entry))
	if err != nil {
		return storage.Unavailable("put entry", err)
	}
	return nil
}

// DeleteEntry removes the entry for (fp, kind).
func (d *Driver) DeleteEntry(ctx context.Context, fp string, kind study.Kind) (bool, error) {
	res, err := d.DB.ExecContext(ctx,
		d.q(`DELETE FROM cache_entries WHERE fingerprint = ? AND kind = ?`),
		fp, string(kind))
	if err != nil {
		return false, storage.Unavailable("delete entry", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, storage.Unavailable("delete entry", err)
	}
	return n > 0, nil
}

// ListEntries returns every entry stored for fp, ordered by kind.
func (d *Driver) ListEntries(ctx context.Context, fp string) ([]*study.CacheEntry, error) {
	var rows []entryRow
	err := d.DB.SelectContext(ctx, &rows,
		d.q(`SELECT `+entryColumns+` FROM cache_entries WHERE fingerprint = ? ORDER BY kind`),
		fp)
	if err != nil {
		return nil, storage.Unavailable("list entries", err)
	}

	result := make([]*study.CacheEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.entry())
	}
	return result, nil
}

// DeleteExpiredEntries removes entries whose expiry is at or before now.
func (d *Driver) DeleteExpiredEntries(ctx context.Context, now time.Time) (int, error) {
	return d.deleteExpired(ctx, "cache_entries", now)
}

const metadataColumns = `user_id, fingerprint, source_title, registered_kinds, access_count,
	size_bytes, last_accessed_at, created_at, expires_at`

// GetMetadata retrieves the ledger row for (userID, fp).
func (d *Driver) GetMetadata(ctx context.Context, userID, fp string) (*study.CacheMetadata, error) {
	var row metadataRow
	err := d.DB.GetContext(ctx, &row,
		d.q(`SELECT `+metadataColumns+` FROM cache_metadata WHERE user_id = ? AND fingerprint = ?`),
		userID, fp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Key: userID + "/" + fp}
	}
	if err != nil {
		return nil, storage.Unavailable("get metadata", err)
	}
	return row.metadata()
}

// PutMetadata creates or overwrites the ledger row for (m.UserID, m.Fingerprint).
func (d *Driver) PutMetadata(ctx context.Context, m *study.CacheMetadata) error {
	if m == nil {
		return errors.New("cannot store nil cache metadata")
	}

	row, err := newMetadataRow(m)
	if err != nil {
		return err
	}

	_, err = d.DB.NamedExecContext(ctx, `
		INSERT INTO cache_metadata (`+metadataColumns+`)
		VALUES (:user_id, :fingerprint, :source_title, :registered_kinds, :access_count,
			:size_bytes, :last_accessed_at, :created_at, :expires_at)
		ON CONFLICT (user_id, fingerprint) DO UPDATE SET
			source_title = excluded.source_title,
			registered_kinds = excluded.registered_kinds,
			access_count = excluded.access_count,
			size_bytes = excluded.size_bytes,
			last_accessed_at = excluded.last_accessed_at,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		row)
	if err != nil {
		return storage.Unavailable("put metadata", err)
	}
	return nil
}

// ListMetadata returns ledger rows matching the query, most recently accessed first.
func (d *Driver) ListMetadata(ctx context.Context, query storage.MetadataQuery) ([]*study.CacheMetadata, error) {
	stmt := `SELECT ` + metadataColumns + ` FROM cache_metadata WHERE 1 = 1`
	var args []any
	if query.UserID != "" {
		stmt += ` AND user_id = ?`
		args = append(args, query.UserID)
	}
	if query.Fingerprint != "" {
		stmt += ` AND fingerprint = ?`
		args = append(args, query.Fingerprint)
	}
	stmt += ` ORDER BY last_accessed_at DESC`

	var rows []metadataRow
	if err := d.DB.SelectContext(ctx, &rows, d.q(stmt), args...); err != nil {
		return nil, storage.Unavailable("list metadata", err)
	}

	result := make([]*study.CacheMetadata, 0, len(rows))
	for _, row := range rows {
		m, err := row.metadata()
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, nil
}

// DeleteExpiredMetadata removes ledger rows whose expiry is at or before now.
func (d *Driver) DeleteExpiredMetadata(ctx context.Context, now time.Time) (int, error) {
	return d.deleteExpired(ctx, "cache_metadata", now)
}

func (d *Driver) deleteExpired(ctx context.Context, table string, now time.Time) (int, error) {
	op := "delete expired " + table
	res, err := d.DB.ExecContext(ctx,
		d.q(`DELETE FROM `+table+` WHERE expires_at <= ?`), toNanos(now))
	if err != nil {
		return 0, storage.Unavailable(op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, storage.Unavailable(op, err)
	}
	return int(n), nil
}

const recordColumns = `id, user_id, fingerprint, kind, source_title, questions, answers,
	score, weak_topics, is_retake, previous_session_id, created_at`

// AppendRecord stores a new assessment record. A duplicate ID is rejected by
// the primary key.
func (d *Driver) AppendRecord(ctx context.Context, rec *study.AssessmentRecord) error {
	if rec == nil {
		return errors.New("cannot store nil assessment record")
	}

	row, err := newRecordRow(rec)
	if err != nil {
		return err
	}

	stmt := `INSERT INTO assessment_records (` + recordColumns + `)
		VALUES (:id, :user_id, :fingerprint, :kind, :source_title, :questions, :answers,
			:score, :weak_topics, :is_retake, :previous_session_id, :created_at)`
	if !d.postgres {
		stmt = `INSERT INTO assessment_records (` + recordColumns + `, seq)
		VALUES (:id, :user_id, :fingerprint, :kind, :source_title, :questions, :answers,
			:score, :weak_topics, :is_retake, :previous_session_id, :created_at,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM assessment_records))`
	}

	_, err = d.DB.NamedExecContext(ctx, stmt, row)
	if err != nil {
		return storage.Unavailable("append record", err)
	}
	return nil
}

// QueryRecords returns matching records, newest first.
func (d *Driver) QueryRecords(ctx context.Context, query storage.AssessmentQuery) ([]*study.AssessmentRecord, error) {
	stmt := `SELECT ` + recordColumns + ` FROM assessment_records WHERE user_id = ?`
	args := []any{query.UserID}
	if query.Fingerprint != "" {
		stmt += ` AND fingerprint = ?`
		args = append(args, query.Fingerprint)
	}
	stmt += ` ORDER BY created_at DESC, seq DESC`
	if query.Limit > 0 {
		stmt += ` LIMIT ?`
		args = append(args, query.Limit)
	}

	var rows []recordRow
	if err := d.DB.SelectContext(ctx, &rows, d.q(stmt), args...); err != nil {
		return nil, storage.Unavailable("query records", err)
	}

	result := make([]*study.AssessmentRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

const snapshotColumns = `user_id, fingerprint, overall_weak_topics, improvement_areas,
	total_sessions, average_score, best_score, recent_trend, last_session_at, updated_at`

// GetSnapshot retrieves the progress snapshot for (userID, fp).
func (d *Driver) GetSnapshot(ctx context.Context, userID, fp string) (*study.ProgressSnapshot, error) {
	var row snapshotRow
	err := d.DB.GetContext(ctx, &row,
		d.q(`SELECT `+snapshotColumns+` FROM progress_snapshots WHERE user_id = ? AND fingerprint = ?`),
		userID, fp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{Key: userID + "/" + fp}
	}
	if err != nil {
		return nil, storage.Unavailable("get snapshot", err)
	}
	return row.snapshot()
}

// PutSnapshot creates or overwrites the snapshot for (s.UserID, s.Fingerprint).
func (d *Driver) PutSnapshot(ctx context.Context, s *study.ProgressSnapshot) error {
	if s == nil {
		return errors.New("cannot store nil progress snapshot")
	}

	row, err := newSnapshotRow(s)
	if err != nil {
		return err
	}

	_, err = d.DB.NamedExecContext(ctx, `
		INSERT INTO progress_snapshots (`+snapshotColumns+`)
		VALUES (:user_id, :fingerprint, :overall_weak_topics, :improvement_areas,
			:total_sessions, :average_score, :best_score, :recent_trend, :last_session_at, :updated_at)
		ON CONFLICT (user_id, fingerprint) DO UPDATE SET
			overall_weak_topics = excluded.overall_weak_topics,
			improvement_areas = excluded.improvement_areas,
			total_sessions = excluded.total_sessions,
			average_score = excluded.average_score,
			best_score = excluded.best_score,
			recent_trend = excluded.recent_trend,
			last_session_at = excluded.last_session_at,
			updated_at = excluded.updated_at`,
		row)
	if err != nil {
		return storage.Unavailable("put snapshot", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (d *Driver) Close() error {
	return d.DB.Close()
}
