package sqlstore

// schema is portable across SQLite, libSQL and PostgreSQL. Timestamps are
// stored as unix nanoseconds and list-valued columns as JSON text so the same
// statements and scans work on every dialect. The assessment_records table
// is the exception; see recordsSchema.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS cache_entries (
		fingerprint TEXT NOT NULL,
		kind TEXT NOT NULL,
		payload TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		expires_at BIGINT NOT NULL,
		PRIMARY KEY (fingerprint, kind)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at)`,

	`CREATE TABLE IF NOT EXISTS cache_metadata (
		user_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		source_title TEXT NOT NULL DEFAULT '',
		registered_kinds TEXT NOT NULL DEFAULT '[]',
		access_count INTEGER NOT NULL DEFAULT 0,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		last_accessed_at BIGINT NOT NULL,
		created_at BIGINT NOT NULL,
		expires_at BIGINT NOT NULL,
		PRIMARY KEY (user_id, fingerprint)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_metadata_fingerprint ON cache_metadata(fingerprint)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_metadata_expires_at ON cache_metadata(expires_at)`,

	`CREATE TABLE IF NOT EXISTS progress_snapshots (
		user_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		overall_weak_topics TEXT NOT NULL DEFAULT '[]',
		improvement_areas TEXT NOT NULL DEFAULT '[]',
		total_sessions INTEGER NOT NULL DEFAULT 0,
		average_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		best_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		recent_trend DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_session_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (user_id, fingerprint)
	)`,
}

// recordsSchema creates assessment_records. seq is a per-table insertion
// counter that orders records sharing a created_at. PostgreSQL fills it from
// a sequence; SQLite dialects get it from AppendRecord, which is safe because
// SQLite serializes writers.
func recordsSchema(postgres bool) []string {
	seq := "seq INTEGER NOT NULL DEFAULT 0"
	if postgres {
		seq = "seq BIGSERIAL NOT NULL"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS assessment_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		kind TEXT NOT NULL,
		source_title TEXT NOT NULL DEFAULT '',
		questions TEXT NOT NULL DEFAULT '[]',
		answers TEXT NOT NULL DEFAULT '[]',
		score DOUBLE PRECISION,
		weak_topics TEXT NOT NULL DEFAULT '[]',
		is_retake BOOLEAN NOT NULL DEFAULT FALSE,
		previous_session_id TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL,
		` + seq + `
	)`,
		`CREATE INDEX IF NOT EXISTS idx_assessment_records_user_fp_created
		ON assessment_records(user_id, fingerprint, created_at, seq)`,
	}
	if postgres {
		// Tables created before seq existed.
		stmts = append(stmts[:1],
			`ALTER TABLE assessment_records ADD COLUMN IF NOT EXISTS seq BIGSERIAL NOT NULL`,
			stmts[1])
	}
	return stmts
}
