package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"iter"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/stash/internal/backend"
	"github.com/roach88/stash/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (records without content_hash)
// 1 - Added content_hash column and kind index
const currentSchemaVersion = 1

// Store is a SQLite-backed Backend.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Name implements backend.Backend.
func (s *Store) Name() string { return "sqlite" }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load implements backend.Backend.
func (s *Store) Load(ctx context.Context, kind string, id int64) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM records
		WHERE kind = ? AND persistent_id = ?
	`, kind, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load record: %w", err)
	}
	return payload, true, nil
}

// Save implements backend.Backend.
// The row is left untouched (including updated_at) when the payload's
// content hash matches the stored one.
func (s *Store) Save(ctx context.Context, kind string, id int64, payload []byte) error {
	if payload == nil {
		payload = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (kind, persistent_id, payload, content_hash, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, persistent_id) DO UPDATE SET
			payload = excluded.payload,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
		WHERE records.content_hash != excluded.content_hash
	`,
		kind,
		id,
		payload,
		ir.ContentHash(kind, payload),
		s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// Delete implements backend.Backend.
func (s *Store) Delete(ctx context.Context, kind string, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM records WHERE kind = ? AND persistent_id = ?
	`, kind, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// List implements backend.Backend.
// Ids are read in full before the first yield: the pool holds a single
// connection, and callers commonly Load while iterating.
func (s *Store) List(ctx context.Context, kind string) iter.Seq2[int64, error] {
	return func(yield func(int64, error) bool) {
		ids, err := s.listIDs(ctx, kind)
		if err != nil {
			yield(0, err)
			return
		}
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

func (s *Store) listIDs(ctx context.Context, kind string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT persistent_id FROM records
		WHERE kind = ?
		ORDER BY persistent_id ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan record id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return ids, nil
}

// Kinds implements backend.KindLister.
func (s *Store) Kinds(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT kind FROM records ORDER BY kind ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list kinds: %w", err)
	}
	defer rows.Close()

	var kinds []string
	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return nil, fmt.Errorf("scan kind: %w", err)
		}
		kinds = append(kinds, kind)
	}
	return kinds, rows.Err()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds content_hash to databases created before write skipping
// existed. New databases already get the column from schema.sql.
func migrateToV1(db *sql.DB) error {
	has, err := hasColumn(db, "records", "content_hash")
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	if !has {
		if _, err := db.Exec(`ALTER TABLE records ADD COLUMN content_hash TEXT NOT NULL DEFAULT ''`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind)`); err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

var _ backend.Backend = (*Store)(nil)
