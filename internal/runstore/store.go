// Package runstore persists one ledger row per completed caption run. The
// ledger is a supplement to the in-memory result: it lets operators audit
// what audio was processed, how many recognizer calls it cost, and what came
// out, without rerunning anything. Storage is a single SQLite database in the
// workspace directory, guarded by a file lock so two capstan processes never
// share it.
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"capstan/internal/config"
)

// ErrWorkspaceLocked indicates another capstan process holds the workspace.
var ErrWorkspaceLocked = errors.New("workspace locked by another capstan process")

// Record is one persisted run.
type Record struct {
	ID               int64
	RunID            string
	SourcePath       string
	SourceSHA256     string
	DurationSeconds  float64
	BlockCount       int
	WordCount        int
	Model            string
	ChunkCalls       int
	SegmentCalls     int
	FailedCalls      int
	RetriedCalls     int
	AudioSecondsSent float64
	WaveformStrategy string
	ElapsedSeconds   float64
	ResultJSON       string
	CreatedAt        time.Time
}

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open locks the workspace, connects to the run database, and verifies the
// schema. Callers must Close the store to release the lock.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("runstore requires config")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.WorkspaceDir, "capstan.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceLocked, lock.Path())
	}

	dbPath := filepath.Join(cfg.Paths.WorkspaceDir, "runs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

// Path reports the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the database and releases the workspace lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SaveRun inserts one completed run. The record's ID and CreatedAt are filled
// in on return.
func (s *Store) SaveRun(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("nil record")
	}
	if strings.TrimSpace(rec.RunID) == "" {
		return errors.New("record missing run id")
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            run_id, source_path, source_sha256, duration_seconds,
            block_count, word_count, model,
            chunk_calls, segment_calls, failed_calls, retried_calls,
            audio_seconds_sent, waveform_strategy, elapsed_seconds,
            result_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.SourcePath,
		rec.SourceSHA256,
		rec.DurationSeconds,
		rec.BlockCount,
		rec.WordCount,
		nullableString(rec.Model),
		rec.ChunkCalls,
		rec.SegmentCalls,
		rec.FailedCalls,
		rec.RetriedCalls,
		rec.AudioSecondsSent,
		nullableString(rec.WaveformStrategy),
		rec.ElapsedSeconds,
		nullableString(rec.ResultJSON),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	rec.CreatedAt = now
	return nil
}

// List returns the most recent runs, newest first. A limit of zero or less
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := selectColumns + " FROM runs ORDER BY datetime(created_at) DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

// GetByRunID fetches a single run. Unique prefixes of the run ID are accepted
// so operators can paste the short form shown by `runs list`.
func (s *Store) GetByRunID(ctx context.Context, runID string) (*Record, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, errors.New("empty run id")
	}
	rows, err := s.db.QueryContext(ctx,
		selectColumns+" FROM runs WHERE run_id LIKE ? ORDER BY id", runID+"%")
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var matches []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("run %q not found", runID)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("run id %q is ambiguous (%d matches)", runID, len(matches))
	}
}

// Clear removes every run row.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM runs")
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

const selectColumns = `SELECT id, run_id, source_path, source_sha256, duration_seconds,
    block_count, word_count, model,
    chunk_calls, segment_calls, failed_calls, retried_calls,
    audio_seconds_sent, waveform_strategy, elapsed_seconds,
    result_json, created_at`

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec       Record
		model     sql.NullString
		strategy  sql.NullString
		result    sql.NullString
		createdAt string
	)
	err := rows.Scan(
		&rec.ID, &rec.RunID, &rec.SourcePath, &rec.SourceSHA256, &rec.DurationSeconds,
		&rec.BlockCount, &rec.WordCount, &model,
		&rec.ChunkCalls, &rec.SegmentCalls, &rec.FailedCalls, &rec.RetriedCalls,
		&rec.AudioSecondsSent, &strategy, &rec.ElapsedSeconds,
		&result, &createdAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("scan run: %w", err)
	}
	rec.Model = model.String
	rec.WaveformStrategy = strategy.String
	rec.ResultJSON = result.String
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		rec.CreatedAt = ts
	}
	return rec, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
