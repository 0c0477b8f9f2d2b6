package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"scribe/internal/config"
)

// ErrNotFound is returned when no job matches the requested id.
var ErrNotFound = errors.New("job not found")

// ErrTerminal is returned when a write would mutate a job that already
// reached a terminal stage.
var ErrTerminal = errors.New("job is terminal")

// ErrInvalidTransition is returned when a write would move a job backwards
// or skip ahead outside the documented stage order.
var ErrInvalidTransition = errors.New("invalid stage transition")

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the job database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Create inserts a new pending job for an uploaded recording.
func (s *Store) Create(ctx context.Context, sourceRef, languageHint string, minutesEnabled bool) (*Job, error) {
	sourceRef = strings.TrimSpace(sourceRef)
	if sourceRef == "" {
		return nil, errors.New("source ref is required")
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(
			ctx,
			`INSERT INTO jobs (
                id, stage, status, progress, attempt, source_ref,
                language_hint, minutes_enabled, created_at, updated_at
            ) VALUES (?, ?, ?, 0, 1, ?, ?, ?, ?, ?)`,
			id,
			StageUpload,
			StatusPending,
			sourceRef,
			nullableString(languageHint),
			boolToInt(minutesEnabled),
			now.Format(time.RFC3339Nano),
			now.Format(time.RFC3339Nano),
		)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches one job.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists the full mutable state of a job as one atomic write.
// It enforces the stage invariants: terminal jobs accept no further
// transitions, and stages never regress outside the retry path.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is required")
	}

	current, err := s.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if current.Stage.IsTerminal() && current.Stage != job.Stage {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, job.ID, current.Stage)
	}
	if !validTransition(current.Stage, job.Stage) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Stage, job.Stage)
	}

	job.UpdatedAt = time.Now().UTC()
	return retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(
			ctx,
			`UPDATE jobs SET
                stage = ?, status = ?, progress = ?, attempt = ?,
                failed_stage = ?, error_message = ?, language_hint = ?,
                minutes_enabled = ?, transcript_json = ?, quality_json = ?,
                minutes_text = ?, updated_at = ?
            WHERE id = ?`,
			job.Stage,
			job.Status,
			job.Progress,
			job.Attempt,
			nullableString(string(job.FailedStage)),
			nullableString(job.ErrorMessage),
			nullableString(job.LanguageHint),
			boolToInt(job.MinutesEnabled),
			nullableString(job.TranscriptJSON),
			nullableString(job.QualityJSON),
			nullableString(job.MinutesText),
			job.UpdatedAt.Format(time.RFC3339Nano),
			job.ID,
		)
		return execErr
	})
}

// ResetForRetry atomically returns a failed job to its failed stage with a
// fresh attempt counter. This is the only write allowed to move a job out of
// the failed stage.
func (s *Store) ResetForRetry(ctx context.Context, id string) (*Job, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Stage != StageFailed {
		return nil, fmt.Errorf("%w: retry requires a failed job, stage is %s", ErrInvalidTransition, current.Stage)
	}
	resume := current.FailedStage
	if resume == "" || resume.IsTerminal() {
		resume = StageUpload
	}

	now := time.Now().UTC()
	err = retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(
			ctx,
			`UPDATE jobs SET
                stage = ?, status = ?, progress = 0, attempt = attempt + 1,
                error_message = NULL, updated_at = ?
            WHERE id = ? AND stage = ?`,
			resume,
			StatusPending,
			now.Format(time.RFC3339Nano),
			id,
			StageFailed,
		)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("reset for retry: %w", err)
	}
	return s.GetByID(ctx, id)
}

// List returns jobs filtered to the given stages, newest first. With no
// stages it returns everything.
func (s *Store) List(ctx context.Context, stages ...Stage) ([]Job, error) {
	query := selectColumns + ` FROM jobs`
	args := make([]any, 0, len(stages))
	if len(stages) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(stages)), ",")
		query += ` WHERE stage IN (` + placeholders + `)`
		for _, stage := range stages {
			args = append(args, stage)
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		result = append(result, *job)
	}
	return result, rows.Err()
}

// Stats returns per-stage job counts.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage, COUNT(*) FROM jobs GROUP BY stage`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[stage] = count
	}
	return stats, rows.Err()
}

// Health verifies the database answers a trivial query.
func (s *Store) Health(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("job store health: %w", err)
	}
	return nil
}

const selectColumns = `SELECT
    id, stage, status, progress, attempt, failed_stage, error_message,
    source_ref, language_hint, minutes_enabled, transcript_json,
    quality_json, minutes_text, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var failedStage, errorMessage, languageHint sql.NullString
	var transcriptJSON, qualityJSON, minutesText sql.NullString
	var minutesEnabled int
	var createdAt, updatedAt string

	if err := row.Scan(
		&job.ID,
		&job.Stage,
		&job.Status,
		&job.Progress,
		&job.Attempt,
		&failedStage,
		&errorMessage,
		&job.SourceRef,
		&languageHint,
		&minutesEnabled,
		&transcriptJSON,
		&qualityJSON,
		&minutesText,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	job.FailedStage = Stage(failedStage.String)
	job.ErrorMessage = errorMessage.String
	job.LanguageHint = languageHint.String
	job.MinutesEnabled = minutesEnabled != 0
	job.TranscriptJSON = transcriptJSON.String
	job.QualityJSON = qualityJSON.String
	job.MinutesText = minutesText.String
	job.CreatedAt = parseTimestamp(createdAt)
	job.UpdatedAt = parseTimestamp(updatedAt)
	return &job, nil
}

func parseTimestamp(value string) time.Time {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	return time.Time{}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
