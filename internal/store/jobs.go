package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"transcoder/internal/model"
)

// ClaimNextPendingJob atomically selects the oldest PENDING job with no
// owner, transitions it to PROCESSING, assigns workerID and sets
// started_at, and returns it. Returns (nil, nil) when no job is available —
// callers should treat that as "poll again", not an error.
func (s *Store) ClaimNextPendingJob(ctx context.Context, workerID string) (*model.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM jobs
		WHERE status = ? AND worker_id IS NULL
		ORDER BY created_at ASC
		LIMIT 1
	`, model.JobPending).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select next pending: %w", err)
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, worker_id = ?, started_at = ?
		WHERE id = ? AND status = ? AND worker_id IS NULL
	`, model.JobProcessing, workerID, now, id, model.JobPending)
	if err != nil {
		return nil, fmt.Errorf("claim update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim rows affected: %w", err)
	}
	if affected == 0 {
		// Lost the race to another caller between the select and the
		// update (only possible across separate Store instances sharing
		// the file; within one process the single-connection pool rules
		// this out). Treat as "nothing to claim this round".
		return nil, nil
	}

	job, err := scanJobByID(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("reload claimed job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return job, nil
}

// UpdateProgress advances a job's progress. It is a silent no-op if the job
// is no longer PROCESSING, so a stray late progress update can never
// resurrect or corrupt a terminal write.
func (s *Store) UpdateProgress(ctx context.Context, jobID string, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 99 {
		percent = 99
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET progress = ?
		WHERE id = ? AND status = ?
	`, percent, jobID, model.JobProcessing)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// SetInputDuration persists a job's probed input duration once known.
func (s *Store) SetInputDuration(ctx context.Context, jobID string, seconds float64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET input_duration = ? WHERE id = ?`, seconds, jobID)
	if err != nil {
		return fmt.Errorf("set input duration: %w", err)
	}
	return nil
}

// CompleteJob performs the terminal COMPLETED transition: progress=100,
// owner cleared, completed_at set, output size recorded.
func (s *Store) CompleteJob(ctx context.Context, jobID string, outputSizeBytes int64, outputDuration float64) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, progress = 100, worker_id = NULL,
		    output_size_bytes = ?, output_duration = ?, completed_at = ?
		WHERE id = ?
	`, model.JobCompleted, outputSizeBytes, outputDuration, now, jobID)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// FailJob performs the terminal FAILED transition: owner cleared,
// completed_at set, error message recorded.
func (s *Store) FailJob(ctx context.Context, jobID string, message string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, worker_id = NULL, error_message = ?, completed_at = ?
		WHERE id = ?
	`, model.JobFailed, truncate(message, 2000), now, jobID)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

// CancelJob performs the terminal CANCELLED transition. Progress is left at
// its last recorded value (see model.Job doc comment); archival must not
// run for a cancelled job, so this does not touch output fields.
func (s *Store) CancelJob(ctx context.Context, jobID string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = ?, worker_id = NULL, completed_at = ?
		WHERE id = ?
	`, model.JobCancelled, now, jobID)
	if err != nil {
		return fmt.Errorf("cancel job: %w", err)
	}
	return nil
}

// InsertJobIfAbsent is the sole deduplication point: if a non-terminal job
// already exists for (sourceID, filename) it is returned unchanged;
// otherwise a new PENDING job is inserted and returned. Safe to call
// concurrently because the single-connection pool serializes the
// check-then-insert.
func (s *Store) InsertJobIfAbsent(ctx context.Context, sourceID, profileID, filename, inputPath, outputPath string, sizeBytes int64) (job *model.Job, inserted bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM jobs
		WHERE source_id = ? AND input_filename = ?
		  AND status IN (?, ?)
		LIMIT 1
	`, sourceID, filename, model.JobPending, model.JobProcessing).Scan(&existingID)
	switch {
	case err == nil:
		existing, err := scanJobByID(ctx, tx, existingID)
		if err != nil {
			return nil, false, fmt.Errorf("reload existing job: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit lookup: %w", err)
		}
		return existing, false, nil
	case err != sql.ErrNoRows:
		return nil, false, fmt.Errorf("lookup existing job: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO jobs (
			id, source_id, profile_id, input_filename, input_path, output_path,
			status, progress, input_size_bytes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, id, sourceID, profileID, filename, inputPath, outputPath, model.JobPending, sizeBytes, now)
	if err != nil {
		return nil, false, fmt.Errorf("insert job: %w", err)
	}

	created, err := scanJobByID(ctx, tx, id)
	if err != nil {
		return nil, false, fmt.Errorf("reload inserted job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit insert: %w", err)
	}
	return created, true, nil
}

// GetJob fetches a single job by id.
func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	return scanJobByID(ctx, s.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanJobByID(ctx context.Context, q querier, id string) (*model.Job, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, source_id, profile_id, worker_id, input_filename, input_path,
		       output_path, status, progress, input_size_bytes, output_size_bytes,
		       input_duration, output_duration, error_message, created_at,
		       started_at, completed_at
		FROM jobs WHERE id = ?
	`, id)
	return scanJobRows(row)
}

func scanJobRows(row rowScanner) (*model.Job, error) {
	var (
		j          model.Job
		profileID  sql.NullString
		workerID   sql.NullString
		errMessage sql.NullString
		startedAt  sql.NullTime
		completed  sql.NullTime
	)
	err := row.Scan(
		&j.ID, &j.SourceID, &profileID, &workerID, &j.InputFilename, &j.InputPath,
		&j.OutputPath, &j.Status, &j.Progress, &j.InputSizeBytes, &j.OutputSizeBytes,
		&j.InputDuration, &j.OutputDuration, &errMessage, &j.CreatedAt,
		&startedAt, &completed,
	)
	if err != nil {
		return nil, err
	}
	j.ProfileID = profileID.String
	j.WorkerID = workerID.String
	j.ErrorMessage = errMessage.String
	if startedAt.Valid {
		t := startedAt.Time
		j.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
