package store

import (
	"context"
	"fmt"

	"transcoder/internal/model"
)

// StatusCounts tallies jobs by JobStatus, the shape the admin façade's
// snapshot exposes for an at-a-glance queue view.
type StatusCounts map[model.JobStatus]int

// JobStatusCounts returns the number of jobs in each status.
func (s *Store) JobStatusCounts(ctx context.Context) (StatusCounts, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job status counts: %w", err)
	}
	defer rows.Close()

	counts := make(StatusCounts)
	for rows.Next() {
		var status model.JobStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ListJobsByStatus returns jobs in a given status, newest first, capped at
// limit (0 means unlimited).
func (s *Store) ListJobsByStatus(ctx context.Context, status model.JobStatus, limit int) ([]*model.Job, error) {
	query := `
		SELECT id, source_id, profile_id, worker_id, input_filename, input_path,
		       output_path, status, progress, input_size_bytes, output_size_bytes,
		       input_duration, output_duration, error_message, created_at,
		       started_at, completed_at
		FROM jobs WHERE status = ? ORDER BY created_at DESC
	`
	args := []any{status}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs by status: %w", err)
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJobRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// ListJobsForSource returns every job recorded for a given Source, newest
// first.
func (s *Store) ListJobsForSource(ctx context.Context, sourceID string) ([]*model.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, profile_id, worker_id, input_filename, input_path,
		       output_path, status, progress, input_size_bytes, output_size_bytes,
		       input_duration, output_duration, error_message, created_at,
		       started_at, completed_at
		FROM jobs WHERE source_id = ? ORDER BY created_at DESC
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list jobs for source: %w", err)
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJobRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
