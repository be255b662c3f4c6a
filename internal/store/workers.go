package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"transcoder/internal/model"
)

// ListWorkers returns every configured Worker.
func (s *Store) ListWorkers(ctx context.Context) ([]*model.Worker, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, active, status, current_job_id, max_concurrent_jobs
		FROM workers ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var out []*model.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetWorker fetches a Worker by id.
func (s *Store) GetWorker(ctx context.Context, id string) (*model.Worker, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, active, status, current_job_id, max_concurrent_jobs
		FROM workers WHERE id = ?
	`, id)
	return scanWorker(row)
}

// CreateWorker inserts a new Worker, generating an ID if none is set and
// defaulting MaxConcurrentJobs to 1 if unset.
func (s *Store) CreateWorker(ctx context.Context, w *model.Worker) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.MaxConcurrentJobs <= 0 {
		w.MaxConcurrentJobs = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workers (id, name, active, status, current_job_id, max_concurrent_jobs)
		VALUES (?, ?, ?, ?, ?, ?)
	`, w.ID, w.Name, w.Active, w.Status, nullable(w.CurrentJobID), w.MaxConcurrentJobs)
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}
	return nil
}

// SetWorkerStatus updates a Worker's live status and, optionally, which job
// it currently holds (pass "" to clear it).
func (s *Store) SetWorkerStatus(ctx context.Context, id string, status model.WorkerStatus, currentJobID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE workers SET status = ?, current_job_id = ? WHERE id = ?
	`, status, nullable(currentJobID), id)
	if err != nil {
		return fmt.Errorf("set worker status: %w", err)
	}
	return nil
}

// SetWorkerActive toggles a Worker's active flag, the on/off switch the
// admin interface and WorkerPool's reconcile loop act on.
func (s *Store) SetWorkerActive(ctx context.Context, id string, active bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE workers SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("set worker active: %w", err)
	}
	return nil
}

// UpdateWorker overwrites a Worker's editable attributes in place.
func (s *Store) UpdateWorker(ctx context.Context, w *model.Worker) error {
	if w.MaxConcurrentJobs <= 0 {
		w.MaxConcurrentJobs = 1
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE workers SET name = ?, max_concurrent_jobs = ? WHERE id = ?
	`, w.Name, w.MaxConcurrentJobs, w.ID)
	if err != nil {
		return fmt.Errorf("update worker: %w", err)
	}
	return nil
}

// DeleteWorker removes a Worker. Callers must StopWorker first; deleting a
// running worker's row does not itself halt its claim-loop goroutines.
func (s *Store) DeleteWorker(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM workers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete worker: %w", err)
	}
	return nil
}

func scanWorker(r rowScanner) (*model.Worker, error) {
	var (
		w            model.Worker
		currentJobID sql.NullString
	)
	err := r.Scan(&w.ID, &w.Name, &w.Active, &w.Status, &currentJobID, &w.MaxConcurrentJobs)
	if err != nil {
		return nil, err
	}
	w.CurrentJobID = currentJobID.String
	return &w, nil
}
