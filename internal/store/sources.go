package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"transcoder/internal/model"
)

// ListSources returns every configured Source, active or not.
func (s *Store) ListSources(ctx context.Context) ([]*model.Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, kind, active, status, profile_id, path,
		       ftp_host, ftp_port, ftp_username, ftp_password, ftp_remote_path,
		       ftp_local_temp, output_path, archive_path, created_at
		FROM sources ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []*model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// GetSource fetches a single Source by id.
func (s *Store) GetSource(ctx context.Context, id string) (*model.Source, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, active, status, profile_id, path,
		       ftp_host, ftp_port, ftp_username, ftp_password, ftp_remote_path,
		       ftp_local_temp, output_path, archive_path, created_at
		FROM sources WHERE id = ?
	`, id)
	return scanSource(row)
}

// CreateSource inserts a new Source, generating an ID if none is set.
func (s *Store) CreateSource(ctx context.Context, src *model.Source) error {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (
			id, name, kind, active, status, profile_id, path,
			ftp_host, ftp_port, ftp_username, ftp_password, ftp_remote_path,
			ftp_local_temp, output_path, archive_path, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, src.ID, src.Name, src.Kind, src.Active, src.Status, nullable(src.ProfileID), nullable(src.Path),
		nullable(src.FTPHost), src.FTPPort, nullable(src.FTPUsername), nullable(src.FTPPassword), nullable(src.FTPRemotePath),
		nullable(src.FTPLocalTemp), nullable(src.OutputPath), nullable(src.ArchivePath), src.CreatedAt)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

// SetSourceStatus updates only a Source's live status field, the
// value SourceSupervisor and the watchers flip as they start, stabilize or
// fault.
func (s *Store) SetSourceStatus(ctx context.Context, id string, status model.SourceStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sources SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set source status: %w", err)
	}
	return nil
}

// SetSourceActive toggles a Source's active flag, the admin-facing on/off
// switch SourceSupervisor's reconcile loop watches for.
func (s *Store) SetSourceActive(ctx context.Context, id string, active bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE sources SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("set source active: %w", err)
	}
	return nil
}

// UpdateSource overwrites a Source's editable attributes in place, keeping
// its id and created_at.
func (s *Store) UpdateSource(ctx context.Context, src *model.Source) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sources SET
			name = ?, kind = ?, profile_id = ?, path = ?,
			ftp_host = ?, ftp_port = ?, ftp_username = ?, ftp_password = ?,
			ftp_remote_path = ?, ftp_local_temp = ?, output_path = ?, archive_path = ?
		WHERE id = ?
	`, src.Name, src.Kind, nullable(src.ProfileID), nullable(src.Path),
		nullable(src.FTPHost), src.FTPPort, nullable(src.FTPUsername), nullable(src.FTPPassword),
		nullable(src.FTPRemotePath), nullable(src.FTPLocalTemp), nullable(src.OutputPath), nullable(src.ArchivePath),
		src.ID)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return nil
}

// DeleteSource removes a Source. Jobs already created for it are left
// untouched; the core never deletes Jobs.
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(r rowScanner) (*model.Source, error) {
	var (
		src         model.Source
		profileID   sql.NullString
		path        sql.NullString
		ftpHost     sql.NullString
		ftpPort     sql.NullInt64
		ftpUser     sql.NullString
		ftpPass     sql.NullString
		ftpRemote   sql.NullString
		ftpLocal    sql.NullString
		outputPath  sql.NullString
		archivePath sql.NullString
	)
	err := r.Scan(
		&src.ID, &src.Name, &src.Kind, &src.Active, &src.Status, &profileID, &path,
		&ftpHost, &ftpPort, &ftpUser, &ftpPass, &ftpRemote,
		&ftpLocal, &outputPath, &archivePath, &src.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	src.ProfileID = profileID.String
	src.Path = path.String
	src.FTPHost = ftpHost.String
	src.FTPPort = int(ftpPort.Int64)
	src.FTPUsername = ftpUser.String
	src.FTPPassword = ftpPass.String
	src.FTPRemotePath = ftpRemote.String
	src.FTPLocalTemp = ftpLocal.String
	src.OutputPath = outputPath.String
	src.ArchivePath = archivePath.String
	return &src, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
