package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"transcoder/internal/model"
)

// ErrProfileInUse is returned by DeleteProfile when a Source or Job still
// references the Profile being deleted.
var ErrProfileInUse = errors.New("profile is referenced by a source or job")

// ListProfiles returns every configured Profile.
func (s *Store) ListProfiles(ctx context.Context) ([]*model.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, video_codec, video_bitrate, audio_codec,
		       audio_bitrate, audio_sample_rate, audio_channels, container, extra_args
		FROM profiles ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []*model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProfile fetches a Profile by id.
func (s *Store) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, video_codec, video_bitrate, audio_codec,
		       audio_bitrate, audio_sample_rate, audio_channels, container, extra_args
		FROM profiles WHERE id = ?
	`, id)
	return scanProfile(row)
}

// GetProfileByName fetches a Profile by its unique name, used by JobFactory
// when falling back to the "default" profile for a Source with none bound.
func (s *Store) GetProfileByName(ctx context.Context, name string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, video_codec, video_bitrate, audio_codec,
		       audio_bitrate, audio_sample_rate, audio_channels, container, extra_args
		FROM profiles WHERE name = ?
	`, name)
	return scanProfile(row)
}

// CreateProfile inserts a new Profile, generating an ID if none is set.
func (s *Store) CreateProfile(ctx context.Context, p *model.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (
			id, name, description, video_codec, video_bitrate, audio_codec,
			audio_bitrate, audio_sample_rate, audio_channels, container, extra_args
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, nullable(p.Description), p.VideoCodec, p.VideoBitrate, p.AudioCodec,
		nullable(p.AudioBitrate), p.AudioSampleRate, p.AudioChannels, p.Container, nullable(p.ExtraArgs))
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// UpdateProfile overwrites a Profile's editable attributes in place.
func (s *Store) UpdateProfile(ctx context.Context, p *model.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE profiles SET
			name = ?, description = ?, video_codec = ?, video_bitrate = ?,
			audio_codec = ?, audio_bitrate = ?, audio_sample_rate = ?,
			audio_channels = ?, container = ?, extra_args = ?
		WHERE id = ?
	`, p.Name, nullable(p.Description), p.VideoCodec, p.VideoBitrate, p.AudioCodec,
		nullable(p.AudioBitrate), p.AudioSampleRate, p.AudioChannels, p.Container, nullable(p.ExtraArgs), p.ID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// DeleteProfile removes a Profile, refusing if any Source or Job still
// references it.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	var refs int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(1) FROM sources WHERE profile_id = ?) +
			(SELECT COUNT(1) FROM jobs WHERE profile_id = ?)
	`, id, id).Scan(&refs)
	if err != nil {
		return fmt.Errorf("check profile references: %w", err)
	}
	if refs > 0 {
		return ErrProfileInUse
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func scanProfile(r rowScanner) (*model.Profile, error) {
	var (
		p           model.Profile
		description sql.NullString
		audioBR     sql.NullString
		extraArgs   sql.NullString
	)
	err := r.Scan(
		&p.ID, &p.Name, &description, &p.VideoCodec, &p.VideoBitrate, &p.AudioCodec,
		&audioBR, &p.AudioSampleRate, &p.AudioChannels, &p.Container, &extraArgs,
	)
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.AudioBitrate = audioBR.String
	p.ExtraArgs = extraArgs.String
	return &p, nil
}
