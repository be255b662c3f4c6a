package store

// baseSchema creates every table if it does not already exist. Optional
// columns added after the initial release are handled by migrate.go instead
// of being baked in here, so that an older database file on disk is brought
// up to date additively rather than recreated.
const baseSchema = `
CREATE TABLE IF NOT EXISTS sources (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	status TEXT NOT NULL DEFAULT 'IDLE',
	profile_id TEXT,
	path TEXT,
	ftp_host TEXT,
	ftp_port INTEGER,
	ftp_username TEXT,
	ftp_password TEXT,
	ftp_remote_path TEXT,
	ftp_local_temp TEXT,
	output_path TEXT,
	archive_path TEXT,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT,
	video_codec TEXT NOT NULL,
	video_bitrate TEXT NOT NULL,
	audio_codec TEXT NOT NULL,
	audio_bitrate TEXT,
	audio_sample_rate TEXT NOT NULL,
	audio_channels TEXT NOT NULL,
	container TEXT NOT NULL,
	extra_args TEXT
);

CREATE TABLE IF NOT EXISTS workers (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	status TEXT NOT NULL DEFAULT 'IDLE',
	current_job_id TEXT,
	max_concurrent_jobs INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	profile_id TEXT,
	worker_id TEXT,
	input_filename TEXT NOT NULL,
	input_path TEXT NOT NULL,
	output_path TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'PENDING',
	progress INTEGER NOT NULL DEFAULT 0,
	input_size_bytes INTEGER NOT NULL DEFAULT 0,
	output_size_bytes INTEGER NOT NULL DEFAULT 0,
	input_duration REAL NOT NULL DEFAULT 0,
	error_message TEXT,
	created_at DATETIME NOT NULL,
	started_at DATETIME,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_jobs_claim ON jobs (status, created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_source_filename ON jobs (source_id, input_filename);
`
