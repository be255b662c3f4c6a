package model

import "time"

// SourceKind distinguishes where a Source's media files originate.
type SourceKind string

const (
	SourceLocal  SourceKind = "LOCAL"
	SourceRemote SourceKind = "REMOTE"
)

// SourceStatus reflects the live state of a Source's watcher.
type SourceStatus string

const (
	SourceIdle       SourceStatus = "IDLE"
	SourceMonitoring SourceStatus = "MONITORING"
	SourceError      SourceStatus = "ERROR"
)

// Source is a configured ingest point, local directory or remote FTP host.
type Source struct {
	ID        string
	Name      string
	Kind      SourceKind
	Active    bool
	Status    SourceStatus
	ProfileID string // empty means "default" profile handling applies

	// LOCAL fields
	Path string

	// REMOTE fields (FTP)
	FTPHost       string
	FTPPort       int
	FTPUsername   string
	FTPPassword   string
	FTPRemotePath string
	FTPLocalTemp  string

	// shared
	OutputPath  string
	ArchivePath string

	CreatedAt time.Time
}

// AllowedExtensions is the case-insensitive extension allow-list watchers use
// to decide whether a discovered file is a transcode candidate.
var AllowedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mxf":  true,
	".mkv":  true,
	".mts":  true,
	".m2ts": true,
}
