// Package remotewatcher polls a REMOTE Source's FTP directory, waits for
// uploads to stabilize, downloads candidates into a local staging area, and
// hands them to jobfactory. One remote kind is supported: a text-command
// file transfer protocol authenticated by username/password.
package remotewatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jlaffaye/ftp"

	"transcoder/internal/jobfactory"
	"transcoder/internal/model"
	"transcoder/internal/store"
)

// ErrMissingCredentials is returned by Start when the Source lacks the FTP
// host or username needed to dial out. The Source is marked ERROR and no
// poll loop is launched.
var ErrMissingCredentials = errors.New("remotewatcher: missing ftp host or username")

type Config struct {
	PollInterval         time.Duration
	StabilizeWait        time.Duration
	StagingStabilizeWait time.Duration
	ErrorBackoff         time.Duration
}

type Watcher struct {
	source  *model.Source
	store   *store.Store
	factory *jobfactory.Factory
	cfg     Config
	log     *log.Logger

	knownFiles map[string]bool
	done       chan struct{}
	stopped    chan struct{}
}

func New(src *model.Source, s *store.Store, f *jobfactory.Factory, cfg Config) *Watcher {
	return &Watcher{
		source:     src,
		store:      s,
		factory:    f,
		cfg:        cfg,
		log:        log.With("source", src.Name, "source_id", src.ID, "kind", "REMOTE"),
		knownFiles: make(map[string]bool),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Start validates that credentials are present (a REMOTE Source missing
// host or username goes straight to ERROR without ever dialing out) and
// launches the poll loop. On any path that returns without launching
// run(), stopped is closed immediately so a subsequent Stop() never blocks
// waiting on a poll loop that was never started.
func (w *Watcher) Start(ctx context.Context) error {
	if w.source.FTPHost == "" || w.source.FTPUsername == "" {
		w.log.Error("missing ftp host or username, refusing to start")
		close(w.stopped)
		if err := w.store.SetSourceStatus(ctx, w.source.ID, model.SourceError); err != nil {
			return err
		}
		return ErrMissingCredentials
	}

	if err := w.store.SetSourceStatus(ctx, w.source.ID, model.SourceMonitoring); err != nil {
		close(w.stopped)
		return err
	}

	go w.run(ctx)
	return nil
}

func (w *Watcher) Stop() {
	close(w.done)
	<-w.stopped
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.stopped)

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := w.pollOnce(ctx); err != nil {
			w.log.Error("poll failed", "error", err)
			_ = w.store.SetSourceStatus(ctx, w.source.ID, model.SourceError)
			if !w.sleep(ctx, w.cfg.ErrorBackoff) {
				return
			}
			continue
		}
		_ = w.store.SetSourceStatus(ctx, w.source.ID, model.SourceMonitoring)
		if !w.sleep(ctx, w.cfg.PollInterval) {
			return
		}
	}
}

func (w *Watcher) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-w.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (w *Watcher) pollOnce(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", w.source.FTPHost, ftpPort(w.source.FTPPort))
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Quit()

	if err := conn.Login(w.source.FTPUsername, w.source.FTPPassword); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	remotePath := w.source.FTPRemotePath
	if remotePath == "" {
		remotePath = "/"
	}

	entries, err := conn.List(remotePath)
	if err != nil {
		return fmt.Errorf("list %s: %w", remotePath, err)
	}

	existing, err := w.existingFilenames(ctx)
	if err != nil {
		return fmt.Errorf("load existing jobs: %w", err)
	}

	for _, entry := range entries {
		select {
		case <-w.done:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}
		if entry.Type != ftp.EntryTypeFile {
			continue
		}
		w.considerEntry(ctx, conn, remotePath, entry, existing)
	}
	return nil
}

func (w *Watcher) existingFilenames(ctx context.Context) (map[string]bool, error) {
	jobs, err := w.store.ListJobsForSource(ctx, w.source.ID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		if !j.Status.IsTerminal() {
			set[j.InputFilename] = true
		}
	}
	return set, nil
}

func (w *Watcher) considerEntry(ctx context.Context, conn *ftp.ServerConn, remotePath string, entry *ftp.Entry, existing map[string]bool) {
	ext := strings.ToLower(filepath.Ext(entry.Name))
	if !model.AllowedExtensions[ext] {
		return
	}
	if w.knownFiles[entry.Name] || existing[entry.Name] {
		w.knownFiles[entry.Name] = true
		return
	}

	size := entry.Size
	if size == 0 {
		w.log.Debug("skipping zero-byte entry", "file", entry.Name)
		return
	}

	time.Sleep(w.cfg.StabilizeWait)
	recheck, err := conn.List(remotePath)
	if err != nil {
		w.log.Warn("restability list failed", "file", entry.Name, "error", err)
		return
	}
	current, found := sizeOf(recheck, entry.Name)
	if !found || current != size {
		w.log.Debug("file still uploading, deferring", "file", entry.Name, "size", size, "current", current)
		return
	}

	w.log.Info("new remote file detected", "file", entry.Name, "size_bytes", size)
	if err := w.downloadAndEnqueue(ctx, conn, entry.Name, size); err != nil {
		w.log.Error("download/enqueue failed", "file", entry.Name, "error", err)
		return
	}
	w.knownFiles[entry.Name] = true
}

func sizeOf(entries []*ftp.Entry, name string) (uint64, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e.Size, true
		}
	}
	return 0, false
}

func (w *Watcher) downloadAndEnqueue(ctx context.Context, conn *ftp.ServerConn, filename string, expectedSize uint64) error {
	staging := w.source.FTPLocalTemp
	if staging == "" {
		staging = filepath.Join(os.TempDir(), "transcoder-ftp-staging")
	}
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	localPath := filepath.Join(staging, filename)

	if info, err := os.Stat(localPath); err == nil {
		stable, err := w.stagingIsStable(localPath, info.Size())
		if err != nil {
			return err
		}
		if !stable {
			return fmt.Errorf("staging file %s mid-download from a previous run, skipping this cycle", localPath)
		}
	} else {
		resp, err := conn.Retr(filename)
		if err != nil {
			return fmt.Errorf("retr: %w", err)
		}
		defer resp.Close()

		out, err := os.Create(localPath)
		if err != nil {
			return fmt.Errorf("create local file: %w", err)
		}
		if _, err := io.Copy(out, resp); err != nil {
			out.Close()
			return fmt.Errorf("copy: %w", err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("close local file: %w", err)
		}
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stat downloaded file: %w", err)
	}
	if info.Size() == 0 {
		os.Remove(localPath)
		return fmt.Errorf("downloaded file %s is empty", filename)
	}

	job, inserted, err := w.factory.CreateCandidate(ctx, w.source, filename, localPath, info.Size())
	if err != nil {
		return fmt.Errorf("create candidate: %w", err)
	}
	if inserted {
		w.log.Info("job created from remote file", "filename", filename, "job_id", job.ID)
	}
	return nil
}

// stagingIsStable re-verifies a staging file left over from a crashed
// previous run is no longer being written before it is adopted.
func (w *Watcher) stagingIsStable(path string, firstSize int64) (bool, error) {
	time.Sleep(w.cfg.StagingStabilizeWait)
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.Size() == firstSize, nil
}

func ftpPort(p int) int {
	if p <= 0 {
		return 21
	}
	return p
}
