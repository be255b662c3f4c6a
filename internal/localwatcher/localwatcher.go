// Package localwatcher monitors a LOCAL Source's directory non-recursively
// with fsnotify, waits for newly arrived files to stop growing, and hands
// stable candidates to jobfactory.
package localwatcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"transcoder/internal/jobfactory"
	"transcoder/internal/model"
	"transcoder/internal/store"
)

type Config struct {
	StabilizeWait    time.Duration
	StabilizeRetries int
}

// Watcher watches one LOCAL Source until Stop is called. Stopping is
// cooperative: the watch goroutine notices the closed done channel on its
// next event or tick.
type Watcher struct {
	source  *model.Source
	store   *store.Store
	factory *jobfactory.Factory
	cfg     Config
	log     *log.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

func New(src *model.Source, s *store.Store, f *jobfactory.Factory, cfg Config) *Watcher {
	return &Watcher{
		source:  src,
		store:   s,
		factory: f,
		cfg:     cfg,
		log:     log.With("source", src.Name, "source_id", src.ID, "kind", "LOCAL"),
		done:    make(chan struct{}),
	}
}

// Start begins watching. If the Source's path does not exist, the Source is
// transitioned straight to ERROR and no watcher goroutine is launched.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := os.Stat(w.source.Path); err != nil {
		w.log.Error("path does not exist at startup", "path", w.source.Path, "error", err)
		return w.store.SetSourceStatus(ctx, w.source.ID, model.SourceError)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Error("create fsnotify watcher failed", "error", err)
		return w.store.SetSourceStatus(ctx, w.source.ID, model.SourceError)
	}
	if err := watcher.Add(w.source.Path); err != nil {
		watcher.Close()
		w.log.Error("watch path failed", "path", w.source.Path, "error", err)
		return w.store.SetSourceStatus(ctx, w.source.ID, model.SourceError)
	}

	if err := w.store.SetSourceStatus(ctx, w.source.ID, model.SourceMonitoring); err != nil {
		watcher.Close()
		return err
	}

	w.wg.Add(1)
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) Stop() {
	close(w.done)
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer w.wg.Done()
	defer watcher.Close()

	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				w.handleCreate(ctx, ev.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) handleCreate(ctx context.Context, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if !model.AllowedExtensions[ext] {
		return
	}

	size, ok := w.waitForStability(path)
	if !ok {
		return
	}
	if size == 0 {
		return
	}

	if err := checkReadable(path); err != nil {
		w.log.Warn("candidate not readable, skipping", "path", path, "error", err)
		return
	}

	filename := filepath.Base(path)
	job, inserted, err := w.factory.CreateCandidate(ctx, w.source, filename, path, size)
	if err != nil {
		w.log.Error("create job failed", "path", path, "error", err)
		return
	}
	if inserted {
		w.log.Info("job created", "filename", filename, "job_id", job.ID, "size_bytes", size)
	}
}

// waitForStability polls the file size at the configured interval until two
// consecutive probes report the same size, taking at most StabilizeRetries
// probes. If the retry budget is exhausted the file is treated as still
// writing and skipped — it will be picked up again by a later event or
// never, which matches fsnotify's create-once delivery for a single write.
func (w *Watcher) waitForStability(path string) (int64, bool) {
	var last int64 = -1
	stableCount := 0
	for i := 0; i < w.cfg.StabilizeRetries; i++ {
		info, err := os.Stat(path)
		if err != nil {
			return 0, false
		}
		size := info.Size()
		if size == last {
			stableCount++
			if stableCount >= 1 {
				return size, true
			}
		} else {
			stableCount = 0
		}
		last = size
		time.Sleep(w.cfg.StabilizeWait)
	}
	return last, false
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
