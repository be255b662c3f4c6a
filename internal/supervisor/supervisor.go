// Package supervisor reconciles the set of running source watchers against
// the Store's configured Sources: starting watchers for new or reactivated
// Sources, stopping watchers for removed or deactivated ones, and
// restarting a watcher when a kind-defining attribute changes underneath it.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"transcoder/internal/jobfactory"
	"transcoder/internal/localwatcher"
	"transcoder/internal/model"
	"transcoder/internal/remotewatcher"
	"transcoder/internal/store"
)

type stoppable interface {
	Stop()
}

// Config carries the watcher-tuning knobs sourced from the process
// configuration.
type Config struct {
	ReconcileInterval time.Duration
	Local             localwatcher.Config
	Remote            remotewatcher.Config
}

type Supervisor struct {
	store   *store.Store
	factory *jobfactory.Factory
	cfg     Config
	log     *log.Logger

	mu       sync.Mutex
	running  map[string]stoppable
	fingerpr map[string]string

	done chan struct{}
	wg   sync.WaitGroup
}

func New(s *store.Store, f *jobfactory.Factory, cfg Config) *Supervisor {
	return &Supervisor{
		store:    s,
		factory:  f,
		cfg:      cfg,
		log:      log.With("component", "supervisor"),
		running:  make(map[string]stoppable),
		fingerpr: make(map[string]string),
		done:     make(chan struct{}),
	}
}

// Run reconciles immediately, then on every ReconcileInterval, until ctx is
// cancelled or Stop is called.
func (s *Supervisor) Run(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	s.reconcile(ctx)
	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			return
		case <-s.done:
			s.stopAll()
			return
		case <-ticker.C:
			s.reconcile(ctx)
		}
	}
}

func (s *Supervisor) Stop() {
	close(s.done)
	s.wg.Wait()
}

func (s *Supervisor) reconcile(ctx context.Context) {
	sources, err := s.store.ListSources(ctx)
	if err != nil {
		s.log.Error("list sources failed", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		seen[src.ID] = true

		if !src.Active {
			s.stopLocked(src.ID)
			continue
		}

		fp := fingerprint(src)
		if existing, ok := s.fingerpr[src.ID]; ok && existing != fp {
			s.log.Info("source attributes changed, restarting watcher", "source_id", src.ID)
			s.stopLocked(src.ID)
		}

		if _, ok := s.running[src.ID]; ok {
			continue
		}

		w, err := s.startWatcher(ctx, src)
		if err != nil {
			s.log.Error("start watcher failed", "source_id", src.ID, "error", err)
			continue
		}
		if w != nil {
			s.running[src.ID] = w
			s.fingerpr[src.ID] = fp
		}
	}

	for id := range s.running {
		if !seen[id] {
			s.stopLocked(id)
			delete(s.fingerpr, id)
		}
	}
}

func (s *Supervisor) startWatcher(ctx context.Context, src *model.Source) (stoppable, error) {
	switch src.Kind {
	case model.SourceLocal:
		w := localwatcher.New(src, s.store, s.factory, s.cfg.Local)
		if err := w.Start(ctx); err != nil {
			return nil, err
		}
		return w, nil
	case model.SourceRemote:
		w := remotewatcher.New(src, s.store, s.factory, s.cfg.Remote)
		if err := w.Start(ctx); err != nil {
			if errors.Is(err, remotewatcher.ErrMissingCredentials) {
				// Already marked ERROR and torn down by Start; nothing to
				// track, so the next reconcile just retries.
				return nil, nil
			}
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

func (s *Supervisor) stopLocked(id string) {
	if w, ok := s.running[id]; ok {
		w.Stop()
		delete(s.running, id)
	}
}

func (s *Supervisor) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.running {
		s.stopLocked(id)
	}
}

// fingerprint captures the attributes that define what a watcher is
// actually watching; a change means the running watcher must be torn down
// and rebuilt rather than left pointed at stale configuration.
func fingerprint(src *model.Source) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s|%s", src.Kind, src.Path, src.FTPHost, src.FTPPort, src.FTPUsername, src.FTPRemotePath)
}
