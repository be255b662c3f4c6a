// Package workerpool holds the set of running Worker claim-loops. Workers
// are symmetric and race only at the Store's claim step; a Worker with
// MaxConcurrentJobs > 1 runs that many independent claim-loops, each with
// its own JobRunner invocation.
package workerpool

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"transcoder/internal/model"
	"transcoder/internal/store"
)

// Runner executes one claimed Job to completion. Implemented by
// jobrunner.JobRunner; declared here as an interface to avoid a dependency
// cycle between workerpool and jobrunner.
type Runner interface {
	Run(ctx context.Context, jobID string)
}

type Pool struct {
	store        *store.Store
	runner       Runner
	pollInterval time.Duration
	log          *log.Logger

	mu      sync.Mutex
	workers map[string]*runningWorker
}

type runningWorker struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(s *store.Store, runner Runner, pollInterval time.Duration) *Pool {
	return &Pool{
		store:        s,
		runner:       runner,
		pollInterval: pollInterval,
		log:          log.With("component", "workerpool"),
		workers:      make(map[string]*runningWorker),
	}
}

// StartWorker launches w.MaxConcurrentJobs independent claim-loops for w.
// A no-op if the worker is already running.
func (p *Pool) StartWorker(ctx context.Context, w *model.Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.workers[w.ID]; ok {
		return
	}

	slots := w.MaxConcurrentJobs
	if slots <= 0 {
		slots = 1
	}

	workerCtx, cancel := context.WithCancel(ctx)
	rw := &runningWorker{cancel: cancel}
	p.workers[w.ID] = rw

	for i := 0; i < slots; i++ {
		rw.wg.Add(1)
		go p.claimLoop(workerCtx, &rw.wg, w.ID, i)
	}

	_ = p.store.SetWorkerStatus(ctx, w.ID, model.WorkerRunning, "")
	p.log.Info("worker started", "worker_id", w.ID, "slots", slots)
}

// StopWorker cooperatively requests termination of every claim-loop for
// workerID; currently executing Jobs run to completion before the
// goroutines exit.
func (p *Pool) StopWorker(ctx context.Context, workerID string) {
	p.mu.Lock()
	rw, ok := p.workers[workerID]
	if ok {
		delete(p.workers, workerID)
	}
	p.mu.Unlock()
	if !ok {
		return
	}

	rw.cancel()
	rw.wg.Wait()
	_ = p.store.SetWorkerStatus(ctx, workerID, model.WorkerIdle, "")
	p.log.Info("worker stopped", "worker_id", workerID)
}

func (p *Pool) StopAll() {
	p.mu.Lock()
	ids := make([]string, 0, len(p.workers))
	for id := range p.workers {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	for _, id := range ids {
		p.StopWorker(context.Background(), id)
	}
}

func (p *Pool) claimLoop(ctx context.Context, wg *sync.WaitGroup, workerID string, slot int) {
	defer wg.Done()
	slotLog := p.log.With("worker_id", workerID, "slot", slot)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.store.ClaimNextPendingJob(ctx, workerID)
		if err != nil {
			slotLog.Warn("claim failed", "error", err)
			if !sleepOrDone(ctx, p.pollInterval) {
				return
			}
			continue
		}
		if job == nil {
			if !sleepOrDone(ctx, p.pollInterval) {
				return
			}
			continue
		}

		slotLog.Info("job claimed", "job_id", job.ID, "input", job.InputFilename)
		// A Job runs to completion once claimed even if the worker is
		// stopped mid-run, so this is deliberately detached from ctx
		// rather than inheriting the claim-loop's lifetime.
		p.runner.Run(context.Background(), job.ID)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
