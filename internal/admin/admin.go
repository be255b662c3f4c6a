// Package admin is the programmatic façade for Sources, Profiles, Workers
// and Jobs: list/create/update/delete entities, detail fetches and a status
// snapshot. It is deliberately not wired to any transport — downstream HTTP
// surfacing is outside this service's scope.
package admin

import (
	"context"
	"fmt"

	"transcoder/internal/model"
	"transcoder/internal/store"
)

// canceller is satisfied by jobrunner.JobRunner; declared here to avoid a
// dependency cycle between admin and jobrunner.
type canceller interface {
	Cancel(jobID string)
}

type Facade struct {
	store  *store.Store
	runner canceller
}

func New(s *store.Store, runner canceller) *Facade {
	return &Facade{store: s, runner: runner}
}

// CancelJob requests cooperative termination of a running Job's subprocess.
// A no-op if the Job is not currently in flight on this process.
func (f *Facade) CancelJob(jobID string) {
	f.runner.Cancel(jobID)
}

// SourceSummary is one row of the status snapshot: a Source plus its Job
// counts by status.
type SourceSummary struct {
	Source       *model.Source
	StatusCounts store.StatusCounts
}

// Snapshot is the at-a-glance admin read-model: active Sources with
// per-Source Job counts, recent Jobs, and active Workers.
type Snapshot struct {
	Sources    []SourceSummary
	RecentJobs []*model.Job
	Workers    []*model.Worker
}

const recentJobsLimit = 50

// ReadSnapshot assembles the status snapshot described in the external
// interfaces contract.
func (f *Facade) ReadSnapshot(ctx context.Context) (*Snapshot, error) {
	sources, err := f.store.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	var summaries []SourceSummary
	for _, src := range sources {
		if !src.Active {
			continue
		}
		jobs, err := f.store.ListJobsForSource(ctx, src.ID)
		if err != nil {
			return nil, fmt.Errorf("list jobs for source %s: %w", src.ID, err)
		}
		counts := make(store.StatusCounts)
		for _, j := range jobs {
			counts[j.Status]++
		}
		summaries = append(summaries, SourceSummary{Source: src, StatusCounts: counts})
	}

	workers, err := f.store.ListWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	var activeWorkers []*model.Worker
	for _, w := range workers {
		if w.Active {
			activeWorkers = append(activeWorkers, w)
		}
	}

	recent, err := f.recentJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("recent jobs: %w", err)
	}

	return &Snapshot{Sources: summaries, RecentJobs: recent, Workers: activeWorkers}, nil
}

func (f *Facade) recentJobs(ctx context.Context) ([]*model.Job, error) {
	var all []*model.Job
	for _, status := range []model.JobStatus{
		model.JobPending, model.JobProcessing, model.JobCompleted, model.JobFailed, model.JobCancelled,
	} {
		jobs, err := f.store.ListJobsByStatus(ctx, status, recentJobsLimit)
		if err != nil {
			return nil, err
		}
		all = append(all, jobs...)
	}
	return all, nil
}

// ListSources, ListProfiles, ListWorkers and JobDetail expose the plain CRUD
// surface; creation and mutation of Sources/Profiles/Workers go straight
// through the Store, which already owns validation of its own invariants.

func (f *Facade) ListSources(ctx context.Context) ([]*model.Source, error) {
	return f.store.ListSources(ctx)
}

func (f *Facade) CreateSource(ctx context.Context, src *model.Source) error {
	return f.store.CreateSource(ctx, src)
}

func (f *Facade) UpdateSource(ctx context.Context, src *model.Source) error {
	return f.store.UpdateSource(ctx, src)
}

func (f *Facade) SetSourceActive(ctx context.Context, id string, active bool) error {
	return f.store.SetSourceActive(ctx, id, active)
}

func (f *Facade) DeleteSource(ctx context.Context, id string) error {
	return f.store.DeleteSource(ctx, id)
}

func (f *Facade) ListProfiles(ctx context.Context) ([]*model.Profile, error) {
	return f.store.ListProfiles(ctx)
}

func (f *Facade) CreateProfile(ctx context.Context, p *model.Profile) error {
	return f.store.CreateProfile(ctx, p)
}

func (f *Facade) UpdateProfile(ctx context.Context, p *model.Profile) error {
	return f.store.UpdateProfile(ctx, p)
}

func (f *Facade) DeleteProfile(ctx context.Context, id string) error {
	return f.store.DeleteProfile(ctx, id)
}

func (f *Facade) ListWorkers(ctx context.Context) ([]*model.Worker, error) {
	return f.store.ListWorkers(ctx)
}

func (f *Facade) CreateWorker(ctx context.Context, w *model.Worker) error {
	return f.store.CreateWorker(ctx, w)
}

func (f *Facade) UpdateWorker(ctx context.Context, w *model.Worker) error {
	return f.store.UpdateWorker(ctx, w)
}

func (f *Facade) SetWorkerActive(ctx context.Context, id string, active bool) error {
	return f.store.SetWorkerActive(ctx, id, active)
}

func (f *Facade) DeleteWorker(ctx context.Context, id string) error {
	return f.store.DeleteWorker(ctx, id)
}

func (f *Facade) JobDetail(ctx context.Context, jobID string) (*model.Job, error) {
	return f.store.GetJob(ctx, jobID)
}
