package admin

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"transcoder/internal/model"
	"transcoder/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

type fakeCanceller struct {
	mu        sync.Mutex
	cancelled []string
}

func (f *fakeCanceller) Cancel(jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, jobID)
}

func TestReadSnapshot_OnlyIncludesActiveSourcesAndWorkers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := New(st, &fakeCanceller{})

	active := &model.Source{Name: "active", Kind: model.SourceLocal, Active: true, Status: model.SourceMonitoring, CreatedAt: time.Now().UTC()}
	inactive := &model.Source{Name: "inactive", Kind: model.SourceLocal, Active: false, Status: model.SourceIdle, CreatedAt: time.Now().UTC()}
	require.NoError(t, st.CreateSource(ctx, active))
	require.NoError(t, st.CreateSource(ctx, inactive))

	require.NoError(t, st.CreateWorker(ctx, &model.Worker{Name: "w-active", Active: true, Status: model.WorkerIdle}))
	require.NoError(t, st.CreateWorker(ctx, &model.Worker{Name: "w-inactive", Active: false, Status: model.WorkerIdle}))

	snap, err := f.ReadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Sources, 1)
	require.Equal(t, "active", snap.Sources[0].Source.Name)
	require.Len(t, snap.Workers, 1)
	require.Equal(t, "w-active", snap.Workers[0].Name)
}

func TestReadSnapshot_CountsJobsByStatusPerSource(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := New(st, &fakeCanceller{})

	require.NoError(t, st.CreateProfile(ctx, &model.Profile{
		Name: model.DefaultProfileName, VideoCodec: "libx264", VideoBitrate: "8M",
		AudioCodec: "aac", AudioSampleRate: "48000", AudioChannels: "2", Container: model.DefaultContainer,
	}))
	prof, err := st.GetProfileByName(ctx, model.DefaultProfileName)
	require.NoError(t, err)

	src := &model.Source{Name: "s1", Kind: model.SourceLocal, Active: true, Status: model.SourceMonitoring, CreatedAt: time.Now().UTC()}
	require.NoError(t, st.CreateSource(ctx, src))

	_, _, err = st.InsertJobIfAbsent(ctx, src.ID, prof.ID, "a.mov", "/in/a.mov", "/out/a.mxf", 10)
	require.NoError(t, err)
	_, _, err = st.InsertJobIfAbsent(ctx, src.ID, prof.ID, "b.mov", "/in/b.mov", "/out/b.mxf", 10)
	require.NoError(t, err)

	snap, err := f.ReadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Sources, 1)
	require.Equal(t, 2, snap.Sources[0].StatusCounts[model.JobPending])
}

func TestFacade_SourceCRUD(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := New(st, &fakeCanceller{})

	src := &model.Source{Name: "s1", Kind: model.SourceLocal, Active: true, Status: model.SourceIdle, Path: "/tmp/s1"}
	require.NoError(t, f.CreateSource(ctx, src))

	src.Name = "renamed"
	require.NoError(t, f.UpdateSource(ctx, src))

	require.NoError(t, f.SetSourceActive(ctx, src.ID, false))

	sources, err := f.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	require.Equal(t, "renamed", sources[0].Name)
	require.False(t, sources[0].Active)

	require.NoError(t, f.DeleteSource(ctx, src.ID))
	sources, err = f.ListSources(ctx)
	require.NoError(t, err)
	require.Empty(t, sources)
}

func TestFacade_WorkerCRUD(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	f := New(st, &fakeCanceller{})

	w := &model.Worker{Name: "w1", Active: true, Status: model.WorkerIdle}
	require.NoError(t, f.CreateWorker(ctx, w))

	w.Name = "w1-renamed"
	require.NoError(t, f.UpdateWorker(ctx, w))
	require.NoError(t, f.SetWorkerActive(ctx, w.ID, false))

	workers, err := f.ListWorkers(ctx)
	require.NoError(t, err)
	require.Len(t, workers, 1)
	require.Equal(t, "w1-renamed", workers[0].Name)
	require.False(t, workers[0].Active)

	require.NoError(t, f.DeleteWorker(ctx, w.ID))
	workers, err = f.ListWorkers(ctx)
	require.NoError(t, err)
	require.Empty(t, workers)
}

func TestFacade_CancelJob(t *testing.T) {
	st := newTestStore(t)
	fc := &fakeCanceller{}
	f := New(st, fc)

	f.CancelJob("job-123")

	require.Equal(t, []string{"job-123"}, fc.cancelled)
}
