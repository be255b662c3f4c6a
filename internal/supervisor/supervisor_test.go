package supervisor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"transcoder/internal/jobfactory"
	"transcoder/internal/localwatcher"
	"transcoder/internal/model"
	"transcoder/internal/remotewatcher"
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

func testConfig() Config {
	return Config{
		ReconcileInterval: time.Hour,
		Local:             localwatcher.Config{StabilizeWait: 5 * time.Millisecond, StabilizeRetries: 2},
		Remote:            remotewatcher.Config{PollInterval: time.Hour, StabilizeWait: time.Millisecond, StagingStabilizeWait: time.Millisecond, ErrorBackoff: time.Hour},
	}
}

func TestReconcile_StartsWatcherForNewActiveSource(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sup := New(st, jobfactory.New(st), testConfig())
	t.Cleanup(sup.stopAll)

	src := &model.Source{Name: "s1", Kind: model.SourceLocal, Active: true, Status: model.SourceIdle, Path: t.TempDir()}
	require.NoError(t, st.CreateSource(ctx, src))

	sup.reconcile(ctx)

	sup.mu.Lock()
	_, ok := sup.running[src.ID]
	sup.mu.Unlock()
	require.True(t, ok)

	reloaded, err := st.GetSource(ctx, src.ID)
	require.NoError(t, err)
	require.Equal(t, model.SourceMonitoring, reloaded.Status)
}

func TestReconcile_StopsWatcherWhenDeactivated(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sup := New(st, jobfactory.New(st), testConfig())
	t.Cleanup(sup.stopAll)

	src := &model.Source{Name: "s1", Kind: model.SourceLocal, Active: true, Status: model.SourceIdle, Path: t.TempDir()}
	require.NoError(t, st.CreateSource(ctx, src))
	sup.reconcile(ctx)

	require.NoError(t, st.SetSourceActive(ctx, src.ID, false))
	sup.reconcile(ctx)

	sup.mu.Lock()
	_, ok := sup.running[src.ID]
	sup.mu.Unlock()
	require.False(t, ok)
}

func TestReconcile_UnknownKindLogsAndContinues(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sup := New(st, jobfactory.New(st), testConfig())
	t.Cleanup(sup.stopAll)

	src := &model.Source{Name: "s1", Kind: model.SourceKind("WEIRD"), Active: true, Status: model.SourceIdle}
	require.NoError(t, st.CreateSource(ctx, src))

	require.NotPanics(t, func() { sup.reconcile(ctx) })

	sup.mu.Lock()
	_, ok := sup.running[src.ID]
	sup.mu.Unlock()
	require.False(t, ok)
}

func TestReconcile_RemoteMissingCredentialsThenFixedDoesNotHang(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	sup := New(st, jobfactory.New(st), testConfig())
	t.Cleanup(sup.stopAll)

	src := &model.Source{Name: "ftp1", Kind: model.SourceRemote, Active: true, Status: model.SourceIdle}
	require.NoError(t, st.CreateSource(ctx, src))

	reconcileReturned := make(chan struct{})
	go func() {
		sup.reconcile(ctx)
		close(reconcileReturned)
	}()
	select {
	case <-reconcileReturned:
	case <-time.After(2 * time.Second):
		t.Fatal("reconcile did not return for a REMOTE source with missing credentials")
	}

	sup.mu.Lock()
	_, tracked := sup.running[src.ID]
	sup.mu.Unlock()
	require.False(t, tracked, "a watcher that never started should not be tracked as running")

	reloaded, err := st.GetSource(ctx, src.ID)
	require.NoError(t, err)
	require.Equal(t, model.SourceError, reloaded.Status)

	// Deactivating an already-broken source must not deadlock trying to
	// stop a watcher that was never tracked in the first place.
	require.NoError(t, st.SetSourceActive(ctx, src.ID, false))

	reconcileReturned = make(chan struct{})
	go func() {
		sup.reconcile(ctx)
		close(reconcileReturned)
	}()
	select {
	case <-reconcileReturned:
	case <-time.After(2 * time.Second):
		t.Fatal("reconcile did not return after deactivating a previously-broken REMOTE source")
	}
}

func TestFingerprint_ChangesWithPath(t *testing.T) {
	a := &model.Source{Kind: model.SourceLocal, Path: "/a"}
	b := &model.Source{Kind: model.SourceLocal, Path: "/b"}
	require.NotEqual(t, fingerprint(a), fingerprint(b))
}
