package remotewatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/require"

	"transcoder/internal/jobfactory"
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

func TestFtpPort_DefaultsTo21(t *testing.T) {
	require.Equal(t, 21, ftpPort(0))
	require.Equal(t, 21, ftpPort(-1))
	require.Equal(t, 2121, ftpPort(2121))
}

func TestSizeOf_FindsMatchingEntry(t *testing.T) {
	entries := []*ftp.Entry{
		{Name: "a.mov", Size: 100},
		{Name: "b.mov", Size: 200},
	}
	size, found := sizeOf(entries, "b.mov")
	require.True(t, found)
	require.EqualValues(t, 200, size)

	_, found = sizeOf(entries, "missing.mov")
	require.False(t, found)
}

func TestStagingIsStable_UnchangedSizeIsStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mov")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o644))

	w := &Watcher{cfg: Config{StagingStabilizeWait: 5 * time.Millisecond}}
	stable, err := w.stagingIsStable(path, 64)
	require.NoError(t, err)
	require.True(t, stable)
}

func TestStagingIsStable_ChangedSizeIsUnstable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mov")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o644))

	w := &Watcher{cfg: Config{StagingStabilizeWait: 5 * time.Millisecond}}
	stable, err := w.stagingIsStable(path, 32)
	require.NoError(t, err)
	require.False(t, stable)
}

func TestStart_MissingCredentialsSetsSourceError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	src := &model.Source{Name: "ftp1", Kind: model.SourceRemote, Active: true, Status: model.SourceIdle}
	require.NoError(t, st.CreateSource(ctx, src))

	w := New(src, st, jobfactory.New(st), Config{})
	err := w.Start(ctx)
	require.ErrorIs(t, err, ErrMissingCredentials)

	got, err := st.GetSource(ctx, src.ID)
	require.NoError(t, err)
	require.Equal(t, model.SourceError, got.Status)
}

func TestStop_AfterMissingCredentialsStartDoesNotBlock(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	src := &model.Source{Name: "ftp1", Kind: model.SourceRemote, Active: true, Status: model.SourceIdle}
	require.NoError(t, st.CreateSource(ctx, src))

	w := New(src, st, jobfactory.New(st), Config{})
	require.ErrorIs(t, w.Start(ctx), ErrMissingCredentials)

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked after a missing-credentials Start()")
	}
}

func TestExistingFilenames_OnlyIncludesNonTerminalJobs(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateProfile(ctx, &model.Profile{
		Name: model.DefaultProfileName, VideoCodec: "libx264", VideoBitrate: "8M",
		AudioCodec: "aac", AudioSampleRate: "48000", AudioChannels: "2", Container: model.DefaultContainer,
	}))
	prof, err := st.GetProfileByName(ctx, model.DefaultProfileName)
	require.NoError(t, err)

	src := &model.Source{Name: "ftp1", Kind: model.SourceRemote, Active: true, Status: model.SourceIdle, FTPHost: "h", FTPUsername: "u"}
	require.NoError(t, st.CreateSource(ctx, src))

	job, _, err := st.InsertJobIfAbsent(ctx, src.ID, prof.ID, "pending.mov", "/in/pending.mov", "/out/pending.mxf", 10)
	require.NoError(t, err)
	require.NoError(t, st.CompleteJob(ctx, job.ID, 100, 1))

	_, _, err = st.InsertJobIfAbsent(ctx, src.ID, prof.ID, "still_queued.mov", "/in/still_queued.mov", "/out/still_queued.mxf", 10)
	require.NoError(t, err)

	w := New(src, st, jobfactory.New(st), Config{})
	existing, err := w.existingFilenames(ctx)
	require.NoError(t, err)
	require.False(t, existing["pending.mov"], "a completed job's filename should not block re-ingest")
	require.True(t, existing["still_queued.mov"])
}
