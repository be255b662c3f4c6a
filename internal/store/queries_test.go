package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"transcoder/internal/model"
)

func TestJobStatusCounts(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	src := seedSource(t, st)
	prof := seedProfile(t, st)

	_, _, err := st.InsertJobIfAbsent(ctx, src.ID, prof.ID, "a.mov", "/in/a.mov", "/out/a.mxf", 10)
	require.NoError(t, err)
	_, _, err = st.InsertJobIfAbsent(ctx, src.ID, prof.ID, "b.mov", "/in/b.mov", "/out/b.mxf", 10)
	require.NoError(t, err)

	claimed, err := st.ClaimNextPendingJob(ctx, "worker-1")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	counts, err := st.JobStatusCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, counts[model.JobPending])
	require.Equal(t, 1, counts[model.JobProcessing])
}

func TestListJobsByStatus_RespectsLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	src := seedSource(t, st)
	prof := seedProfile(t, st)

	for _, name := range []string{"a.mov", "b.mov", "c.mov"} {
		_, _, err := st.InsertJobIfAbsent(ctx, src.ID, prof.ID, name, "/in/"+name, "/out/"+name+".mxf", 10)
		require.NoError(t, err)
	}

	all, err := st.ListJobsByStatus(ctx, model.JobPending, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)

	limited, err := st.ListJobsByStatus(ctx, model.JobPending, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestListJobsForSource(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	src := seedSource(t, st)
	other := seedSource(t, st)
	prof := seedProfile(t, st)

	_, _, err := st.InsertJobIfAbsent(ctx, src.ID, prof.ID, "a.mov", "/in/a.mov", "/out/a.mxf", 10)
	require.NoError(t, err)
	_, _, err = st.InsertJobIfAbsent(ctx, other.ID, prof.ID, "b.mov", "/in/b.mov", "/out/b.mxf", 10)
	require.NoError(t, err)

	jobs, err := st.ListJobsForSource(ctx, src.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "a.mov", jobs[0].InputFilename)
}
