package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"transcoder/internal/model"
)

func TestCreateWorker_DefaultsMaxConcurrentJobs(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	w := &model.Worker{Name: "worker-a", Active: true, Status: model.WorkerIdle}
	require.NoError(t, st.CreateWorker(ctx, w))
	require.Equal(t, 1, w.MaxConcurrentJobs)

	got, err := st.GetWorker(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.MaxConcurrentJobs)
}

func TestSetWorkerStatus(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	w := &model.Worker{Name: "worker-a", Active: true, Status: model.WorkerIdle, MaxConcurrentJobs: 2}
	require.NoError(t, st.CreateWorker(ctx, w))

	require.NoError(t, st.SetWorkerStatus(ctx, w.ID, model.WorkerRunning, "job-123"))

	got, err := st.GetWorker(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, model.WorkerRunning, got.Status)
	require.Equal(t, "job-123", got.CurrentJobID)
}

func TestSetWorkerActive(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	w := &model.Worker{Name: "worker-a", Active: true, Status: model.WorkerIdle, MaxConcurrentJobs: 1}
	require.NoError(t, st.CreateWorker(ctx, w))

	require.NoError(t, st.SetWorkerActive(ctx, w.ID, false))
	got, err := st.GetWorker(ctx, w.ID)
	require.NoError(t, err)
	require.False(t, got.Active)
}

func TestUpdateWorker(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	w := &model.Worker{Name: "worker-a", Active: true, Status: model.WorkerIdle, MaxConcurrentJobs: 1}
	require.NoError(t, st.CreateWorker(ctx, w))

	w.Name = "worker-renamed"
	w.MaxConcurrentJobs = 3
	require.NoError(t, st.UpdateWorker(ctx, w))

	got, err := st.GetWorker(ctx, w.ID)
	require.NoError(t, err)
	require.Equal(t, "worker-renamed", got.Name)
	require.Equal(t, 3, got.MaxConcurrentJobs)
}

func TestDeleteWorker(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	w := &model.Worker{Name: "worker-a", Active: true, Status: model.WorkerIdle, MaxConcurrentJobs: 1}
	require.NoError(t, st.CreateWorker(ctx, w))

	require.NoError(t, st.DeleteWorker(ctx, w.ID))
	_, err := st.GetWorker(ctx, w.ID)
	require.Error(t, err)
}
