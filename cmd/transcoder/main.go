package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"transcoder/internal/admin"
	"transcoder/internal/config"
	"transcoder/internal/diskspace"
	"transcoder/internal/jobfactory"
	"transcoder/internal/jobrunner"
	"transcoder/internal/localwatcher"
	"transcoder/internal/model"
	"transcoder/internal/remotewatcher"
	"transcoder/internal/store"
	"transcoder/internal/supervisor"
	"transcoder/internal/workerpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown with forced exit on second signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("signal received, shutting down gracefully... (press Ctrl+C again to force exit)", "signal", sig)
		cancel()

		sig = <-sigCh
		log.Error("second signal received, forcing immediate exit", "signal", sig)
		os.Exit(1)
	}()

	if err := diskspace.CheckFree(os.TempDir(), cfg.TempDirMinFreeGB); err != nil {
		log.Warn("insufficient disk space at startup", "error", err)
	}

	st, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		log.Fatal("failed to open store", "error", err)
	}
	defer st.Close()
	log.Info("database opened", "path", cfg.DatabasePath)

	if err := ensureDefaultProfile(ctx, st); err != nil {
		log.Fatal("failed to ensure default profile", "error", err)
	}

	factory := jobfactory.New(st)

	sup := supervisor.New(st, factory, supervisor.Config{
		ReconcileInterval: 5 * time.Second,
		Local: localwatcher.Config{
			StabilizeWait:    cfg.LocalStabilizeWait,
			StabilizeRetries: cfg.LocalStabilizeRetries,
		},
		Remote: remotewatcher.Config{
			PollInterval:         cfg.RemotePollInterval,
			StabilizeWait:        cfg.RemoteStabilizeWait,
			StagingStabilizeWait: cfg.RemoteStagingStabilizeWait,
			ErrorBackoff:         cfg.RemoteErrorBackoff,
		},
	})
	go sup.Run(ctx)

	runner := jobrunner.New(st, cfg)
	pool := workerpool.New(st, runner, cfg.WorkerPollInterval)

	facade := admin.New(st, runner)

	go reconcileWorkers(ctx, st, pool, 5*time.Second)
	go logStatusPeriodically(ctx, facade, 30*time.Second)

	log.Info("transcoder started",
		"ffmpeg", cfg.FFmpegPath,
		"ffprobe", cfg.FFprobePath,
		"worker_poll_interval", cfg.WorkerPollInterval,
		"remote_poll_interval", cfg.RemotePollInterval,
	)

	<-ctx.Done()
	log.Info("shutting down: stopping supervisor and worker pool")
	sup.Stop()
	pool.StopAll()
	log.Info("shutdown complete")
}

func ensureDefaultProfile(ctx context.Context, st *store.Store) error {
	if _, err := st.GetProfileByName(ctx, model.DefaultProfileName); err == nil {
		return nil
	}
	return st.CreateProfile(ctx, &model.Profile{
		Name:            model.DefaultProfileName,
		Description:     "fallback profile used when a Source has no bound Profile",
		VideoCodec:      "libx264",
		VideoBitrate:    "8M",
		AudioCodec:      "aac",
		AudioBitrate:    "192k",
		AudioSampleRate: "48000",
		AudioChannels:   "2",
		Container:       model.DefaultContainer,
	})
}

// reconcileWorkers starts/stops WorkerPool slots to match the Store's
// configured Workers, mirroring SourceSupervisor's reconciliation loop for
// the worker side of the system.
func reconcileWorkers(ctx context.Context, st *store.Store, pool *workerpool.Pool, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	reconcile := func() {
		workers, err := st.ListWorkers(ctx)
		if err != nil {
			log.Error("list workers failed", "error", err)
			return
		}
		for _, w := range workers {
			if w.Active {
				pool.StartWorker(ctx, w)
			} else {
				pool.StopWorker(ctx, w.ID)
			}
		}
	}

	reconcile()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reconcile()
		}
	}
}

func logStatusPeriodically(ctx context.Context, facade *admin.Facade, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := facade.ReadSnapshot(ctx)
			if err != nil {
				log.Warn("snapshot failed", "error", err)
				continue
			}
			log.Info("status snapshot",
				"sources", len(snap.Sources),
				"workers", len(snap.Workers),
				"recent_jobs", len(snap.RecentJobs),
			)
		}
	}
}
