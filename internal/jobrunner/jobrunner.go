// Package jobrunner executes one claimed Job end to end: pre-flight
// validation, argv compilation, subprocess supervision with progress
// streaming, exit classification and post-completion archival.
package jobrunner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"transcoder/internal/config"
	"transcoder/internal/ffmpeg"
	"transcoder/internal/model"
	"transcoder/internal/profile"
	"transcoder/internal/store"
)

type JobRunner struct {
	store *store.Store
	cfg   *config.Config
	log   *log.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func New(s *store.Store, cfg *config.Config) *JobRunner {
	return &JobRunner{
		store:   s,
		cfg:     cfg,
		log:     log.With("component", "jobrunner"),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Cancel requests cooperative termination of jobID's subprocess if it is
// currently running. A no-op if the Job is not in flight on this process.
func (r *JobRunner) Cancel(jobID string) {
	r.mu.Lock()
	cancel, ok := r.cancels[jobID]
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// Run executes jobID to a terminal state. It never panics or returns an
// error to the caller: every failure path ends in a log line, and every one
// after the Job has been reloaded also attempts a Store write, matching the
// "never let an exception escape the worker loop" propagation policy. A
// failed reload is only logged.
func (r *JobRunner) Run(ctx context.Context, jobID string) {
	jobLog := r.log.With("job_id", jobID)

	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		jobLog.Error("reload job failed", "error", err)
		return
	}

	src, err := r.store.GetSource(ctx, job.SourceID)
	if err != nil {
		jobLog.Error("load source failed", "error", err)
		_ = r.store.FailJob(ctx, jobID, fmt.Sprintf("sorgente non trovata: %v", err))
		return
	}

	prof, err := r.store.GetProfile(ctx, job.ProfileID)
	if err != nil {
		jobLog.Error("load profile failed", "error", err)
		_ = r.store.FailJob(ctx, jobID, fmt.Sprintf("profilo non trovato: %v", err))
		return
	}

	if msg := r.preflight(job); msg != "" {
		jobLog.Warn("preflight failed", "reason", msg)
		_ = r.store.FailJob(ctx, jobID, msg)
		return
	}

	if job.InputDuration == 0 {
		probeCtx, cancel := context.WithTimeout(ctx, r.cfg.DurationProbeTimeout)
		result, err := ffmpeg.Probe(probeCtx, r.cfg.FFprobePath, job.InputPath)
		cancel()
		if err == nil {
			job.InputDuration = result.DurationSeconds()
			_ = r.store.SetInputDuration(ctx, jobID, job.InputDuration)
		} else {
			jobLog.Warn("duration probe failed", "error", err)
		}
	}

	var tcProbe *ffmpeg.ProbeResult
	if prof.Name == model.NameTimecodeBurnIn {
		probeCtx, cancel := context.WithTimeout(ctx, r.cfg.TimecodeProbeTimeout)
		tcProbe, err = ffmpeg.Probe(probeCtx, r.cfg.FFprobePath, job.InputPath)
		cancel()
		if err != nil {
			jobLog.Warn("timecode probe failed, falling back to defaults", "error", err)
			tcProbe = nil
		}
	}

	argv, err := profile.Compile(r.cfg.FFmpegPath, prof, job.InputPath, job.OutputPath, tcProbe)
	if err != nil {
		jobLog.Error("compile argv failed", "error", err)
		_ = r.store.FailJob(ctx, jobID, fmt.Sprintf("errore preparazione comando: %v", err))
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancels[jobID] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.cancels, jobID)
		r.mu.Unlock()
		cancel()
	}()

	result, runErr := ffmpeg.Run(runCtx, argv[0], argv[1:], job.InputDuration, r.cfg.ProgressMinInterval, r.cfg.CancelGracePeriod,
		func(pct int) { _ = r.store.UpdateProgress(ctx, jobID, pct) })

	if runCtx.Err() != nil {
		jobLog.Info("job cancelled")
		_ = r.store.CancelJob(ctx, jobID)
		return
	}

	if runErr != nil {
		jobLog.Error("spawn failed", "error", runErr)
		_ = r.store.FailJob(ctx, jobID, fmt.Sprintf("Errore avvio FFmpeg: %v", runErr))
		return
	}

	if result.ExitCode == 0 && outputExists(job.OutputPath) {
		info, _ := os.Stat(job.OutputPath)
		var outSize int64
		if info != nil {
			outSize = info.Size()
		}
		if err := r.store.CompleteJob(ctx, jobID, outSize, 0); err != nil {
			jobLog.Error("mark completed failed", "error", err)
			return
		}
		jobLog.Info("job completed", "output_size_bytes", outSize)
		r.archive(jobLog, src, job)
		return
	}

	msg := ffmpeg.ClassifyFailure(result.StderrTail, result.ExitCode)
	jobLog.Warn("job failed", "exit_code", result.ExitCode, "message", msg)
	_ = r.store.FailJob(ctx, jobID, msg)
}

func (r *JobRunner) preflight(job *model.Job) string {
	info, err := os.Stat(job.InputPath)
	if err != nil {
		return fmt.Sprintf("File input non trovato: %s", job.InputPath)
	}
	if info.IsDir() {
		return fmt.Sprintf("Il percorso di input è una directory: %s", job.InputPath)
	}
	if f, err := os.Open(job.InputPath); err != nil {
		return fmt.Sprintf("Permessi insufficienti per leggere il file: %s", job.InputPath)
	} else {
		f.Close()
	}

	outDir := filepath.Dir(job.OutputPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Sprintf("Impossibile creare directory output: %v", err)
	}
	probe := filepath.Join(outDir, ".write_check")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Sprintf("Permessi insufficienti per scrivere nella directory: %s", outDir)
	}
	f.Close()
	os.Remove(probe)

	return ""
}

func outputExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// archive moves the original input into the Source's archive path once the
// Job has reached COMPLETED. Failure here never changes the Job's terminal
// status; it is logged only.
func (r *JobRunner) archive(jobLog *log.Logger, src *model.Source, job *model.Job) {
	if src.ArchivePath == "" {
		return
	}
	if err := os.MkdirAll(src.ArchivePath, 0o755); err != nil {
		jobLog.Warn("archive mkdir failed", "error", err)
		return
	}

	dest := filepath.Join(src.ArchivePath, filepath.Base(job.InputPath))
	if _, err := os.Stat(dest); err == nil {
		dest = collisionSuffixed(dest)
	}

	if err := os.Rename(job.InputPath, dest); err != nil {
		jobLog.Warn("archive move failed", "input", job.InputPath, "dest", dest, "error", err)
		return
	}
	jobLog.Info("input archived", "dest", dest)
}

func collisionSuffixed(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	stamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_%s%s", base, stamp, ext)
}
