// Package config loads process configuration from the environment using
// envconfig into a single Config struct.
package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	DatabasePath string `env:"DATABASE_PATH,default=transcoder.db"`

	FFmpegPath  string `env:"FFMPEG_PATH,default=ffmpeg"`
	FFprobePath string `env:"FFPROBE_PATH,default=ffprobe"`

	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL,default=2s"`
	RemotePollInterval time.Duration `env:"REMOTE_POLL_INTERVAL,default=10s"`

	// RemoteStabilizeWait is the pause between the first and second size
	// probe when deciding a remote file is done uploading.
	RemoteStabilizeWait time.Duration `env:"REMOTE_STABILIZE_WAIT,default=3s"`
	// RemoteStagingStabilizeWait covers the crash-mid-download case: a
	// staging file that already exists is re-verified stable across this
	// window before being adopted.
	RemoteStagingStabilizeWait time.Duration `env:"REMOTE_STAGING_STABILIZE_WAIT,default=7s"`
	RemoteErrorBackoff         time.Duration `env:"REMOTE_ERROR_BACKOFF,default=30s"`

	// LocalStabilizeWait is the base stability-poll interval for LOCAL
	// sources: a size is sampled twice, StabilizeWait apart, and only
	// adopted once both reads agree.
	LocalStabilizeWait    time.Duration `env:"LOCAL_STABILIZE_WAIT,default=2s"`
	LocalStabilizeRetries int           `env:"LOCAL_STABILIZE_RETRIES,default=5"`

	DurationProbeTimeout time.Duration `env:"DURATION_PROBE_TIMEOUT,default=10s"`
	TimecodeProbeTimeout time.Duration `env:"TIMECODE_PROBE_TIMEOUT,default=15s"`

	ProgressMinInterval time.Duration `env:"PROGRESS_MIN_INTERVAL,default=100ms"`

	CancelGracePeriod time.Duration `env:"CANCEL_GRACE_PERIOD,default=5s"`

	TempDirMinFreeGB int `env:"TEMP_DIR_MIN_FREE_GB,default=1"`
}

func Load() (*Config, error) {
	ctx := context.Background()
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
