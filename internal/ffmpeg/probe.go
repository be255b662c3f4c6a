// Package ffmpeg wraps the external media tool and its companion probing
// tool as argv-exec'd subprocesses, using an exec.CommandContext plus a
// bufio.Scanner over stderr to track the plain-stderr time=HH:MM:SS.sss
// progress protocol, and the ffprobe JSON document this service depends on.
package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// ProbeStream is one entry of ffprobe's streams[] array.
type ProbeStream struct {
	CodecType    string            `json:"codec_type"`
	CodecName    string            `json:"codec_name"`
	Tags         map[string]string `json:"tags"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	RFrameRate   string            `json:"r_frame_rate"`
}

// ProbeResult is the subset of `ffprobe -show_format -show_streams` this
// service reads: container duration for progress accounting, and the
// tags/frame-rate fields the timecode burn-in profile needs.
type ProbeResult struct {
	Format struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

// Probe runs the probing tool against inputPath and parses its JSON output.
func Probe(ctx context.Context, ffprobePath, inputPath string) (*ProbeResult, error) {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", inputPath)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", inputPath, err)
	}

	var result ProbeResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("parse probe output for %s: %w", inputPath, err)
	}
	return &result, nil
}

// DurationSeconds parses the container duration out of a ProbeResult.
// Returns 0 if the field is absent or unparseable.
func (r *ProbeResult) DurationSeconds() float64 {
	if r == nil {
		return 0
	}
	var d float64
	_, err := fmt.Sscanf(r.Format.Duration, "%g", &d)
	if err != nil {
		return 0
	}
	return d
}
