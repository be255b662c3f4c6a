// Package profile turns a Profile record into the argv handed to the
// external media tool — a pure function of (Profile, input path, output
// path, and, for the timecode burn-in compound profile, a probe of the
// source file).
package profile

import (
	"fmt"

	"transcoder/internal/ffmpeg"
	"transcoder/internal/model"
)

// Compile produces the full argv for invoking toolPath on inputPath,
// producing outputPath, according to p — argv[0] is toolPath itself, matching
// the [tool, -i, INPUT, ...] template; callers spawning via ffmpeg.Run pass
// argv[1:] since that helper takes the binary path separately. probe is only
// consulted when p.Name is the H264_LOWRES_TC compound profile and may be
// nil otherwise.
func Compile(toolPath string, p *model.Profile, inputPath, outputPath string, probe *ffmpeg.ProbeResult) ([]string, error) {
	if toolPath == "" {
		toolPath = "ffmpeg"
	}

	argv := []string{toolPath, "-i", inputPath}
	argv = append(argv, "-c:v", p.VideoCodec, "-b:v", p.VideoBitrate)
	argv = append(argv, "-c:a", p.AudioCodec)
	if p.AudioBitrate != "" {
		argv = append(argv, "-b:a", p.AudioBitrate)
	}
	argv = append(argv, "-ar", p.AudioSampleRate, "-ac", p.AudioChannels)

	extra, err := tokenizeExtraArgs(p.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("tokenize extra args for profile %s: %w", p.Name, err)
	}

	if p.Name == model.NameTimecodeBurnIn {
		extra = injectDrawtext(extra, buildTimecodeDrawtext(probe))
	}

	argv = append(argv, extra...)
	argv = append(argv, "-y", outputPath)
	return argv, nil
}
