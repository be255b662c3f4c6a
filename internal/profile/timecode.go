package profile

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"transcoder/internal/ffmpeg"
)

// defaultFontFile is tried first; when absent the drawtext filter falls
// back to the generic monospace font family.
const defaultFontFile = "/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf"

// buildTimecodeDrawtext derives the burn-in drawtext filter for the
// H264_LOWRES_TC compound profile from the source file's own probe data:
// embedded timecode (falling back to 00:00:00:00) and frame rate (falling
// back to 25).
func buildTimecodeDrawtext(probe *ffmpeg.ProbeResult) string {
	tc := extractTimecode(probe)
	fps := extractFrameRate(probe)

	var parts []string
	if _, err := os.Stat(defaultFontFile); err == nil {
		parts = append(parts, "fontfile="+defaultFontFile)
	} else {
		parts = append(parts, "font=monospace")
	}
	parts = append(parts,
		fmt.Sprintf("timecode='%s'", escapeTimecode(tc)),
		"r="+formatFPS(fps),
		"fontsize=36",
		"fontcolor=white",
		"box=1",
		"boxcolor=0x00000099",
		"x=40",
		"y=40",
	)
	return "drawtext=" + strings.Join(parts, ":")
}

func extractTimecode(probe *ffmpeg.ProbeResult) string {
	if probe != nil {
		if tc := probe.Format.Tags["timecode"]; tc != "" {
			return normalizeTimecode(tc)
		}
		for _, st := range probe.Streams {
			if tc := st.Tags["timecode"]; tc != "" {
				return normalizeTimecode(tc)
			}
		}
		for _, st := range probe.Streams {
			if st.CodecName == "tmcd" {
				if tc := st.Tags["timecode"]; tc != "" {
					return normalizeTimecode(tc)
				}
			}
		}
	}
	return "00:00:00:00"
}

// normalizeTimecode converts a drop-frame separator (';') to the
// non-drop-frame ':' the drawtext filter expects.
func normalizeTimecode(tc string) string {
	return strings.ReplaceAll(tc, ";", ":")
}

func escapeTimecode(tc string) string {
	return strings.ReplaceAll(tc, ":", `\:`)
}

func extractFrameRate(probe *ffmpeg.ProbeResult) float64 {
	if probe == nil {
		return 0
	}
	for _, st := range probe.Streams {
		if st.CodecType != "video" {
			continue
		}
		for _, rate := range []string{st.AvgFrameRate, st.RFrameRate} {
			if fps := parseFrameRateFraction(rate); fps > 0 {
				return fps
			}
		}
	}
	return 0
}

func parseFrameRateFraction(rate string) float64 {
	if rate == "" || rate == "0/0" {
		return 0
	}
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		f, err := strconv.ParseFloat(rate, 64)
		if err != nil || f <= 0 {
			return 0
		}
		return f
	}
	num, errN := strconv.ParseFloat(parts[0], 64)
	den, errD := strconv.ParseFloat(parts[1], 64)
	if errN != nil || errD != nil || den == 0 {
		return 0
	}
	f := num / den
	if f <= 0 {
		return 0
	}
	return f
}

func formatFPS(fps float64) string {
	if fps <= 0 {
		return "25"
	}
	if math.Abs(fps-math.Round(fps)) < 1e-6 {
		return strconv.Itoa(int(math.Round(fps)))
	}
	s := strconv.FormatFloat(fps, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

// injectDrawtext appends the drawtext filter to an existing -vf/-filter:v/
// -filter_complex argument if one is present, or appends a new -vf option
// otherwise. A filterchain that already contains drawtext= is left
// untouched to avoid double injection.
func injectDrawtext(argv []string, filter string) []string {
	for _, key := range []string{"-vf", "-filter:v", "-filter_complex"} {
		idx := indexOf(argv, key)
		if idx < 0 {
			continue
		}
		if idx+1 >= len(argv) {
			return append(argv, filter)
		}
		if strings.Contains(argv[idx+1], "drawtext=") {
			return argv
		}
		argv[idx+1] = argv[idx+1] + "," + filter
		return argv
	}
	return append(argv, "-vf", filter)
}

func indexOf(argv []string, key string) int {
	for i, a := range argv {
		if a == key {
			return i
		}
	}
	return -1
}
