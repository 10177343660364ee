package video

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// probeArgs asks ffprobe for the first video stream's geometry, average
// frame rate and decoded packet count as key=value lines.
func probeArgs(videoFile string) []string {
	return []string{"-v", "error", "-select_streams", "v:0", "-count_packets",
		"-show_entries", "stream=width,height,avg_frame_rate,nb_read_packets",
		"-of", "default=noprint_wrappers=1", "--", videoFile}
}

// streamArgs is probeArgs without packet counting. It only reads the
// container header, so FrameCount is left at zero.
func streamArgs(videoFile string) []string {
	return []string{"-v", "error", "-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate",
		"-of", "default=noprint_wrappers=1", "--", videoFile}
}

var (
	probeKeys  = []string{"width", "height", "avg_frame_rate", "nb_read_packets"}
	streamKeys = []string{"width", "height", "avg_frame_rate"}
)

// ProbeVideo extracts the stream properties of a video file using ffprobe.
// Counting frames reads the whole file.
func ProbeVideo(ctx context.Context, videoFile string) (Info, error) {
	return runProbe(ctx, videoFile, probeArgs(videoFile), probeKeys)
}

// probeStream reads the frame size and rate from the container header
func probeStream(ctx context.Context, videoFile string) (Info, error) {
	return runProbe(ctx, videoFile, streamArgs(videoFile), streamKeys)
}

func runProbe(ctx context.Context, videoFile string, args, required []string) (Info, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Info{}, fmt.Errorf("failed to probe %s: %w\nffprobe output: %s", videoFile, err, extractFirstLine(string(output)))
	}

	info, err := parseStreamInfo(string(output), required)
	if err != nil {
		return Info{}, fmt.Errorf("failed to probe %s: %w", videoFile, err)
	}
	return info, nil
}

// parseProbeOutput reads the key=value lines produced by probeArgs
func parseProbeOutput(output string) (Info, error) {
	return parseStreamInfo(output, probeKeys)
}

func parseStreamInfo(output string, required []string) (Info, error) {
	var info Info
	seen := map[string]bool{}

	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || seen[key] {
			continue
		}
		seen[key] = true

		var err error
		switch key {
		case "width":
			info.Width, err = strconv.Atoi(value)
		case "height":
			info.Height, err = strconv.Atoi(value)
		case "avg_frame_rate":
			info.FPS, err = ParseFrameRate(value)
		case "nb_read_packets":
			info.FrameCount, err = strconv.Atoi(value)
		}
		if err != nil {
			return Info{}, fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	}

	for _, key := range required {
		if !seen[key] {
			return Info{}, fmt.Errorf("ffprobe output is missing %s", key)
		}
	}
	if info.Width <= 0 || info.Height <= 0 {
		return Info{}, fmt.Errorf("invalid resolution format: %dx%d", info.Width, info.Height)
	}
	return info, nil
}

// ParseFrameRate parses ffprobe rationals such as "30000/1001" or "25".
func ParseFrameRate(s string) (float64, error) {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	if !found {
		return n, nil
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		// ffprobe reports 0/0 for streams without timing information
		return 0, nil
	}
	return n / d, nil
}
