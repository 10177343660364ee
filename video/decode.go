package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strconv"
)

// FFmpegReader decodes videos by piping raw RGB frames out of ffmpeg
type FFmpegReader struct{}

// Probe implements Reader.
func (FFmpegReader) Probe(ctx context.Context, path string) (Info, error) {
	return ProbeVideo(ctx, path)
}

// decodeArgs writes the frame range [first, last] as rgb24 to stdout. With
// a known frame rate ffmpeg seeks to the range instead of decoding from
// the start; the seek point sits half a frame early so rounding cannot
// skip frame first.
func decodeArgs(videoFile string, first, last int, fps float64) []string {
	count := strconv.Itoa(last - first + 1)
	if fps > 0 && first > 0 {
		ss := strconv.FormatFloat((float64(first)-0.5)/fps, 'f', 6, 64)
		return []string{"-v", "error", "-ss", ss, "-i", videoFile,
			"-frames:v", count,
			"-fps_mode", "passthrough",
			"-f", "rawvideo", "-pix_fmt", "rgb24", "pipe:1"}
	}
	return []string{"-v", "error", "-i", videoFile,
		"-vf", fmt.Sprintf("select=between(n\\,%d\\,%d)", first, last),
		"-frames:v", count,
		"-fps_mode", "passthrough",
		"-f", "rawvideo", "-pix_fmt", "rgb24", "pipe:1"}
}

// ReadFrames decodes the frames at the given indices. Indices may repeat
// (frame rate upsampling) but must be non-negative.
func (FFmpegReader) ReadFrames(ctx context.Context, path string, indices []int) (Frames, error) {
	if len(indices) == 0 {
		return Frames{}, errors.New("no frames requested")
	}
	first, last := slices.Min(indices), slices.Max(indices)
	if first < 0 {
		return Frames{}, fmt.Errorf("negative frame index %d", first)
	}

	info, err := probeStream(ctx, path)
	if err != nil {
		return Frames{}, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", decodeArgs(path, first, last, info.FPS)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Frames{}, fmt.Errorf("failed to decode %s: %w\nffmpeg output: %s", path, err, extractFirstLine(stderr.String()))
	}

	decoded := Frames{Data: stdout.Bytes(), H: info.Height, W: info.Width}
	frameSize := info.Height * info.Width * Channels
	decoded.T = len(decoded.Data) / frameSize

	return pickFrames(decoded, first, indices)
}

// pickFrames gathers the requested indices out of a decoded range starting at first
func pickFrames(decoded Frames, first int, indices []int) (Frames, error) {
	out := Frames{
		Data: make([]uint8, 0, len(indices)*decoded.H*decoded.W*Channels),
		T:    len(indices),
		H:    decoded.H,
		W:    decoded.W,
	}
	for _, idx := range indices {
		rel := idx - first
		if rel >= decoded.T {
			return Frames{}, fmt.Errorf("decoded %d frames starting at %d, clip needs frame %d", decoded.T, first, idx)
		}
		out.Data = append(out.Data, decoded.Frame(rel)...)
	}
	return out, nil
}
