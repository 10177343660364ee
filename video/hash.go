package video

import (
	"context"
	"fmt"

	"github.com/corona10/goimagehash"
)

// PerceptualHash decodes the middle frame of a video and calculates its
// perceptual hash. Near-identical footage yields a small Hamming distance.
func PerceptualHash(ctx context.Context, r Reader, videoFile string) (*goimagehash.ImageHash, error) {
	info, err := r.Probe(ctx, videoFile)
	if err != nil {
		return nil, err
	}
	if info.FrameCount <= 0 {
		return nil, fmt.Errorf("%s has no frames", videoFile)
	}

	frames, err := r.ReadFrames(ctx, videoFile, []int{info.FrameCount / 2})
	if err != nil {
		return nil, fmt.Errorf("failed to extract frame: %w", err)
	}

	hash, err := goimagehash.PerceptionHash(frames.Image(0))
	if err != nil {
		return nil, fmt.Errorf("failed to calculate perceptual hash: %w", err)
	}

	return hash, nil
}
