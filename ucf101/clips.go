package ucf101

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/lepinkainen/vidtrain/video"
	"golang.org/x/sync/errgroup"
)

// ErrIndexOutOfRange is returned for a clip index past the end of the index
var ErrIndexOutOfRange = errors.New("index out of range")

// Metadata is the per-video information clip boundaries are derived from.
// It is what the cache stores.
type Metadata struct {
	VideoPaths       []string
	VideoFrameCounts []int
	VideoFPS         []float64
}

// Len returns the number of videos.
func (m Metadata) Len() int {
	return len(m.VideoPaths)
}

// Subset selects videos by index, in the given order.
func (m Metadata) Subset(indices []int) (Metadata, error) {
	out := Metadata{
		VideoPaths:       make([]string, 0, len(indices)),
		VideoFrameCounts: make([]int, 0, len(indices)),
		VideoFPS:         make([]float64, 0, len(indices)),
	}
	for _, i := range indices {
		if i < 0 || i >= m.Len() {
			return Metadata{}, fmt.Errorf("video index %d out of range for metadata with %d videos", i, m.Len())
		}
		out.VideoPaths = append(out.VideoPaths, m.VideoPaths[i])
		out.VideoFrameCounts = append(out.VideoFrameCounts, m.VideoFrameCounts[i])
		out.VideoFPS = append(out.VideoFPS, m.VideoFPS[i])
	}
	return out, nil
}

func (m Metadata) validate() error {
	if len(m.VideoFrameCounts) != m.Len() || len(m.VideoFPS) != m.Len() {
		return fmt.Errorf("metadata lists disagree: %d paths, %d frame counts, %d frame rates",
			m.Len(), len(m.VideoFrameCounts), len(m.VideoFPS))
	}
	return nil
}

// BuildMetadata probes every video with up to workers concurrent probes.
// onProbe, if set, is called after each probe with the number done so far.
func BuildMetadata(ctx context.Context, r video.Reader, paths []string, workers int, onProbe func(done, total int)) (Metadata, error) {
	m := Metadata{
		VideoPaths:       append([]string(nil), paths...),
		VideoFrameCounts: make([]int, len(paths)),
		VideoFPS:         make([]float64, len(paths)),
	}

	progress := make(chan struct{}, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, path := range paths {
		g.Go(func() error {
			info, err := r.Probe(ctx, path)
			if err != nil {
				return fmt.Errorf("indexing %s: %w", path, err)
			}
			m.VideoFrameCounts[i] = info.FrameCount
			m.VideoFPS[i] = info.FPS
			progress <- struct{}{}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(progress)
	}()

	count := 0
	for range progress {
		count++
		if onProbe != nil {
			onProbe(count, len(paths))
		}
	}
	if err := <-done; err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// ClipOptions controls how videos are cut into clips
type ClipOptions struct {
	FramesPerClip    int
	StepBetweenClips int
	// FrameRate resamples every video to this rate before cutting. Zero keeps
	// the native rate.
	FrameRate float64
}

func (o ClipOptions) validate() error {
	if o.FramesPerClip <= 0 {
		return fmt.Errorf("frames per clip must be positive, got %d", o.FramesPerClip)
	}
	if o.StepBetweenClips <= 0 {
		return fmt.Errorf("step between clips must be positive, got %d", o.StepBetweenClips)
	}
	if o.FrameRate < 0 {
		return fmt.Errorf("frame rate must not be negative, got %v", o.FrameRate)
	}
	return nil
}

// VideoClips indexes every clip of a list of videos. Clip i maps to a
// video and a window of frame indices within it.
type VideoClips struct {
	reader   video.Reader
	meta     Metadata
	opts     ClipOptions
	frames   [][]int // resampled frame indices per video
	cumSizes []int   // cumulative clip counts
}

// NewVideoClips indexes clips from already computed metadata.
func NewVideoClips(r video.Reader, meta Metadata, opts ClipOptions) (*VideoClips, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := meta.validate(); err != nil {
		return nil, err
	}

	vc := &VideoClips{
		reader:   r,
		meta:     meta,
		opts:     opts,
		frames:   make([][]int, meta.Len()),
		cumSizes: make([]int, meta.Len()),
	}
	total := 0
	for i := range meta.VideoPaths {
		vc.frames[i] = resampleIndices(meta.VideoFrameCounts[i], meta.VideoFPS[i], opts.FrameRate)
		total += numClips(len(vc.frames[i]), opts.FramesPerClip, opts.StepBetweenClips)
		vc.cumSizes[i] = total
	}
	return vc, nil
}

// resampleIndices lists the source frame for every frame at the new rate
func resampleIndices(frameCount int, fps, frameRate float64) []int {
	if frameRate <= 0 || fps <= 0 || frameRate == fps {
		idx := make([]int, frameCount)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}

	step := fps / frameRate
	if step == math.Trunc(step) {
		s := int(step)
		idx := make([]int, 0, (frameCount+s-1)/s)
		for i := 0; i < frameCount; i += s {
			idx = append(idx, i)
		}
		return idx
	}

	n := int(math.Floor(float64(frameCount) * frameRate / fps))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = int(math.Floor(float64(i) * step))
	}
	return idx
}

func numClips(length, size, step int) int {
	if length < size {
		return 0
	}
	return (length-size)/step + 1
}

// Metadata returns the metadata the clips were indexed from.
func (vc *VideoClips) Metadata() Metadata {
	return vc.meta
}

// NumVideos returns the number of indexed videos.
func (vc *VideoClips) NumVideos() int {
	return vc.meta.Len()
}

// NumClips returns the total number of clips over all videos.
func (vc *VideoClips) NumClips() int {
	if len(vc.cumSizes) == 0 {
		return 0
	}
	return vc.cumSizes[len(vc.cumSizes)-1]
}

// Subset returns the clips of the selected videos only.
func (vc *VideoClips) Subset(indices []int) (*VideoClips, error) {
	meta, err := vc.meta.Subset(indices)
	if err != nil {
		return nil, err
	}
	return NewVideoClips(vc.reader, meta, vc.opts)
}

// ClipLocation maps a global clip index to its video and the clip index within that video.
func (vc *VideoClips) ClipLocation(idx int) (videoIdx, clipIdx int, err error) {
	if idx < 0 || idx >= vc.NumClips() {
		return 0, 0, fmt.Errorf("clip %d: %w (%d number of clips)", idx, ErrIndexOutOfRange, vc.NumClips())
	}
	videoIdx = sort.SearchInts(vc.cumSizes, idx+1)
	if videoIdx == 0 {
		return 0, idx, nil
	}
	return videoIdx, idx - vc.cumSizes[videoIdx-1], nil
}

// FrameIndices returns the source frame numbers of clip idx.
func (vc *VideoClips) FrameIndices(idx int) (videoIdx int, frames []int, err error) {
	videoIdx, clipIdx, err := vc.ClipLocation(idx)
	if err != nil {
		return 0, nil, err
	}
	start := clipIdx * vc.opts.StepBetweenClips
	return videoIdx, vc.frames[videoIdx][start : start+vc.opts.FramesPerClip], nil
}

// GetClip decodes clip idx and reports which video it came from.
func (vc *VideoClips) GetClip(ctx context.Context, idx int) (video.Frames, int, error) {
	videoIdx, frames, err := vc.FrameIndices(idx)
	if err != nil {
		return video.Frames{}, 0, err
	}
	clip, err := vc.reader.ReadFrames(ctx, vc.meta.VideoPaths[videoIdx], frames)
	if err != nil {
		return video.Frames{}, 0, err
	}
	if clip.T != vc.opts.FramesPerClip {
		return video.Frames{}, 0, fmt.Errorf("%s: got %d frames, expected %d", vc.meta.VideoPaths[videoIdx], clip.T, vc.opts.FramesPerClip)
	}
	return clip, videoIdx, nil
}
