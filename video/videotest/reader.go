// Package videotest provides a synthetic video.Reader for tests that
// must not depend on ffmpeg.
package videotest

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/lepinkainen/vidtrain/video"
)

// Reader serves generated frames. Every pixel of frame i of a video is
// Seed(path) + i, so tests can tell which frame came back.
type Reader struct {
	// Default is returned for paths missing from Videos.
	Default video.Info

	mu     sync.Mutex
	videos map[string]video.Info

	probes atomic.Int64
	reads  atomic.Int64
}

// NewReader returns a Reader that reports info for every path.
func NewReader(info video.Info) *Reader {
	return &Reader{Default: info, videos: make(map[string]video.Info)}
}

// Set overrides the info of a single path.
func (r *Reader) Set(path string, info video.Info) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.videos[path] = info
}

func (r *Reader) info(path string) (video.Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.videos[path]; ok {
		return info, nil
	}
	if r.Default.FrameCount == 0 {
		return video.Info{}, fmt.Errorf("failed to probe %s: no such video", path)
	}
	return r.Default, nil
}

// Probe implements video.Reader.
func (r *Reader) Probe(ctx context.Context, path string) (video.Info, error) {
	r.probes.Add(1)
	if err := ctx.Err(); err != nil {
		return video.Info{}, err
	}
	return r.info(path)
}

// ReadFrames implements video.Reader.
func (r *Reader) ReadFrames(ctx context.Context, path string, indices []int) (video.Frames, error) {
	r.reads.Add(1)
	if err := ctx.Err(); err != nil {
		return video.Frames{}, err
	}
	info, err := r.info(path)
	if err != nil {
		return video.Frames{}, err
	}

	seed := Seed(path)
	f := video.Frames{T: len(indices), H: info.Height, W: info.Width}
	n := info.Height * info.Width * video.Channels
	f.Data = make([]uint8, 0, len(indices)*n)
	for _, idx := range indices {
		if idx < 0 || idx >= info.FrameCount {
			return video.Frames{}, fmt.Errorf("%s: frame %d out of %d", path, idx, info.FrameCount)
		}
		v := seed + uint8(idx)
		for range n {
			f.Data = append(f.Data, v)
		}
	}
	return f, nil
}

// Probes returns the number of Probe calls so far.
func (r *Reader) Probes() int {
	return int(r.probes.Load())
}

// Reads returns the number of ReadFrames calls so far.
func (r *Reader) Reads() int {
	return int(r.reads.Load())
}

// Seed is the pixel value of frame 0 of path.
func Seed(path string) uint8 {
	h := fnv.New32a()
	h.Write([]byte(path))
	return uint8(h.Sum32() % 128)
}
