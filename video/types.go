package video

import (
	"context"
	"image"
)

// Channels is the number of color channels in decoded frames (RGB).
const Channels = 3

// Info contains the properties of a video stream needed to index clips
type Info struct {
	Width      int
	Height     int
	FrameCount int
	FPS        float64
}

// Frames holds decoded RGB frames laid out as (T, H, W, 3) bytes
type Frames struct {
	Data []uint8
	T    int
	H    int
	W    int
}

// Frame returns the raw bytes of frame i.
func (f Frames) Frame(i int) []uint8 {
	n := f.H * f.W * Channels
	return f.Data[i*n : (i+1)*n]
}

// Image converts frame i into an image for hashing or previews.
func (f Frames) Image(i int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.W, f.H))
	src := f.Frame(i)
	for p := 0; p < f.H*f.W; p++ {
		img.Pix[p*4+0] = src[p*3+0]
		img.Pix[p*4+1] = src[p*3+1]
		img.Pix[p*4+2] = src[p*3+2]
		img.Pix[p*4+3] = 0xff
	}
	return img
}

// Reader probes and decodes video files. FFmpegReader is the production
// implementation; tests substitute synthetic readers.
type Reader interface {
	Probe(ctx context.Context, path string) (Info, error)
	ReadFrames(ctx context.Context, path string, indices []int) (Frames, error)
}
