// Package transforms holds the clip transforms applied between decoding and batching.
package transforms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lepinkainen/vidtrain/tensor"
	"github.com/lepinkainen/vidtrain/video"
)

var (
	// ErrInvalidSize is returned for a resize target that is not (s) or (h, w)
	ErrInvalidSize = errors.New("size should be (size) or (height, width)")
	// ErrUnknownInterpolation is returned for an interpolation mode that is not supported
	ErrUnknownInterpolation = errors.New("unknown interpolation mode")
)

// Transform maps a clip tensor to a new clip tensor
type Transform interface {
	Apply(clip tensor.Tensor) (tensor.Tensor, error)
}

// Compose runs transforms in order
type Compose []Transform

// Apply implements Transform.
func (c Compose) Apply(clip tensor.Tensor) (tensor.Tensor, error) {
	var err error
	for _, t := range c {
		clip, err = t.Apply(clip)
		if err != nil {
			return tensor.Tensor{}, fmt.Errorf("%v: %w", t, err)
		}
	}
	return clip, nil
}

func (c Compose) String() string {
	var b strings.Builder
	b.WriteString("Compose(\n")
	for _, t := range c {
		fmt.Fprintf(&b, "    %v\n", t)
	}
	b.WriteString(")")
	return b.String()
}

// FromFrames converts decoded frames into a (T, H, W, C) tensor with
// values in [0, 255].
func FromFrames(f video.Frames) tensor.Tensor {
	out := tensor.New(f.T, f.H, f.W, video.Channels)
	for i, v := range f.Data {
		out.Data[i] = float32(v)
	}
	return out
}

// ToTensorVideo permutes a (T, H, W, C) clip to (C, T, H, W) and scales it to [0, 1]
type ToTensorVideo struct{}

// Apply implements Transform.
func (ToTensorVideo) Apply(clip tensor.Tensor) (tensor.Tensor, error) {
	if clip.Rank() != 4 {
		return tensor.Tensor{}, fmt.Errorf("clip should be a 4D (T, H, W, C) tensor, got %v", clip.Dims)
	}
	t, h, w, c := clip.Dims[0], clip.Dims[1], clip.Dims[2], clip.Dims[3]
	out := tensor.New(c, t, h, w)
	plane := h * w
	for ti := 0; ti < t; ti++ {
		for p := 0; p < plane; p++ {
			src := (ti*plane + p) * c
			for ci := 0; ci < c; ci++ {
				out.Data[(ci*t+ti)*plane+p] = clip.Data[src+ci] / 255
			}
		}
	}
	return out, nil
}

func (ToTensorVideo) String() string {
	return "ToTensorVideo()"
}

// checkClip validates a (C, T, H, W) clip
func checkClip(clip tensor.Tensor) error {
	if clip.Rank() != 4 {
		return fmt.Errorf("clip should be a 4D (C, T, H, W) tensor, got %v", clip.Dims)
	}
	for _, d := range clip.Dims {
		if d <= 0 {
			return fmt.Errorf("clip dims must be positive, got %v", clip.Dims)
		}
	}
	return nil
}
