package ucf101

import (
	"context"

	"github.com/lepinkainen/vidtrain/tensor"
	"github.com/lepinkainen/vidtrain/transforms"
	"github.com/lepinkainen/vidtrain/video"
)

// ClipSource is the part of a clip dataset LabeledClips needs
type ClipSource interface {
	Len() int
	GetClip(ctx context.Context, idx int) (video.Frames, int, error)
	Label(videoIdx int) int
}

// LabeledClips serves (clip, label) pairs. Clips come out of the source
// as (T, H, W, C) tensors in [0, 255] and go through Transform if set.
type LabeledClips struct {
	Source    ClipSource
	Transform transforms.Transform
}

// Len returns the number of clips.
func (l *LabeledClips) Len() int {
	return l.Source.Len()
}

// Get returns clip idx and the label of the video it was cut from.
func (l *LabeledClips) Get(ctx context.Context, idx int) (tensor.Tensor, int, error) {
	frames, videoIdx, err := l.Source.GetClip(ctx, idx)
	if err != nil {
		return tensor.Tensor{}, 0, err
	}
	label := l.Source.Label(videoIdx)

	clip := transforms.FromFrames(frames)
	if l.Transform != nil {
		clip, err = l.Transform.Apply(clip)
		if err != nil {
			return tensor.Tensor{}, 0, err
		}
	}
	return clip, label, nil
}
