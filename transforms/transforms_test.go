package transforms

import (
	"errors"
	"strings"
	"testing"

	"github.com/lepinkainen/vidtrain/tensor"
	"github.com/lepinkainen/vidtrain/video"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTensorVideo(t *testing.T) {
	frames := video.Frames{T: 1, H: 1, W: 2, Data: []uint8{0, 51, 102, 255, 0, 0}}
	clip := FromFrames(frames)
	require.Equal(t, []int{1, 1, 2, 3}, clip.Dims)

	out, err := ToTensorVideo{}.Apply(clip)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 1, 2}, out.Dims)
	assert.InDeltaSlice(t, []float32{0, 1, 0.2, 0, 0.4, 0}, out.Data, 1e-6)
}

func TestToTensorVideo_BadRank(t *testing.T) {
	_, err := ToTensorVideo{}.Apply(tensor.New(2, 2))
	assert.Error(t, err)
}

type failing struct{}

func (failing) Apply(tensor.Tensor) (tensor.Tensor, error) {
	return tensor.Tensor{}, errors.New("boom")
}

func (failing) String() string { return "Failing()" }

func TestCompose(t *testing.T) {
	resize, err := NewResizedVideo([]int{2}, "")
	require.NoError(t, err)

	pipeline := Compose{ToTensorVideo{}, resize}
	out, err := pipeline.Apply(tensor.New(3, 4, 4, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 2, 2}, out.Dims)

	assert.Equal(t, "Compose(\n    ToTensorVideo()\n    ResizedVideo(size=(2, 2), interpolation_mode=bilinear)\n)", pipeline.String())

	_, err = Compose{ToTensorVideo{}, failing{}}.Apply(tensor.New(1, 1, 1, 3))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Failing(): boom"))
}
