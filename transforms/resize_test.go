package transforms

import (
	"testing"

	"github.com/lepinkainen/vidtrain/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rowClip builds a (1, 1, 1, n) clip holding the given values
func rowClip(t *testing.T, values ...float32) tensor.Tensor {
	t.Helper()
	clip, err := tensor.FromData(values, 1, 1, 1, len(values))
	require.NoError(t, err)
	return clip
}

func TestNewResizedVideo(t *testing.T) {
	tests := []struct {
		name    string
		size    []int
		mode    string
		wantH   int
		wantW   int
		wantErr error
	}{
		{"single value is square", []int{112}, "", 112, 112, nil},
		{"height and width", []int{224, 160}, "nearest", 224, 160, nil},
		{"empty size", nil, "", 0, 0, ErrInvalidSize},
		{"three values", []int{1, 2, 3}, "", 0, 0, ErrInvalidSize},
		{"zero height", []int{0, 5}, "", 0, 0, ErrInvalidSize},
		{"unknown mode", []int{8}, "area", 0, 0, ErrUnknownInterpolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResizedVideo(tt.size, tt.mode)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantH, r.Height)
			assert.Equal(t, tt.wantW, r.Width)
		})
	}
}

func TestResizedVideo_SingleSizeMatchesSquare(t *testing.T) {
	clip := tensor.New(3, 2, 9, 13)
	for i := range clip.Data {
		clip.Data[i] = float32(i%17) / 17
	}
	for _, mode := range []string{"bilinear", "nearest", "bicubic"} {
		t.Run(mode, func(t *testing.T) {
			single, err := NewResizedVideo([]int{6}, mode)
			require.NoError(t, err)
			square, err := NewResizedVideo([]int{6, 6}, mode)
			require.NoError(t, err)

			a, err := single.Apply(clip)
			require.NoError(t, err)
			b, err := square.Apply(clip)
			require.NoError(t, err)
			assert.Equal(t, []int{3, 2, 6, 6}, a.Dims)
			assert.Equal(t, b.Dims, a.Dims)
			assert.Equal(t, b.Data, a.Data)
		})
	}
}

func TestResizedVideoString(t *testing.T) {
	r, err := NewResizedVideo([]int{224, 224}, "")
	require.NoError(t, err)
	assert.Equal(t, "ResizedVideo(size=(224, 224), interpolation_mode=bilinear)", r.String())

	r, err = NewResizedVideo([]int{96}, "bicubic")
	require.NoError(t, err)
	assert.Equal(t, "ResizedVideo(size=(96, 96), interpolation_mode=bicubic)", r.String())
}

func TestResizedVideo_Shape(t *testing.T) {
	clip := tensor.New(3, 5, 48, 64)
	for _, mode := range []string{"bilinear", "nearest", "bicubic", "lanczos3", "mitchell"} {
		t.Run(mode, func(t *testing.T) {
			r, err := NewResizedVideo([]int{20, 30}, mode)
			require.NoError(t, err)
			out, err := r.Apply(clip)
			require.NoError(t, err)
			assert.Equal(t, []int{3, 5, 20, 30}, out.Dims)
		})
	}
}

func TestResizedVideo_RejectsNon4D(t *testing.T) {
	r, err := NewResizedVideo([]int{4}, "")
	require.NoError(t, err)
	_, err = r.Apply(tensor.New(3, 4, 4))
	assert.Error(t, err)
}

func TestTransforms_RejectEmptyClip(t *testing.T) {
	tests := []struct {
		name string
		dims []int
	}{
		{"zero height", []int{3, 2, 0, 4}},
		{"zero width", []int{3, 2, 4, 0}},
		{"zero frames", []int{3, 0, 4, 4}},
	}

	r, err := NewResizedVideo([]int{2}, "bilinear")
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip, err := tensor.FromData(nil, tt.dims...)
			require.NoError(t, err)

			_, err = r.Apply(clip)
			assert.Error(t, err)
			for _, mode := range []string{"bilinear", "nearest", "bicubic"} {
				_, err = Resize(clip, 2, 2, mode)
				assert.Error(t, err, mode)
			}
			_, err = Crop(clip, 0, 0, 1, 1)
			assert.Error(t, err)
		})
	}
}

func TestResize_Bilinear(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		outW int
		want []float32
	}{
		{"identity", []float32{1, 2, 3}, 3, []float32{1, 2, 3}},
		{"downscale averages pairs", []float32{0, 1, 2, 3}, 2, []float32{0.5, 2.5}},
		{"upscale clamps edges", []float32{0, 1}, 4, []float32{0, 0.25, 0.75, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resize(rowClip(t, tt.in...), 1, tt.outW, "bilinear")
			require.NoError(t, err)
			assert.InDeltaSlice(t, tt.want, out.Data, 1e-6)
		})
	}
}

func TestResize_Nearest(t *testing.T) {
	out, err := Resize(rowClip(t, 0, 1, 2, 3), 1, 2, "nearest")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 2}, out.Data)

	out, err = Resize(rowClip(t, 5, 7), 1, 4, "nearest")
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 5, 7, 7}, out.Data)
}

func TestResize_Filtered(t *testing.T) {
	flat := tensor.New(1, 2, 6, 6)
	for i := range flat.Data {
		flat.Data[i] = 0.25
	}
	out, err := Resize(flat, 3, 3, "bicubic")
	require.NoError(t, err)
	for _, v := range out.Data {
		assert.InDelta(t, 0.25, v, 1e-6)
	}

	ramp := tensor.New(1, 1, 8, 8)
	for i := range ramp.Data {
		ramp.Data[i] = float32(i % 8)
	}
	out, err = Resize(ramp, 4, 4, "lanczos3")
	require.NoError(t, err)
	for _, v := range out.Data {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.LessOrEqual(t, v, float32(8))
	}
}

func TestResize_DoesNotModifyInput(t *testing.T) {
	clip := rowClip(t, 1, 2, 3, 4)
	before := clip.Clone()
	_, err := Resize(clip, 2, 2, "bilinear")
	require.NoError(t, err)
	assert.Equal(t, before.Data, clip.Data)
}
