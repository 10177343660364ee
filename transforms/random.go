package transforms

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/lepinkainen/vidtrain/tensor"
)

// Rand is a seeded generator that can be shared by transforms running on
// several loader workers.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64()
}

// IntN returns a value in [0, n).
func (r *Rand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.IntN(n)
}

// Uniform returns a value in [lo, hi).
func (r *Rand) Uniform(lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// RandomHorizontalFlipVideo mirrors the whole clip along its width with probability P
type RandomHorizontalFlipVideo struct {
	P   float64
	Rng *Rand
}

// NewRandomHorizontalFlipVideo uses the usual probability of 0.5.
func NewRandomHorizontalFlipVideo(rng *Rand) *RandomHorizontalFlipVideo {
	return &RandomHorizontalFlipVideo{P: 0.5, Rng: rng}
}

// Apply implements Transform.
func (f *RandomHorizontalFlipVideo) Apply(clip tensor.Tensor) (tensor.Tensor, error) {
	if err := checkClip(clip); err != nil {
		return tensor.Tensor{}, err
	}
	if f.Rng.Float64() >= f.P {
		return clip, nil
	}
	return HFlip(clip), nil
}

func (f *RandomHorizontalFlipVideo) String() string {
	return fmt.Sprintf("RandomHorizontalFlipVideo(p=%v)", f.P)
}

// HFlip returns a copy of a (C, T, H, W) clip mirrored along W.
func HFlip(clip tensor.Tensor) tensor.Tensor {
	out := clip.Clone()
	w := clip.Dims[3]
	for row := 0; row < len(out.Data)/w; row++ {
		r := out.Data[row*w : (row+1)*w]
		for i, j := 0, w-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
	}
	return out
}

// Crop returns the (C, T, h, w) window whose top-left corner is (i, j).
func Crop(clip tensor.Tensor, i, j, h, w int) (tensor.Tensor, error) {
	if err := checkClip(clip); err != nil {
		return tensor.Tensor{}, err
	}
	c, t, inH, inW := clip.Dims[0], clip.Dims[1], clip.Dims[2], clip.Dims[3]
	if i < 0 || j < 0 || h <= 0 || w <= 0 || i+h > inH || j+w > inW {
		return tensor.Tensor{}, fmt.Errorf("crop (%d, %d, %d, %d) outside %dx%d frame", i, j, h, w, inH, inW)
	}
	out := tensor.New(c, t, h, w)
	for ci := 0; ci < c; ci++ {
		for ti := 0; ti < t; ti++ {
			src := clip.Index(ci, ti).Data
			dst := out.Index(ci, ti).Data
			for y := 0; y < h; y++ {
				copy(dst[y*w:(y+1)*w], src[(i+y)*inW+j:(i+y)*inW+j+w])
			}
		}
	}
	return out, nil
}

// RandomResizedCropVideo crops a random area and aspect ratio of the clip
// and resizes it to Height x Width. The same window is used for every frame.
type RandomResizedCropVideo struct {
	Height int
	Width  int
	Mode   string
	Scale  [2]float64
	Ratio  [2]float64
	Rng    *Rand
}

// NewRandomResizedCropVideo uses scale (0.08, 1) and ratio (3/4, 4/3).
func NewRandomResizedCropVideo(size []int, rng *Rand) (*RandomResizedCropVideo, error) {
	r, err := NewResizedVideo(size, DefaultInterpolation)
	if err != nil {
		return nil, err
	}
	return &RandomResizedCropVideo{
		Height: r.Height,
		Width:  r.Width,
		Mode:   r.Mode,
		Scale:  [2]float64{0.08, 1.0},
		Ratio:  [2]float64{3.0 / 4.0, 4.0 / 3.0},
		Rng:    rng,
	}, nil
}

// Apply implements Transform.
func (c *RandomResizedCropVideo) Apply(clip tensor.Tensor) (tensor.Tensor, error) {
	if err := checkClip(clip); err != nil {
		return tensor.Tensor{}, err
	}
	i, j, h, w := c.params(clip.Dims[2], clip.Dims[3])
	cropped, err := Crop(clip, i, j, h, w)
	if err != nil {
		return tensor.Tensor{}, err
	}
	return Resize(cropped, c.Height, c.Width, c.Mode)
}

// params draws a crop window, falling back to a center crop after 10 misses
func (c *RandomResizedCropVideo) params(height, width int) (i, j, h, w int) {
	area := float64(height * width)
	logLo, logHi := math.Log(c.Ratio[0]), math.Log(c.Ratio[1])

	for range 10 {
		target := area * c.Rng.Uniform(c.Scale[0], c.Scale[1])
		aspect := math.Exp(c.Rng.Uniform(logLo, logHi))

		w = int(math.Round(math.Sqrt(target * aspect)))
		h = int(math.Round(math.Sqrt(target / aspect)))
		if w > 0 && w <= width && h > 0 && h <= height {
			i = c.Rng.IntN(height - h + 1)
			j = c.Rng.IntN(width - w + 1)
			return i, j, h, w
		}
	}

	inRatio := float64(width) / float64(height)
	switch {
	case inRatio < c.Ratio[0]:
		w = width
		h = int(math.Round(float64(w) / c.Ratio[0]))
	case inRatio > c.Ratio[1]:
		h = height
		w = int(math.Round(float64(h) * c.Ratio[1]))
	default:
		w, h = width, height
	}
	return (height - h) / 2, (width - w) / 2, h, w
}

func (c *RandomResizedCropVideo) String() string {
	return fmt.Sprintf("RandomResizedCropVideo(size=(%d, %d), interpolation_mode=%s, scale=(%v, %v), ratio=(%v, %v))",
		c.Height, c.Width, c.Mode, c.Scale[0], c.Scale[1], c.Ratio[0], c.Ratio[1])
}
