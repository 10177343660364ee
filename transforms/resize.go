package transforms

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/lepinkainen/vidtrain/tensor"
	"github.com/nfnt/resize"
)

// DefaultInterpolation is used when no mode is given
const DefaultInterpolation = "bilinear"

// Native modes follow torch interpolate with align_corners=false. The
// rest are resampled by nfnt/resize one plane at a time.
var filterModes = map[string]resize.InterpolationFunction{
	"bicubic":  resize.Bicubic,
	"lanczos3": resize.Lanczos3,
	"mitchell": resize.MitchellNetravali,
}

// ValidInterpolation reports whether mode can be used for resizing.
func ValidInterpolation(mode string) bool {
	if mode == "bilinear" || mode == "nearest" {
		return true
	}
	_, ok := filterModes[mode]
	return ok
}

// ResizedVideo resizes every frame of a (C, T, H, W) clip to a fixed size
type ResizedVideo struct {
	Height int
	Width  int
	Mode   string
}

// NewResizedVideo accepts a single size for square output or (height, width).
func NewResizedVideo(size []int, mode string) (*ResizedVideo, error) {
	var h, w int
	switch len(size) {
	case 1:
		h, w = size[0], size[0]
	case 2:
		h, w = size[0], size[1]
	default:
		return nil, fmt.Errorf("%w: got %d values", ErrInvalidSize, len(size))
	}
	if h <= 0 || w <= 0 {
		return nil, fmt.Errorf("%w: got (%d, %d)", ErrInvalidSize, h, w)
	}
	if mode == "" {
		mode = DefaultInterpolation
	}
	if !ValidInterpolation(mode) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterpolation, mode)
	}
	return &ResizedVideo{Height: h, Width: w, Mode: mode}, nil
}

// Apply implements Transform.
func (r *ResizedVideo) Apply(clip tensor.Tensor) (tensor.Tensor, error) {
	if err := checkClip(clip); err != nil {
		return tensor.Tensor{}, err
	}
	return Resize(clip, r.Height, r.Width, r.Mode)
}

func (r *ResizedVideo) String() string {
	return fmt.Sprintf("ResizedVideo(size=(%d, %d), interpolation_mode=%s)", r.Height, r.Width, r.Mode)
}

// Resize returns a new (C, T, h, w) clip. The input is not modified.
func Resize(clip tensor.Tensor, h, w int, mode string) (tensor.Tensor, error) {
	if err := checkClip(clip); err != nil {
		return tensor.Tensor{}, err
	}
	if h <= 0 || w <= 0 {
		return tensor.Tensor{}, fmt.Errorf("%w: got (%d, %d)", ErrInvalidSize, h, w)
	}
	c, t, inH, inW := clip.Dims[0], clip.Dims[1], clip.Dims[2], clip.Dims[3]
	out := tensor.New(c, t, h, w)

	var plane func(src []float32, dst []float32)
	switch mode {
	case "bilinear":
		ys, xs := linearTaps(inH, h), linearTaps(inW, w)
		plane = func(src, dst []float32) { bilinear(src, inW, dst, w, ys, xs) }
	case "nearest":
		ys, xs := nearestTaps(inH, h), nearestTaps(inW, w)
		plane = func(src, dst []float32) { nearest(src, inW, dst, w, ys, xs) }
	default:
		interp, ok := filterModes[mode]
		if !ok {
			return tensor.Tensor{}, fmt.Errorf("%w: %q", ErrUnknownInterpolation, mode)
		}
		plane = func(src, dst []float32) { filtered(src, inH, inW, dst, h, w, interp) }
	}

	for ci := 0; ci < c; ci++ {
		for ti := 0; ti < t; ti++ {
			plane(clip.Index(ci, ti).Data, out.Index(ci, ti).Data)
		}
	}
	return out, nil
}

type tap struct {
	lo, hi int
	frac   float32
}

func linearTaps(in, out int) []tap {
	scale := float64(in) / float64(out)
	taps := make([]tap, out)
	for o := range taps {
		src := max((float64(o)+0.5)*scale-0.5, 0)
		lo := min(int(src), in-1)
		hi := min(lo+1, in-1)
		taps[o] = tap{lo: lo, hi: hi, frac: float32(src - float64(lo))}
	}
	return taps
}

func nearestTaps(in, out int) []int {
	scale := float64(in) / float64(out)
	idx := make([]int, out)
	for o := range idx {
		idx[o] = min(int(math.Floor(float64(o)*scale)), in-1)
	}
	return idx
}

func bilinear(src []float32, inW int, dst []float32, outW int, ys, xs []tap) {
	for y, ty := range ys {
		top := src[ty.lo*inW : (ty.lo+1)*inW]
		bottom := src[ty.hi*inW : (ty.hi+1)*inW]
		for x, tx := range xs {
			a := top[tx.lo] + (top[tx.hi]-top[tx.lo])*tx.frac
			b := bottom[tx.lo] + (bottom[tx.hi]-bottom[tx.lo])*tx.frac
			dst[y*outW+x] = a + (b-a)*ty.frac
		}
	}
}

func nearest(src []float32, inW int, dst []float32, outW int, ys, xs []int) {
	for y, sy := range ys {
		for x, sx := range xs {
			dst[y*outW+x] = src[sy*inW+sx]
		}
	}
}

// filtered quantizes the plane to 16 bits over its own value range so
// nfnt/resize can resample it, then maps the result back.
func filtered(src []float32, inH, inW int, dst []float32, outH, outW int, interp resize.InterpolationFunction) {
	lo, hi := src[0], src[0]
	for _, v := range src {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		for i := range dst {
			dst[i] = lo
		}
		return
	}

	img := image.NewGray16(image.Rect(0, 0, inW, inH))
	for i, v := range src {
		q := uint16(math.Round(float64((v - lo) / span * 65535)))
		img.Pix[2*i] = uint8(q >> 8)
		img.Pix[2*i+1] = uint8(q)
	}

	resized := resize.Resize(uint(outW), uint(outH), img, interp)
	b := resized.Bounds()
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			g := color.Gray16Model.Convert(resized.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			dst[y*outW+x] = lo + float32(g.Y)/65535*span
		}
	}
}
