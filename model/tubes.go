package model

import (
	"fmt"
	"math"
)

// Tube is a 3D patch sampling pattern over (T, H, W)
type Tube struct {
	Kernel [3]int
	Stride [3]int
	Offset [3]int
}

// DefaultTubes are the four sparse tubes of TubeViT-B.
var DefaultTubes = []Tube{
	{Kernel: [3]int{8, 8, 8}, Stride: [3]int{16, 32, 32}, Offset: [3]int{0, 0, 0}},
	{Kernel: [3]int{16, 4, 4}, Stride: [3]int{6, 32, 32}, Offset: [3]int{4, 8, 8}},
	{Kernel: [3]int{4, 12, 12}, Stride: [3]int{16, 32, 32}, Offset: [3]int{0, 16, 16}},
	{Kernel: [3]int{1, 16, 16}, Stride: [3]int{32, 16, 16}, Offset: [3]int{0, 0, 0}},
}

// clamp shrinks the tube to fit a (T, H, W) volume
func (tb Tube) clamp(dims [3]int) Tube {
	out := tb
	for i := range dims {
		out.Kernel[i] = min(max(tb.Kernel[i], 1), dims[i])
		out.Stride[i] = max(tb.Stride[i], 1)
		if out.Offset[i] < 0 || out.Offset[i]+out.Kernel[i] > dims[i] {
			out.Offset[i] = 0
		}
	}
	return out
}

// token is one tube placement inside the clip
type token struct {
	tube    int
	t, h, w int
}

// Tokenizer cuts clips into tube tokens and summarizes each token by the
// mean and standard deviation of every channel
type Tokenizer struct {
	channels int
	dims     [3]int
	tubes    []Tube
	tokens   []token
}

// NewTokenizer places every tube on a (C, T, H, W) clip grid.
func NewTokenizer(videoShape []int, tubes []Tube) (*Tokenizer, error) {
	if len(videoShape) != 4 {
		return nil, fmt.Errorf("video shape must be (C, T, H, W), got %v", videoShape)
	}
	tk := &Tokenizer{
		channels: videoShape[0],
		dims:     [3]int{videoShape[1], videoShape[2], videoShape[3]},
	}
	for i, tb := range tubes {
		tb = tb.clamp(tk.dims)
		tk.tubes = append(tk.tubes, tb)
		for t := tb.Offset[0]; t+tb.Kernel[0] <= tk.dims[0]; t += tb.Stride[0] {
			for h := tb.Offset[1]; h+tb.Kernel[1] <= tk.dims[1]; h += tb.Stride[1] {
				for w := tb.Offset[2]; w+tb.Kernel[2] <= tk.dims[2]; w += tb.Stride[2] {
					tk.tokens = append(tk.tokens, token{tube: i, t: t, h: h, w: w})
				}
			}
		}
	}
	if len(tk.tokens) == 0 {
		return nil, fmt.Errorf("no tube fits a %v clip", videoShape)
	}
	return tk, nil
}

// NumTokens returns the number of tokens per clip.
func (tk *Tokenizer) NumTokens() int {
	return len(tk.tokens)
}

// NumTubes returns the number of tube types.
func (tk *Tokenizer) NumTubes() int {
	return len(tk.tubes)
}

// FeatureDim returns the length of a token feature vector.
func (tk *Tokenizer) FeatureDim() int {
	return 2 * tk.channels
}

// Features writes NumTokens x FeatureDim values for one clip into out.
func (tk *Tokenizer) Features(clip, out []float32) {
	T, H, W := tk.dims[0], tk.dims[1], tk.dims[2]
	F := tk.FeatureDim()
	for n, tok := range tk.tokens {
		k := tk.tubes[tok.tube].Kernel
		count := float64(k[0] * k[1] * k[2])
		for c := 0; c < tk.channels; c++ {
			var sum, sumSq float64
			for t := tok.t; t < tok.t+k[0]; t++ {
				for h := tok.h; h < tok.h+k[1]; h++ {
					row := clip[((c*T+t)*H+h)*W+tok.w:]
					for _, v := range row[:k[2]] {
						sum += float64(v)
						sumSq += float64(v) * float64(v)
					}
				}
			}
			mean := sum / count
			variance := max(sumSq/count-mean*mean, 0)
			out[n*F+2*c] = float32(mean)
			out[n*F+2*c+1] = float32(math.Sqrt(variance))
		}
	}
}
