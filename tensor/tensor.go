// Package tensor holds the dense float32 array used for video clips and batches.
package tensor

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when tensors cannot be combined.
var ErrShapeMismatch = errors.New("tensor: shape mismatch")

// Tensor is a row-major float32 array. Clips are (C, T, H, W), batches
// of clips are (B, C, T, H, W) and raw decoded clips are (T, H, W, C).
type Tensor struct {
	Data []float32
	Dims []int
}

// New allocates a zeroed tensor. It panics on non-positive dimensions.
func New(dims ...int) Tensor {
	size := 1
	for i, d := range dims {
		if d <= 0 {
			panic(fmt.Sprintf("tensor: dims[%d] must be positive, got %d", i, d))
		}
		size *= d
	}
	return Tensor{
		Data: make([]float32, size),
		Dims: append([]int(nil), dims...),
	}
}

// FromData wraps data without copying.
func FromData(data []float32, dims ...int) (Tensor, error) {
	size := 1
	for _, d := range dims {
		size *= d
	}
	if size != len(data) {
		return Tensor{}, fmt.Errorf("%w: dims %v need %d values, got %d", ErrShapeMismatch, dims, size, len(data))
	}
	return Tensor{Data: data, Dims: append([]int(nil), dims...)}, nil
}

func (t Tensor) Size() int {
	size := 1
	for _, d := range t.Dims {
		size *= d
	}
	return size
}

// Rank returns the number of dimensions.
func (t Tensor) Rank() int {
	return len(t.Dims)
}

// Shape returns a copy of the dimensions.
func (t Tensor) Shape() []int {
	return append([]int(nil), t.Dims...)
}

// Index returns the sub-tensor selected by the leading indices. The
// result shares memory with t.
func (t Tensor) Index(idx ...int) Tensor {
	if len(idx) > len(t.Dims) {
		panic("tensor: too many indices")
	}
	offset := 0
	for i, v := range idx {
		if v < 0 || v >= t.Dims[i] {
			panic(fmt.Sprintf("tensor: index %d out of range for dim %d of size %d", v, i, t.Dims[i]))
		}
		offset += v * stride(t.Dims[i+1:])
	}
	rest := t.Dims[len(idx):]
	n := stride(rest)
	return Tensor{
		Data: t.Data[offset : offset+n],
		Dims: append([]int(nil), rest...),
	}
}

func (t Tensor) Clone() Tensor {
	return Tensor{
		Data: append([]float32(nil), t.Data...),
		Dims: append([]int(nil), t.Dims...),
	}
}

// SameShape reports whether both tensors have identical dimensions.
func SameShape(a, b Tensor) bool {
	if len(a.Dims) != len(b.Dims) {
		return false
	}
	for i := range a.Dims {
		if a.Dims[i] != b.Dims[i] {
			return false
		}
	}
	return true
}

// Stack joins equally shaped tensors along a new leading dimension.
func Stack(ts []Tensor) (Tensor, error) {
	if len(ts) == 0 {
		return Tensor{}, errors.New("tensor: nothing to stack")
	}
	first := ts[0]
	out := Tensor{
		Data: make([]float32, 0, len(ts)*first.Size()),
		Dims: append([]int{len(ts)}, first.Dims...),
	}
	for i, t := range ts {
		if !SameShape(first, t) {
			return Tensor{}, fmt.Errorf("%w: element %d has dims %v, want %v", ErrShapeMismatch, i, t.Dims, first.Dims)
		}
		out.Data = append(out.Data, t.Data...)
	}
	return out, nil
}

func (t Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.Dims)
}

func stride(dims []int) int {
	s := 1
	for _, d := range dims {
		s *= d
	}
	return s
}
