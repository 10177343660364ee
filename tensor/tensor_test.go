package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTensor_Index(t *testing.T) {
	tests := []struct {
		name string
		t    Tensor
		idx  []int
		want Tensor
	}{
		{
			name: "row1",
			t:    Tensor{Data: []float32{1, 2, 3, 4}, Dims: []int{2, 2}},
			idx:  []int{1},
			want: Tensor{Data: []float32{3, 4}, Dims: []int{2}},
		},
		{
			name: "row0",
			t:    Tensor{Data: []float32{1, 2, 3, 4}, Dims: []int{2, 2}},
			idx:  []int{0},
			want: Tensor{Data: []float32{1, 2}, Dims: []int{2}},
		},
		{
			name: "rank3",
			t:    Tensor{Data: []float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, Dims: []int{2, 3, 2}},
			idx:  []int{1, 2},
			want: Tensor{Data: []float32{10, 11}, Dims: []int{2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equalf(t, tt.want, tt.t.Index(tt.idx...), "Index(%v)", tt.idx)
		})
	}
}

func TestTensor_IndexOutOfRange(t *testing.T) {
	tt := New(2, 2)
	assert.Panics(t, func() { tt.Index(2) })
	assert.Panics(t, func() { tt.Index(0, 0, 0) })
}

func TestFromData(t *testing.T) {
	_, err := FromData([]float32{1, 2, 3}, 2, 2)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	tt, err := FromData([]float32{1, 2, 3, 4}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, tt.Size())
	assert.Equal(t, 2, tt.Rank())
}

func TestStack(t *testing.T) {
	a := Tensor{Data: []float32{1, 2}, Dims: []int{2}}
	b := Tensor{Data: []float32{3, 4}, Dims: []int{2}}
	got, err := Stack([]Tensor{a, b})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, got.Dims)
	assert.Equal(t, []float32{1, 2, 3, 4}, got.Data)

	_, err = Stack([]Tensor{a, New(3)})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = Stack(nil)
	assert.Error(t, err)
}

func TestClone(t *testing.T) {
	a := Tensor{Data: []float32{1, 2}, Dims: []int{2}}
	b := a.Clone()
	b.Data[0] = 9
	assert.Equal(t, float32(1), a.Data[0])
}
