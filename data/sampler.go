// Package data batches labeled clips for training.
package data

import (
	"math/rand/v2"
	"sync"
)

// Sampler yields the dataset indices of one epoch
type Sampler interface {
	Indices() []int
	Len() int
}

// RandomSampler draws NumSamples indices out of [0, N) without
// replacement. When NumSamples exceeds N, fresh permutations are
// concatenated. Every call to Indices draws a new order.
type RandomSampler struct {
	N          int
	NumSamples int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSampler returns a sampler seeded for reproducible epochs.
func NewRandomSampler(n, numSamples int, seed uint64) *RandomSampler {
	return &RandomSampler{
		N:          n,
		NumSamples: numSamples,
		rng:        rand.New(rand.NewPCG(seed, seed+1)),
	}
}

// Len implements Sampler.
func (s *RandomSampler) Len() int {
	if s.N == 0 {
		return 0
	}
	return s.NumSamples
}

// Indices implements Sampler.
func (s *RandomSampler) Indices() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int, 0, s.Len())
	if s.N == 0 {
		return out
	}
	for range s.NumSamples / s.N {
		out = append(out, s.rng.Perm(s.N)...)
	}
	out = append(out, s.rng.Perm(s.N)[:s.NumSamples%s.N]...)
	return out
}

// SequentialSampler yields 0..N-1 in order
type SequentialSampler int

// Len implements Sampler.
func (s SequentialSampler) Len() int { return int(s) }

// Indices implements Sampler.
func (s SequentialSampler) Indices() []int {
	out := make([]int, s)
	for i := range out {
		out[i] = i
	}
	return out
}
