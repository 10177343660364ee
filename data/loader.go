package data

import (
	"context"
	"fmt"
	"iter"

	"github.com/lepinkainen/vidtrain/tensor"
	"golang.org/x/sync/errgroup"
)

// Dataset serves labeled samples by index
type Dataset interface {
	Len() int
	Get(ctx context.Context, idx int) (tensor.Tensor, int, error)
}

// Batch is a stacked group of samples. Inputs has the sample shape with
// a leading batch dimension.
type Batch struct {
	Inputs tensor.Tensor
	Labels []int
}

// Size returns the number of samples in the batch.
func (b Batch) Size() int {
	return len(b.Labels)
}

// Loader groups sampled indices into batches and loads the samples of
// each batch with up to Workers goroutines
type Loader struct {
	Dataset   Dataset
	Sampler   Sampler
	BatchSize int
	// Workers of zero loads samples on the calling goroutine
	Workers  int
	DropLast bool
}

// Len returns the number of batches per epoch.
func (l *Loader) Len() int {
	n := l.Sampler.Len()
	if l.DropLast {
		return n / l.BatchSize
	}
	return (n + l.BatchSize - 1) / l.BatchSize
}

// Batches draws an epoch worth of indices and yields its batches. The
// sequence stops after the first error.
func (l *Loader) Batches(ctx context.Context) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		if l.BatchSize <= 0 {
			yield(Batch{}, fmt.Errorf("batch size must be positive, got %d", l.BatchSize))
			return
		}
		indices := l.Sampler.Indices()
		for start := 0; start < len(indices); start += l.BatchSize {
			end := min(start+l.BatchSize, len(indices))
			if end-start < l.BatchSize && l.DropLast {
				return
			}
			batch, err := l.load(ctx, indices[start:end])
			if !yield(batch, err) || err != nil {
				return
			}
		}
	}
}

// First loads a single batch, used to inspect input shapes.
func (l *Loader) First(ctx context.Context) (Batch, error) {
	for b, err := range l.Batches(ctx) {
		return b, err
	}
	return Batch{}, fmt.Errorf("loader yields no batches: %d samples with batch size %d", l.Sampler.Len(), l.BatchSize)
}

func (l *Loader) load(ctx context.Context, indices []int) (Batch, error) {
	inputs := make([]tensor.Tensor, len(indices))
	labels := make([]int, len(indices))

	if l.Workers <= 0 {
		for i, idx := range indices {
			x, y, err := l.Dataset.Get(ctx, idx)
			if err != nil {
				return Batch{}, fmt.Errorf("sample %d: %w", idx, err)
			}
			inputs[i], labels[i] = x, y
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.Workers)
		for i, idx := range indices {
			g.Go(func() error {
				x, y, err := l.Dataset.Get(gctx, idx)
				if err != nil {
					return fmt.Errorf("sample %d: %w", idx, err)
				}
				inputs[i], labels[i] = x, y
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Batch{}, err
		}
	}

	stacked, err := tensor.Stack(inputs)
	if err != nil {
		return Batch{}, err
	}
	return Batch{Inputs: stacked, Labels: labels}, nil
}
