// Package trainer runs the epoch loop around a Module: sanity
// validation, training and validation passes, callbacks and the final
// checkpoint.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/lepinkainen/vidtrain/data"
	"github.com/lepinkainen/vidtrain/model"
	"github.com/lepinkainen/vidtrain/tensor"
)

// Module is the model being trained
type Module interface {
	TrainStep(inputs tensor.Tensor, labels []int) (model.Output, error)
	EvalStep(inputs tensor.Tensor, labels []int) (model.Output, error)
	SaveCheckpoint(path string, epoch, globalStep int) error
}

// Loader yields the batches of one epoch
type Loader interface {
	Len() int
	Batches(ctx context.Context) iter.Seq2[data.Batch, error]
}

// Phase names a pass over a loader
type Phase string

const (
	PhaseSanity   Phase = "sanity"
	PhaseTrain    Phase = "train"
	PhaseValidate Phase = "validate"
)

// Config controls the loop
type Config struct {
	MaxEpochs int
	// FastDevRun runs a single training batch and a single validation
	// batch, then stops.
	FastDevRun bool
	// NumSanityValSteps validation batches run before training starts
	NumSanityValSteps int
}

// DefaultConfig returns the usual loop settings.
func DefaultConfig() Config {
	return Config{
		MaxEpochs:         5,
		NumSanityValSteps: 2,
	}
}

// StepMetrics are the results of one batch
type StepMetrics struct {
	Loss       float32
	Correct    int
	Samples    int
	Batch      int
	Batches    int
	GlobalStep int
}

// Summary aggregates a phase
type Summary struct {
	Phase    Phase
	Epoch    int
	Batches  int
	Samples  int
	MeanLoss float64
	Accuracy float64
}

func (s *Summary) add(out model.Output, samples int) {
	s.Batches++
	s.Samples += samples
	s.MeanLoss += (float64(out.Loss) - s.MeanLoss) / float64(s.Batches)
	s.Accuracy += float64(out.Correct)
}

func (s *Summary) finish() {
	if s.Samples > 0 {
		s.Accuracy /= float64(s.Samples)
	}
}

// State is the position of the loop. During Fit, Epoch is the zero-based
// running epoch; once Fit returns it is the number of completed epochs.
type State struct {
	Epoch      int
	GlobalStep int
}

// Trainer runs Fit and keeps the loop state for checkpointing
type Trainer struct {
	Config    Config
	Callbacks []Callback

	state  State
	module Module
}

// New returns a trainer with the given callbacks.
func New(cfg Config, callbacks ...Callback) *Trainer {
	return &Trainer{Config: cfg, Callbacks: callbacks}
}

// State returns the current loop position.
func (t *Trainer) State() State {
	return t.state
}

// Fit trains module on train and validates on val every epoch.
func (t *Trainer) Fit(ctx context.Context, module Module, train, val Loader) error {
	if module == nil {
		return errors.New("no module to fit")
	}
	t.module = module

	epochs := t.Config.MaxEpochs
	limit := 0
	if t.Config.FastDevRun {
		epochs, limit = 1, 1
	} else if t.Config.NumSanityValSteps > 0 && val != nil {
		if _, err := t.run(ctx, PhaseSanity, val, t.Config.NumSanityValSteps); err != nil {
			return err
		}
	}
	if epochs <= 0 {
		return fmt.Errorf("max epochs must be positive, got %d", epochs)
	}

	for epoch := 0; epoch < epochs; epoch++ {
		t.state.Epoch = epoch
		if _, err := t.run(ctx, PhaseTrain, train, limit); err != nil {
			return err
		}
		if val != nil {
			if _, err := t.run(ctx, PhaseValidate, val, limit); err != nil {
				return err
			}
		}
	}
	t.state.Epoch = epochs
	for _, cb := range t.Callbacks {
		cb.OnFitEnd(t.state)
	}
	return nil
}

// run makes one pass over loader. limit of zero means every batch.
func (t *Trainer) run(ctx context.Context, phase Phase, loader Loader, limit int) (Summary, error) {
	total := loader.Len()
	if limit > 0 {
		total = min(total, limit)
	}
	for _, cb := range t.Callbacks {
		cb.OnPhaseStart(phase, t.state.Epoch, total)
	}

	summary := Summary{Phase: phase, Epoch: t.state.Epoch}
	for batch, err := range loader.Batches(ctx) {
		if err != nil {
			return summary, fmt.Errorf("%s epoch %d: %w", phase, t.state.Epoch, err)
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		var out model.Output
		if phase == PhaseTrain {
			out, err = t.module.TrainStep(batch.Inputs, batch.Labels)
			t.state.GlobalStep++
		} else {
			out, err = t.module.EvalStep(batch.Inputs, batch.Labels)
		}
		if err != nil {
			return summary, fmt.Errorf("%s epoch %d batch %d: %w", phase, t.state.Epoch, summary.Batches, err)
		}
		summary.add(out, batch.Size())

		metrics := StepMetrics{
			Loss:       out.Loss,
			Correct:    out.Correct,
			Samples:    batch.Size(),
			Batch:      summary.Batches,
			Batches:    total,
			GlobalStep: t.state.GlobalStep,
		}
		for _, cb := range t.Callbacks {
			cb.OnBatchEnd(phase, t.state.Epoch, metrics)
		}
		if limit > 0 && summary.Batches >= limit {
			break
		}
	}

	summary.finish()
	for _, cb := range t.Callbacks {
		cb.OnPhaseEnd(summary)
	}
	return summary, nil
}

// SaveCheckpoint writes the fitted module with the current loop state.
func (t *Trainer) SaveCheckpoint(path string) error {
	if t.module == nil {
		return errors.New("nothing fitted to checkpoint")
	}
	if err := t.module.SaveCheckpoint(path, t.state.Epoch, t.state.GlobalStep); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}
