package trainer

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/lepinkainen/vidtrain/data"
	"github.com/lepinkainen/vidtrain/model"
	"github.com/lepinkainen/vidtrain/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLoader yields n batches of two one-value samples
type fakeLoader struct {
	n      int
	failAt int
	drawn  int
}

func (l *fakeLoader) Len() int { return l.n }

func (l *fakeLoader) Batches(ctx context.Context) iter.Seq2[data.Batch, error] {
	return func(yield func(data.Batch, error) bool) {
		for i := 0; i < l.n; i++ {
			l.drawn++
			if i == l.failAt {
				yield(data.Batch{}, errors.New("decode failed"))
				return
			}
			b := data.Batch{Inputs: tensor.New(2, 1), Labels: []int{0, 1}}
			if !yield(b, nil) {
				return
			}
		}
	}
}

type fakeModule struct {
	trainSteps int
	evalSteps  int
	saved      []State
	failTrain  bool
}

func (m *fakeModule) TrainStep(tensor.Tensor, []int) (model.Output, error) {
	if m.failTrain {
		return model.Output{}, errors.New("nan loss")
	}
	m.trainSteps++
	return model.Output{Loss: 1, Correct: 1}, nil
}

func (m *fakeModule) EvalStep(tensor.Tensor, []int) (model.Output, error) {
	m.evalSteps++
	return model.Output{Loss: 0.5, Correct: 2}, nil
}

func (m *fakeModule) SaveCheckpoint(path string, epoch, step int) error {
	m.saved = append(m.saved, State{Epoch: epoch, GlobalStep: step})
	return nil
}

// recorder keeps every callback invocation
type recorder struct {
	events    []string
	summaries []Summary
	final     State
}

func (r *recorder) OnPhaseStart(phase Phase, epoch, batches int) {
	r.events = append(r.events, string(phase)+"-start")
}
func (r *recorder) OnBatchEnd(phase Phase, epoch int, m StepMetrics) {
	r.events = append(r.events, string(phase))
}
func (r *recorder) OnPhaseEnd(s Summary) {
	r.summaries = append(r.summaries, s)
}
func (r *recorder) OnFitEnd(s State) { r.final = s }

func TestFit_Epochs(t *testing.T) {
	module := &fakeModule{}
	rec := &recorder{}
	tr := New(Config{MaxEpochs: 3, NumSanityValSteps: 2}, rec)

	train, val := &fakeLoader{n: 4, failAt: -1}, &fakeLoader{n: 5, failAt: -1}
	require.NoError(t, tr.Fit(context.Background(), module, train, val))

	assert.Equal(t, 12, module.trainSteps)
	// 2 sanity batches plus 5 per epoch
	assert.Equal(t, 17, module.evalSteps)
	assert.Equal(t, State{Epoch: 3, GlobalStep: 12}, tr.State())
	assert.Equal(t, tr.State(), rec.final)

	require.Len(t, rec.summaries, 7)
	assert.Equal(t, PhaseSanity, rec.summaries[0].Phase)
	assert.Equal(t, 2, rec.summaries[0].Batches)
	assert.Equal(t, PhaseTrain, rec.summaries[1].Phase)
	assert.InDelta(t, 0.5, rec.summaries[1].Accuracy, 1e-9)
	assert.InDelta(t, 1.0, rec.summaries[2].Accuracy, 1e-9)
	assert.InDelta(t, 0.5, rec.summaries[2].MeanLoss, 1e-9)
	assert.Equal(t, "sanity-start", rec.events[0])
}

func TestFit_FastDevRun(t *testing.T) {
	module := &fakeModule{}
	tr := New(Config{MaxEpochs: 5, FastDevRun: true, NumSanityValSteps: 2})
	train, val := &fakeLoader{n: 10, failAt: -1}, &fakeLoader{n: 10, failAt: -1}

	require.NoError(t, tr.Fit(context.Background(), module, train, val))
	assert.Equal(t, 1, module.trainSteps)
	assert.Equal(t, 1, module.evalSteps)
	assert.Equal(t, 1, train.drawn)
	assert.Equal(t, 1, val.drawn)

	require.NoError(t, tr.SaveCheckpoint("unused"))
	assert.Equal(t, []State{{Epoch: 1, GlobalStep: 1}}, module.saved)
}

func TestFit_Errors(t *testing.T) {
	tr := New(Config{MaxEpochs: 1})
	err := tr.Fit(context.Background(), &fakeModule{}, &fakeLoader{n: 3, failAt: 1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode failed")

	err = tr.Fit(context.Background(), &fakeModule{failTrain: true}, &fakeLoader{n: 3, failAt: -1}, nil)
	assert.ErrorContains(t, err, "nan loss")

	assert.Error(t, New(Config{MaxEpochs: 0}).Fit(context.Background(), &fakeModule{}, &fakeLoader{n: 1, failAt: -1}, nil))
	assert.Error(t, New(Config{MaxEpochs: 1}).Fit(context.Background(), nil, &fakeLoader{n: 1, failAt: -1}, nil))
	assert.Error(t, New(DefaultConfig()).SaveCheckpoint("x"))
}

func TestFit_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(Config{MaxEpochs: 1}).Fit(ctx, &fakeModule{}, &fakeLoader{n: 3, failAt: -1}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCallbacks_Output(t *testing.T) {
	var logs, bars bytes.Buffer
	logger := log.New(&logs)
	tr := New(Config{MaxEpochs: 1},
		&LogCallback{Logger: logger, Every: 1},
		NewProgressCallback(&bars))

	require.NoError(t, tr.Fit(context.Background(), &fakeModule{}, &fakeLoader{n: 2, failAt: -1}, &fakeLoader{n: 1, failAt: -1}))

	out := logs.String()
	assert.Contains(t, out, "train done")
	assert.Contains(t, out, "validate done")
	assert.Contains(t, out, "fit finished")
	assert.Contains(t, out, "epochs=1")
	assert.Equal(t, 2, strings.Count(out, "step="))
	assert.Contains(t, bars.String(), "train")
}
