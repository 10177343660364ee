package model

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/lepinkainen/vidtrain/tensor"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
)

// Output is the result of a forward pass
type Output struct {
	Loss    float32
	Correct int
	// Predictions holds the arg max class of every sample
	Predictions []int
}

// ResidualBlock is x + FC2(ReLU(FC1(x))).
type ResidualBlock struct {
	FC1 *anynet.FC
	FC2 *anynet.FC
}

// Apply runs the block on a batch of n vectors.
func (r *ResidualBlock) Apply(in anydiff.Res, n int) anydiff.Res {
	h := anynet.ReLU.Apply(r.FC1.Apply(in, n), n)
	return anydiff.Add(in, r.FC2.Apply(h, n))
}

// Parameters returns the weights and biases of both layers.
func (r *ResidualBlock) Parameters() []*anydiff.Var {
	return append(r.FC1.Parameters(), r.FC2.Parameters()...)
}

// Model embeds tube tokens, averages them into a clip vector and
// classifies it with a stack of residual MLP blocks.
type Model struct {
	Config    Config
	Tokenizer *Tokenizer
	Creator   anyvec.Creator

	// TokenFC projects token features to the hidden size
	TokenFC *anynet.FC
	// TubeEmbed is a (K, D) learned embedding per tube type
	TubeEmbed *anydiff.Var
	Blocks    []*ResidualBlock
	Head      *anynet.FC

	Optimizer *anysgd.Adam
	// Steps counts optimizer updates
	Steps int

	tubeSelect anyvec.Vector // (N, K) one-hot tube of every token
}

// New builds a freshly initialized model.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tk, err := NewTokenizer(cfg.VideoShape, DefaultTubes)
	if err != nil {
		return nil, err
	}
	c := anyvec32.DefaultCreator{}
	F, K, D := tk.FeatureDim(), tk.NumTubes(), cfg.HiddenDim
	m := &Model{
		Config:    cfg,
		Tokenizer: tk,
		Creator:   c,
		TokenFC:   anynet.NewFC(c, F, D),
		TubeEmbed: anydiff.NewVar(c.MakeVector(K * D)),
		Head:      anynet.NewFC(c, D, cfg.NumClasses),
		Optimizer: &anysgd.Adam{
			DecayRate1: float64(cfg.Beta1),
			DecayRate2: float64(cfg.Beta2),
			Damping:    float64(cfg.Eps),
		},
	}
	for range cfg.NumLayers {
		m.Blocks = append(m.Blocks, &ResidualBlock{
			FC1: anynet.NewFC(c, D, cfg.MLPDim),
			FC2: anynet.NewFC(c, cfg.MLPDim, D),
		})
	}

	sel := make([]float32, tk.NumTokens()*K)
	for n, tok := range tk.tokens {
		sel[n*K+tok.tube] = 1
	}
	m.tubeSelect = c.MakeVectorData(sel)

	m.initialize(cfg.Seed)
	return m, nil
}

// Parameters returns every trainable variable in checkpoint order.
func (m *Model) Parameters() []*anydiff.Var {
	params := append(m.TokenFC.Parameters(), m.TubeEmbed)
	for _, b := range m.Blocks {
		params = append(params, b.Parameters()...)
	}
	return append(params, m.Head.Parameters()...)
}

// initialize draws weights from a seeded normal scaled by fan-in and
// zeroes the biases, so equal seeds give equal models
func (m *Model) initialize(seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^0x5deece66d))
	fill := func(v *anydiff.Var, fanIn int) {
		std := 1 / math.Sqrt(float64(fanIn))
		data := make([]float32, v.Vector.Len())
		for i := range data {
			data[i] = float32(rng.NormFloat64() * std)
		}
		v.Vector.SetData(data)
	}
	fc := func(f *anynet.FC, fanIn int) {
		fill(f.Weights, fanIn)
		f.Biases.Vector.SetData(make([]float32, f.Biases.Vector.Len()))
	}
	fc(m.TokenFC, m.Tokenizer.FeatureDim())
	fill(m.TubeEmbed, m.Config.HiddenDim)
	for _, b := range m.Blocks {
		fc(b.FC1, m.Config.HiddenDim)
		fc(b.FC2, m.Config.MLPDim*max(len(m.Blocks), 1))
	}
	fc(m.Head, m.Config.HiddenDim)
}

// NumParameters returns the number of trainable values.
func (m *Model) NumParameters() int {
	var n int
	for _, p := range m.Parameters() {
		n += p.Vector.Len()
	}
	return n
}

// flatParameters copies every parameter into one buffer
func (m *Model) flatParameters() []float32 {
	out := make([]float32, 0, m.NumParameters())
	for _, p := range m.Parameters() {
		out = append(out, p.Vector.Data().([]float32)...)
	}
	return out
}

// setParameters is the inverse of flatParameters
func (m *Model) setParameters(data []float32) error {
	if len(data) != m.NumParameters() {
		return fmt.Errorf("got %d parameters, model has %d", len(data), m.NumParameters())
	}
	for _, p := range m.Parameters() {
		n := p.Vector.Len()
		p.Vector.SetData(append([]float32(nil), data[:n]...))
		data = data[n:]
	}
	return nil
}

func (m *Model) String() string {
	var s string
	s += "[TubeClassifier]\n"
	s += fmt.Sprintf("num_classes: %d\n", m.Config.NumClasses)
	s += fmt.Sprintf("video_shape: %v\n", m.Config.VideoShape)
	s += fmt.Sprintf("num_tokens: %d\n", m.Tokenizer.NumTokens())
	s += fmt.Sprintf("num_layers: %d\n", m.Config.NumLayers)
	s += fmt.Sprintf("hidden_dim: %d\n", m.Config.HiddenDim)
	s += fmt.Sprintf("mlp_dim: %d\n", m.Config.MLPDim)
	s += fmt.Sprintf("num_parameters: %d\n", m.NumParameters())
	return s
}

func (m *Model) checkBatch(inputs tensor.Tensor, labels []int) error {
	if inputs.Rank() != 5 {
		return fmt.Errorf("inputs must be (B, C, T, H, W), got %v", inputs.Dims)
	}
	for i, d := range m.Config.VideoShape {
		if inputs.Dims[i+1] != d {
			return fmt.Errorf("clip shape %v does not match model video shape %v", inputs.Dims[1:], m.Config.VideoShape)
		}
	}
	if labels != nil && len(labels) != inputs.Dims[0] {
		return fmt.Errorf("got %d labels for %d clips", len(labels), inputs.Dims[0])
	}
	for _, y := range labels {
		if y < 0 || y >= m.Config.NumClasses {
			return fmt.Errorf("label %d out of range for %d classes", y, m.Config.NumClasses)
		}
	}
	return nil
}

// logProbs builds the graph from a (B, C, T, H, W) batch to (B, V)
// log class probabilities
func (m *Model) logProbs(inputs tensor.Tensor) anydiff.Res {
	B := inputs.Dims[0]
	N, F, K, D := m.Tokenizer.NumTokens(), m.Tokenizer.FeatureDim(), m.Tokenizer.NumTubes(), m.Config.HiddenDim

	features := make([]float32, B*N*F)
	clipSize := inputs.Size() / B
	for b := 0; b < B; b++ {
		m.Tokenizer.Features(inputs.Data[b*clipSize:(b+1)*clipSize], features[b*N*F:(b+1)*N*F])
	}

	// token embedding plus the embedding of the token's tube
	x := m.TokenFC.Apply(anydiff.NewConst(m.Creator.MakeVectorData(features)), B*N)
	tubes := anydiff.MatMul(false, false,
		&anydiff.Matrix{Data: anydiff.NewConst(m.tubeSelect), Rows: N, Cols: K},
		&anydiff.Matrix{Data: m.TubeEmbed, Rows: K, Cols: D})
	x = anynet.ReLU.Apply(anydiff.AddRepeated(x, tubes.Data), B*N)

	// mean pool tokens
	pool := make([]float32, B*B*N)
	for b := 0; b < B; b++ {
		for n := 0; n < N; n++ {
			pool[b*B*N+b*N+n] = 1 / float32(N)
		}
	}
	pooled := anydiff.MatMul(false, false,
		&anydiff.Matrix{Data: anydiff.NewConst(m.Creator.MakeVectorData(pool)), Rows: B, Cols: B * N},
		&anydiff.Matrix{Data: x, Rows: B * N, Cols: D})

	x = pooled.Data
	for _, blk := range m.Blocks {
		x = blk.Apply(x, B)
	}
	return anynet.LogSoftmax.Apply(m.Head.Apply(x, B), B)
}

// Forward runs a (B, C, T, H, W) batch through the model. With labels
// it also returns the loss node for backpropagation.
func (m *Model) Forward(inputs tensor.Tensor, labels []int) (Output, anydiff.Res, error) {
	if err := m.checkBatch(inputs, labels); err != nil {
		return Output{}, nil, err
	}
	B, V := inputs.Dims[0], m.Config.NumClasses
	logProbs := m.logProbs(inputs)

	probs := logProbs.Output().Data().([]float32)
	out := Output{Predictions: make([]int, B)}
	for b := 0; b < B; b++ {
		best := 0
		for v := 1; v < V; v++ {
			if probs[b*V+v] > probs[b*V+best] {
				best = v
			}
		}
		out.Predictions[b] = best
		if labels != nil && labels[b] == best {
			out.Correct++
		}
	}
	if labels == nil {
		return out, nil, nil
	}

	oneHot := make([]float32, B*V)
	for b, y := range labels {
		oneHot[b*V+y] = 1
	}
	cost := anynet.DotCost{}.Cost(anydiff.NewConst(m.Creator.MakeVectorData(oneHot)), logProbs, B)
	loss := anydiff.Scale(anydiff.Sum(cost), m.Creator.MakeNumeric(1/float64(B)))
	out.Loss = loss.Output().Data().([]float32)[0]
	if math.IsNaN(float64(out.Loss)) {
		return out, nil, errors.New("loss is NaN")
	}
	return out, loss, nil
}

// Update applies one AdamW step: Adam on the gradient plus decoupled
// weight decay.
func (m *Model) Update(grad anydiff.Grad) {
	m.Steps++
	lr := float64(m.Config.LR)
	step := m.Optimizer.Transform(grad)
	decay := m.Creator.MakeNumeric(1 - lr*float64(m.Config.WeightDecay))
	for _, p := range m.Parameters() {
		p.Vector.Scale(decay)
	}
	step.Scale(m.Creator.MakeNumeric(-lr))
	step.AddToVars()
}

// TrainStep runs forward, backward and an optimizer update on one batch.
func (m *Model) TrainStep(inputs tensor.Tensor, labels []int) (Output, error) {
	if labels == nil {
		return Output{}, errors.New("training needs labels")
	}
	out, loss, err := m.Forward(inputs, labels)
	if err != nil {
		return Output{}, err
	}
	grad := anydiff.NewGrad(m.Parameters()...)
	loss.Propagate(m.Creator.MakeVectorData([]float32{1}), grad)
	m.Update(grad)
	return out, nil
}

// EvalStep computes loss and accuracy without touching the parameters.
func (m *Model) EvalStep(inputs tensor.Tensor, labels []int) (Output, error) {
	out, _, err := m.Forward(inputs, labels)
	return out, err
}
