package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lepinkainen/vidtrain/data"
	"github.com/lepinkainen/vidtrain/model"
	"github.com/lepinkainen/vidtrain/trainer"
	"github.com/lepinkainen/vidtrain/transforms"
	"github.com/lepinkainen/vidtrain/types"
	"github.com/lepinkainen/vidtrain/ucf101"
	"github.com/lepinkainen/vidtrain/ui"
	"github.com/lepinkainen/vidtrain/video"
)

// sampleFraction is the share of each split drawn per epoch
const sampleFraction = 10

// TrainCmd trains the classifier on one fold of UCF101 and writes the
// final checkpoint to Output.
type TrainCmd struct {
	DatasetFlags `embed:""`

	NumClasses    int    `name:"num-classes" default:"101" env:"VIDTRAIN_NUM_CLASSES" help:"Number of action classes"`
	BatchSize     int    `short:"b" name:"batch-size" default:"32" env:"VIDTRAIN_BATCH_SIZE" help:"Clips per batch"`
	VideoSize     []int  `short:"v" name:"video-size" default:"224,224" env:"VIDTRAIN_VIDEO_SIZE" help:"Spatial size of the clips fed to the model (h,w or a single side)"`
	Interpolation string `default:"bilinear" enum:"bilinear,nearest,bicubic,lanczos3,mitchell" env:"VIDTRAIN_INTERPOLATION" help:"Interpolation used when resizing clips"`
	MaxEpochs     int    `name:"max-epochs" default:"5" env:"VIDTRAIN_MAX_EPOCHS" help:"Epochs to train"`
	FastDevRun    bool   `name:"fast-dev-run" env:"VIDTRAIN_FAST_DEV_RUN" help:"Run a single train and validation batch to check the pipeline"`
	Seed          uint64 `default:"42" env:"VIDTRAIN_SEED" help:"Seed for sampling, augmentation and initialization"`

	NumLayers int     `name:"num-layers" default:"4" help:"Residual MLP blocks"`
	NumHeads  int     `name:"num-heads" default:"12" help:"Attention heads the hidden size is split into"`
	HiddenDim int     `name:"hidden-dim" default:"768" help:"Token embedding size"`
	MLPDim    int     `name:"mlp-dim" default:"3072" help:"Inner size of each MLP block"`
	LR        float32 `name:"lr" default:"1e-4" help:"AdamW learning rate"`

	Weights  string `type:"existingfile" env:"VIDTRAIN_WEIGHTS" help:"Checkpoint to initialize the model weights from"`
	Output   string `short:"o" default:"./models/tubevit_ucf101.ckpt" type:"path" env:"VIDTRAIN_OUTPUT" help:"Where the trained checkpoint is written"`
	TUI      bool   `name:"tui" help:"Show an interactive training dashboard"`
	LogEvery int    `name:"log-every" default:"10" help:"Log the training loss every N steps (0 disables)"`

	// Reader decodes videos; nil uses ffmpeg.
	Reader video.Reader `kong:"-"`
	// Out receives progress output; nil uses stdout.
	Out io.Writer `kong:"-"`
}

// Run executes the whole pipeline: datasets, loaders, model, fit and
// checkpoint.
func (cmd *TrainCmd) Run(appCtx *types.AppContext) error {
	logger := appCtx.Log()
	out := writerOrStdout(cmd.Out)
	fmt.Fprintln(out, ui.HeaderStyle.Render(fmt.Sprintf("vidtrain %s", appCtx.VersionOrDefault())))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reader, err := openReader(cmd.Reader)
	if err != nil {
		return err
	}

	rng := transforms.NewRand(cmd.Seed)
	trainTransform, valTransform, err := buildTransforms(cmd.VideoSize, cmd.Interpolation, rng)
	if err != nil {
		return err
	}
	logger.Debug("transforms", "train", trainTransform, "val", valTransform)

	trainSet, err := loadSplit(ctx, logger, out, cmd.DatasetFlags, true, reader)
	if err != nil {
		return err
	}
	valSet, err := loadSplit(ctx, logger, out, cmd.DatasetFlags, false, reader)
	if err != nil {
		return err
	}

	trainLoader := cmd.newLoader(trainSet, trainTransform, cmd.Seed)
	valLoader := cmd.newLoader(valSet, valTransform, cmd.Seed+1)

	first, err := trainLoader.First(ctx)
	if err != nil {
		return fmt.Errorf("failed to load a sample batch: %w", err)
	}
	videoShape := first.Inputs.Shape()[1:]

	m, err := cmd.buildModel(videoShape)
	if err != nil {
		return err
	}
	logger.Info("model ready",
		"video_shape", fmt.Sprint(videoShape),
		"tokens", m.Tokenizer.NumTokens(),
		"parameters", m.NumParameters())

	cfg := trainer.DefaultConfig()
	cfg.MaxEpochs = cmd.MaxEpochs
	cfg.FastDevRun = cmd.FastDevRun

	var t *trainer.Trainer
	if cmd.TUI {
		t, err = fitWithTUI(ctx, cfg, m, trainLoader, valLoader, appCtx.VersionOrDefault())
	} else {
		t = trainer.New(cfg, &trainer.LogCallback{Logger: logger, Every: cmd.LogEvery}, trainer.NewProgressCallback(out))
		err = t.Fit(ctx, m, trainLoader, valLoader)
	}
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	if err := t.SaveCheckpoint(cmd.Output); err != nil {
		return err
	}
	logger.Info("checkpoint saved", "path", cmd.Output)
	fmt.Fprintf(out, "\n%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ Training complete, checkpoint written to %s", cmd.Output)))
	return nil
}

// buildTransforms returns the augmenting train pipeline and the
// deterministic evaluation pipeline
func buildTransforms(size []int, mode string, rng *transforms.Rand) (train, val transforms.Compose, err error) {
	crop, err := transforms.NewRandomResizedCropVideo(size, rng)
	if err != nil {
		return nil, nil, err
	}
	crop.Mode = mode
	resize, err := transforms.NewResizedVideo(size, mode)
	if err != nil {
		return nil, nil, err
	}

	train = transforms.Compose{
		transforms.ToTensorVideo{},
		transforms.NewRandomHorizontalFlipVideo(rng),
		crop,
	}
	val = transforms.Compose{
		transforms.ToTensorVideo{},
		resize,
	}
	return train, val, nil
}

// newLoader draws a tenth of the split per epoch, without replacement
func (cmd *TrainCmd) newLoader(ds *ucf101.Dataset, transform transforms.Transform, seed uint64) *data.Loader {
	n := ds.Len()
	return &data.Loader{
		Dataset:   &ucf101.LabeledClips{Source: ds, Transform: transform},
		Sampler:   data.NewRandomSampler(n, n/sampleFraction, seed),
		BatchSize: cmd.BatchSize,
		Workers:   cmd.NumWorkers,
		DropLast:  true,
	}
}

func (cmd *TrainCmd) buildModel(videoShape []int) (*model.Model, error) {
	cfg := model.DefaultConfig(cmd.NumClasses, videoShape)
	cfg.NumLayers = cmd.NumLayers
	cfg.NumHeads = cmd.NumHeads
	cfg.HiddenDim = cmd.HiddenDim
	cfg.MLPDim = cmd.MLPDim
	cfg.LR = cmd.LR
	cfg.Seed = cmd.Seed

	m, err := model.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid model configuration: %w", err)
	}
	if cmd.Weights != "" {
		if err := m.LoadWeights(cmd.Weights); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// fitWithTUI runs Fit in the background while the dashboard owns the
// terminal. Quitting the dashboard cancels training.
func fitWithTUI(ctx context.Context, cfg trainer.Config, m trainer.Module, train, val trainer.Loader, version string) (*trainer.Trainer, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	maxEpochs := cfg.MaxEpochs
	if cfg.FastDevRun {
		maxEpochs = 1
	}
	p := tea.NewProgram(ui.NewTrainingModel(maxEpochs, version, cancel), tea.WithAltScreen())
	t := trainer.New(cfg, ui.TrainingCallback{Program: p})

	fitErr := make(chan error, 1)
	go func() {
		err := t.Fit(ctx, m, train, val)
		p.Send(ui.FitDoneMsg{State: t.State(), Err: err})
		fitErr <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-fitErr
		return nil, fmt.Errorf("dashboard failed: %w", err)
	}
	cancel()
	if err := <-fitErr; err != nil {
		return nil, err
	}
	return t, nil
}

