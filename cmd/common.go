package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/lepinkainen/vidtrain/ucf101"
	"github.com/lepinkainen/vidtrain/ui"
	"github.com/lepinkainen/vidtrain/utils"
	"github.com/lepinkainen/vidtrain/video"
)

// DatasetFlags locate UCF101 on disk and describe how its videos are cut
// into clips
type DatasetFlags struct {
	DatasetRoot      string  `short:"r" name:"dataset-root" required:"" type:"existingdir" env:"VIDTRAIN_DATASET_ROOT" help:"Directory holding one subdirectory of videos per class"`
	AnnotationPath   string  `short:"a" name:"annotation-path" required:"" type:"existingdir" env:"VIDTRAIN_ANNOTATION_PATH" help:"Directory holding the train/test split lists"`
	Fold             int     `default:"1" env:"VIDTRAIN_FOLD" help:"Annotation fold (1-3)"`
	FramesPerClip    int     `short:"f" name:"frames-per-clip" default:"32" env:"VIDTRAIN_FRAMES_PER_CLIP" help:"Frames in each clip"`
	StepBetweenClips int     `name:"step-between-clips" default:"1" env:"VIDTRAIN_STEP_BETWEEN_CLIPS" help:"Frames between the starts of consecutive clips"`
	FrameRate        float64 `name:"frame-rate" default:"0" env:"VIDTRAIN_FRAME_RATE" help:"Resample every video to this frame rate (0 keeps the original)"`
	CacheDir         string  `name:"cache-dir" default:"." type:"path" env:"VIDTRAIN_CACHE_DIR" help:"Directory for the metadata caches"`
	NumWorkers       int     `name:"num-workers" default:"0" env:"VIDTRAIN_NUM_WORKERS" help:"Worker goroutines for probing and sample loading (0 loads samples inline and probes with one worker per CPU)"`
}

func (f DatasetFlags) clipOptions() ucf101.ClipOptions {
	return ucf101.ClipOptions{
		FramesPerClip:    f.FramesPerClip,
		StepBetweenClips: f.StepBetweenClips,
		FrameRate:        f.FrameRate,
	}
}

// probeWorkers falls back to one probe per CPU, or a single one when the
// dataset is on a network drive
func (f DatasetFlags) probeWorkers() int {
	if f.NumWorkers > 0 {
		return f.NumWorkers
	}
	return utils.DefaultWorkers(f.DatasetRoot)
}

func (f DatasetFlags) options(train bool, r video.Reader) ucf101.Options {
	return ucf101.Options{
		Root:           f.DatasetRoot,
		AnnotationPath: f.AnnotationPath,
		Fold:           f.Fold,
		Train:          train,
		Clips:          f.clipOptions(),
		Workers:        f.probeWorkers(),
		Reader:         r,
	}
}

func splitName(train bool) string {
	if train {
		return "train"
	}
	return "val"
}

// openReader returns r when set, otherwise the ffmpeg reader once the
// binaries it needs are found
func openReader(r video.Reader) (video.Reader, error) {
	if r != nil {
		return r, nil
	}
	if err := utils.ValidateFFmpegDependencies(); err != nil {
		return nil, err
	}
	return video.FFmpegReader{}, nil
}

func writerOrStdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

// loadSplit reads the split's metadata cache, or probes every video and
// writes the cache when there is none
func loadSplit(ctx context.Context, logger *log.Logger, out io.Writer, f DatasetFlags, train bool, r video.Reader) (*ucf101.Dataset, error) {
	if err := os.MkdirAll(f.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	path := ucf101.CacheFile(f.CacheDir, train)
	opts := f.options(train, r)

	var bar *ui.CountProgress
	if _, err := os.Stat(path); err != nil {
		logger.Info("no metadata cache, probing videos", "split", splitName(train), "workers", opts.Workers)
		bar = ui.NewCountProgress(out, fmt.Sprintf("Indexing %s videos", splitName(train)))
		opts.OnProbe = bar.Update
		bar.Start()
	}

	ds, cached, err := ucf101.LoadOrBuild(ctx, path, opts)
	if bar != nil {
		bar.Stop()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s split: %w", splitName(train), err)
	}

	if cached {
		logger.Info("loaded metadata cache", "split", splitName(train), "path", path)
	} else {
		logger.Info("wrote metadata cache", "split", splitName(train), "path", path)
	}
	logger.Info("dataset ready",
		"split", splitName(train),
		"classes", len(ds.Classes),
		"videos", len(ds.Indices),
		"clips", ds.Len())
	return ds, nil
}
