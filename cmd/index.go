package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/lepinkainen/vidtrain/types"
	"github.com/lepinkainen/vidtrain/ucf101"
	"github.com/lepinkainen/vidtrain/ui"
	"github.com/lepinkainen/vidtrain/video"
	"golang.org/x/sync/errgroup"
)

// IndexCmd builds the train and validation metadata caches without
// training, optionally checking every video for corruption first.
type IndexCmd struct {
	DatasetFlags `embed:""`

	Validate bool `help:"Check every video with ffprobe before indexing"`

	Reader video.Reader `kong:"-"`
	// Validator checks a single video; nil uses ffprobe.
	Validator func(ctx context.Context, path string) error `kong:"-"`
	Out       io.Writer                                    `kong:"-"`
}

// Run executes the index command.
func (cmd *IndexCmd) Run(appCtx *types.AppContext) error {
	logger := appCtx.Log()
	out := writerOrStdout(cmd.Out)
	fmt.Fprintln(out, ui.HeaderStyle.Render(fmt.Sprintf("vidtrain %s", appCtx.VersionOrDefault())))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reader, err := openReader(cmd.Reader)
	if err != nil {
		return err
	}

	if cmd.Validate {
		if err := cmd.validateVideos(ctx, out); err != nil {
			return err
		}
	}

	for _, train := range []bool{true, false} {
		ds, err := loadSplit(ctx, logger, out, cmd.DatasetFlags, train, reader)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n", ui.InfoStyle.Render(fmt.Sprintf("%s: %d videos, %d clips of %d frames",
			splitName(train), len(ds.Indices), ds.Len(), cmd.FramesPerClip)))
	}

	fmt.Fprintf(out, "\n%s\n", ui.SuccessStyle.Render("✅ Metadata caches ready."))
	return nil
}

// validateVideos checks every video under the dataset root and reports
// all failures before returning an error
func (cmd *IndexCmd) validateVideos(ctx context.Context, out io.Writer) error {
	validate := cmd.Validator
	if validate == nil {
		validate = video.ValidateVideoIntegrity
	}

	files, err := video.FindVideoFiles(cmd.DatasetRoot, ucf101.VideoExtension)
	if err != nil {
		return fmt.Errorf("failed to list videos: %w", err)
	}
	fmt.Fprintf(out, "%s\n", ui.InfoStyle.Render(fmt.Sprintf("Validating %d videos...", len(files))))

	bar := ui.NewCountProgress(out, "Validating")
	bar.Start()

	var (
		mu       sync.Mutex
		done     int
		failures = make(map[string]error)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cmd.probeWorkers())
	for _, file := range files {
		g.Go(func() error {
			err := validate(gctx, file)
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[file] = err
			}
			done++
			bar.Update(done, len(files))
			return nil
		})
	}
	err = g.Wait()
	bar.Stop()
	if err != nil {
		return err
	}

	for _, file := range files {
		if ferr, ok := failures[file]; ok {
			fmt.Fprintf(out, "%s\n", ui.ErrorStyle.Render(fmt.Sprintf("❌ %s: %v", file, ferr)))
		}
	}
	fmt.Fprintf(out, "%s\n", ui.InfoStyle.Render(fmt.Sprintf("✅ Valid: %d, ❌ Failed: %d", len(files)-len(failures), len(failures))))
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d videos failed validation", len(failures), len(files))
	}
	return nil
}
