package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/corona10/goimagehash"
	"github.com/lepinkainen/vidtrain/types"
	"github.com/lepinkainen/vidtrain/ucf101"
	"github.com/lepinkainen/vidtrain/ui"
	"github.com/lepinkainen/vidtrain/utils"
	"github.com/lepinkainen/vidtrain/video"
	"golang.org/x/sync/errgroup"
)

// LeakageCmd looks for test videos that are near duplicates of training
// videos. UCF101 groups clips cut from the same source video, so a fold
// whose splits share footage overstates accuracy.
type LeakageCmd struct {
	DatasetRoot    string `short:"r" name:"dataset-root" required:"" type:"existingdir" env:"VIDTRAIN_DATASET_ROOT" help:"Directory holding one subdirectory of videos per class"`
	AnnotationPath string `short:"a" name:"annotation-path" required:"" type:"existingdir" env:"VIDTRAIN_ANNOTATION_PATH" help:"Directory holding the train/test split lists"`
	Fold           int    `default:"1" env:"VIDTRAIN_FOLD" help:"Annotation fold (1-3)"`
	Threshold      int    `help:"Hamming distance threshold for similarity (0-64)" default:"10"`
	NumWorkers     int    `name:"num-workers" default:"0" env:"VIDTRAIN_NUM_WORKERS" help:"Videos hashed in parallel (0 picks one per CPU)"`
	Exclude        string `default:"leakage-exclude.txt" type:"path" help:"File the reviewed selection is exported to"`
	NoTUI          bool   `name:"no-tui" help:"Disable the interactive review and just list matches"`

	Reader video.Reader `kong:"-"`
	Out    io.Writer    `kong:"-"`
}

// hashedVideo is a video and the perceptual hash of its middle frame
type hashedVideo struct {
	Path string
	Hash *goimagehash.ImageHash
}

// Run executes the leakage command.
func (cmd *LeakageCmd) Run(appCtx *types.AppContext) error {
	logger := appCtx.Log()
	out := writerOrStdout(cmd.Out)
	fmt.Fprintln(out, ui.HeaderStyle.Render(fmt.Sprintf("vidtrain %s", appCtx.VersionOrDefault())))

	if cmd.Fold < 1 || cmd.Fold > 3 {
		return fmt.Errorf("fold should be between 1 and 3, got %d", cmd.Fold)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reader, err := openReader(cmd.Reader)
	if err != nil {
		return err
	}

	trainPaths, testPaths, err := ucf101.SplitVideos(cmd.DatasetRoot, cmd.AnnotationPath, cmd.Fold)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n", ui.InfoStyle.Render(fmt.Sprintf("Calculating perceptual hashes for %d train and %d test videos...", len(trainPaths), len(testPaths))))

	workers := cmd.NumWorkers
	if workers <= 0 {
		workers = utils.DefaultWorkers(cmd.DatasetRoot)
	}
	train, err := hashVideos(ctx, reader, trainPaths, workers, out, "Hashing train")
	if err != nil {
		return err
	}
	test, err := hashVideos(ctx, reader, testPaths, workers, out, "Hashing test")
	if err != nil {
		return err
	}
	for _, skipped := range []int{len(trainPaths) - len(train), len(testPaths) - len(test)} {
		if skipped > 0 {
			logger.Warn("videos skipped after hashing errors", "count", skipped)
		}
	}

	fmt.Fprintf(out, "\n%s\n", ui.InfoStyle.Render(fmt.Sprintf("Comparing %d test videos against %d train videos (threshold: %d):", len(test), len(train), cmd.Threshold)))
	groups, err := findLeaks(train, test, cmd.Threshold)
	if err != nil {
		return err
	}

	if len(groups) == 0 {
		fmt.Fprintf(out, "%s\n", ui.SuccessStyle.Render("✅ No test video has a near duplicate in the training split"))
		return nil
	}

	if cmd.NoTUI {
		for _, g := range groups {
			fmt.Fprintf(out, "\n🎯 %s\n", g.TestVideo)
			for _, m := range g.Matches {
				fmt.Fprintf(out, "  ↔ %s (distance %d)\n", m.Path, m.Distance)
			}
		}
		fmt.Fprintf(out, "\n%s\n", ui.WarningStyle.Render(fmt.Sprintf("⚠️  %d of %d test videos have near duplicates in the training split", len(groups), len(test))))
		return nil
	}

	p := tea.NewProgram(ui.NewLeakageModel(groups, cmd.Exclude), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// hashVideos hashes paths with up to workers goroutines. Videos that fail
// to hash are reported and left out; the result keeps the input order.
func hashVideos(ctx context.Context, r video.Reader, paths []string, workers int, out io.Writer, label string) ([]hashedVideo, error) {
	hashes := make([]*goimagehash.ImageHash, len(paths))
	failures := make([]error, len(paths))

	bar := ui.NewCountProgress(out, label)
	bar.Start()

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, path := range paths {
		g.Go(func() error {
			hashes[i], failures[i] = video.PerceptualHash(gctx, r, path)
			if err := gctx.Err(); err != nil {
				return err
			}
			mu.Lock()
			done++
			bar.Update(done, len(paths))
			mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	bar.Stop()
	if err != nil {
		return nil, err
	}

	var result []hashedVideo
	for i, path := range paths {
		if failures[i] != nil {
			fmt.Fprintf(out, "%s\n", ui.ErrorStyle.Render(fmt.Sprintf("❌ Error calculating perceptual hash for %s: %v", path, failures[i])))
			continue
		}
		result = append(result, hashedVideo{Path: path, Hash: hashes[i]})
	}
	return result, nil
}

// findLeaks pairs every test video with the training videos within
// threshold of it. Test videos without a match are left out.
func findLeaks(train, test []hashedVideo, threshold int) ([]ui.LeakGroup, error) {
	var groups []ui.LeakGroup
	for _, tv := range test {
		group := ui.LeakGroup{TestVideo: tv.Path}
		for _, tr := range train {
			distance, err := tv.Hash.Distance(tr.Hash)
			if err != nil {
				return nil, fmt.Errorf("comparing %s and %s: %w", tv.Path, tr.Path, err)
			}
			if distance <= threshold {
				group.Matches = append(group.Matches, ui.Match{Path: tr.Path, Distance: distance})
			}
		}
		if len(group.Matches) > 0 {
			groups = append(groups, group)
		}
	}
	return groups, nil
}
