// Package ucf101 indexes the UCF101 action recognition dataset into
// fixed-length clips and serves them with their class labels.
package ucf101

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lepinkainen/vidtrain/video"
)

// VideoExtension is the container format the dataset ships in
const VideoExtension = ".avi"

// Sample is one video of the dataset with its class label
type Sample struct {
	Path  string
	Label int
}

// FindClasses returns the sorted class directory names under root.
func FindClasses(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset root: %w", err)
	}
	var classes []string
	for _, e := range entries {
		if e.IsDir() {
			classes = append(classes, e.Name())
		}
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("couldn't find any class folder in %s", root)
	}
	slices.Sort(classes)
	return classes, nil
}

// MakeDataset lists every video of every class, grouped by class in
// class order.
func MakeDataset(root string, classes []string) ([]Sample, error) {
	var samples []Sample
	for label, class := range classes {
		files, err := video.FindVideoFiles(filepath.Join(root, class), VideoExtension)
		if err != nil {
			return nil, fmt.Errorf("failed to list class %s: %w", class, err)
		}
		for _, f := range files {
			samples = append(samples, Sample{Path: f, Label: label})
		}
	}
	return samples, nil
}

// FoldFile returns the annotation file name of a split, e.g. trainlist01.txt.
func FoldFile(annotationPath string, fold int, train bool) string {
	name := "test"
	if train {
		name = "train"
	}
	return filepath.Join(annotationPath, fmt.Sprintf("%slist%02d.txt", name, fold))
}

// ReadFold reads the video paths listed in a fold file. Only the first
// token of each line is used; the train lists also carry a label.
func ReadFold(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fold file: %w", err)
	}
	defer f.Close()

	selected := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		selected[filepath.ToSlash(fields[0])] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fold file %s: %w", path, err)
	}
	return selected, nil
}

// selectFold returns the indices of the samples listed in the fold
func selectFold(root string, samples []Sample, selected map[string]struct{}) []int {
	var indices []int
	for i, s := range samples {
		rel, err := filepath.Rel(root, s.Path)
		if err != nil {
			continue
		}
		if _, ok := selected[filepath.ToSlash(rel)]; ok {
			indices = append(indices, i)
		}
	}
	return indices
}

// SplitVideos returns the video paths in the train and test lists of a
// fold, without probing anything.
func SplitVideos(root, annotationPath string, fold int) (train, test []string, err error) {
	classes, err := FindClasses(root)
	if err != nil {
		return nil, nil, err
	}
	samples, err := MakeDataset(root, classes)
	if err != nil {
		return nil, nil, err
	}

	split := func(isTrain bool) ([]string, error) {
		selected, err := ReadFold(FoldFile(annotationPath, fold, isTrain))
		if err != nil {
			return nil, err
		}
		var paths []string
		for _, i := range selectFold(root, samples, selected) {
			paths = append(paths, samples[i].Path)
		}
		return paths, nil
	}
	if train, err = split(true); err != nil {
		return nil, nil, err
	}
	if test, err = split(false); err != nil {
		return nil, nil, err
	}
	return train, test, nil
}

// Options configures a Dataset
type Options struct {
	Root           string
	AnnotationPath string
	Fold           int
	Train          bool
	Clips          ClipOptions
	Workers        int

	// Precomputed skips probing when set. It must describe the full video
	// list under Root; it is trusted as is.
	Precomputed *Metadata

	Reader  video.Reader
	OnProbe func(done, total int)
}

// Dataset is one split (train or test) of one fold of UCF101
type Dataset struct {
	Classes []string
	Samples []Sample
	// Indices are the positions in Samples of the videos in this split
	Indices []int

	full  *VideoClips
	clips *VideoClips
}

// New discovers classes and videos under Root, indexes clips (or reuses
// Precomputed) and narrows them to the requested fold and split.
func New(ctx context.Context, opts Options) (*Dataset, error) {
	if opts.Fold < 1 || opts.Fold > 3 {
		return nil, fmt.Errorf("fold should be between 1 and 3, got %d", opts.Fold)
	}
	if opts.Reader == nil {
		return nil, errors.New("no video reader configured")
	}

	classes, err := FindClasses(opts.Root)
	if err != nil {
		return nil, err
	}
	samples, err := MakeDataset(opts.Root, classes)
	if err != nil {
		return nil, err
	}

	var meta Metadata
	if opts.Precomputed != nil {
		meta = *opts.Precomputed
	} else {
		paths := make([]string, len(samples))
		for i, s := range samples {
			paths[i] = s.Path
		}
		meta, err = BuildMetadata(ctx, opts.Reader, paths, opts.Workers, opts.OnProbe)
		if err != nil {
			return nil, err
		}
	}

	full, err := NewVideoClips(opts.Reader, meta, opts.Clips)
	if err != nil {
		return nil, err
	}

	selected, err := ReadFold(FoldFile(opts.AnnotationPath, opts.Fold, opts.Train))
	if err != nil {
		return nil, err
	}
	indices := selectFold(opts.Root, samples, selected)

	clips, err := full.Subset(indices)
	if err != nil {
		return nil, fmt.Errorf("metadata does not cover the dataset: %w", err)
	}

	return &Dataset{
		Classes: classes,
		Samples: samples,
		Indices: indices,
		full:    full,
		clips:   clips,
	}, nil
}

// Metadata returns the metadata of the full video list, not just this
// split. This is what gets cached.
func (d *Dataset) Metadata() Metadata {
	return d.full.Metadata()
}

// Clips returns the clip index of this split.
func (d *Dataset) Clips() *VideoClips {
	return d.clips
}

// Len returns the number of clips in this split.
func (d *Dataset) Len() int {
	return d.clips.NumClips()
}

// GetClip implements ClipSource.
func (d *Dataset) GetClip(ctx context.Context, idx int) (video.Frames, int, error) {
	return d.clips.GetClip(ctx, idx)
}

// Label implements ClipSource. videoIdx is relative to this split.
func (d *Dataset) Label(videoIdx int) int {
	return d.Samples[d.Indices[videoIdx]].Label
}
