package ucf101

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lepinkainen/vidtrain/ucf101/ucf101test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheFile(t *testing.T) {
	assert.Equal(t, filepath.Join("d", "ucf101-train-meta.gob"), CacheFile("d", true))
	assert.Equal(t, filepath.Join("d", "ucf101-val-meta.gob"), CacheFile("d", false))
}

func TestMetadataRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.gob")
	want := Metadata{
		VideoPaths:       []string{"/a/x.avi", "/a/y.avi"},
		VideoFrameCounts: []int{164, 90},
		VideoFPS:         []float64{25, 29.97},
	}
	require.NoError(t, SaveMetadata(path, want))

	got, err := LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadMetadata_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadMetadata(filepath.Join(dir, "missing.gob"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	garbage := filepath.Join(dir, "garbage.gob")
	require.NoError(t, os.WriteFile(garbage, []byte("definitely not a cache"), 0644))
	_, err = LoadMetadata(garbage)
	assert.ErrorIs(t, err, ErrBadCache)

	empty := filepath.Join(dir, "empty.gob")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = LoadMetadata(empty)
	assert.ErrorIs(t, err, ErrBadCache)

	good := filepath.Join(dir, "good.gob")
	require.NoError(t, SaveMetadata(good, Metadata{
		VideoPaths:       []string{"a.avi"},
		VideoFrameCounts: []int{1},
		VideoFPS:         []float64{1},
	}))
	data, err := os.ReadFile(good)
	require.NoError(t, err)
	truncated := filepath.Join(dir, "truncated.gob")
	require.NoError(t, os.WriteFile(truncated, data[:len(data)-5], 0644))
	_, err = LoadMetadata(truncated)
	assert.ErrorIs(t, err, ErrBadCache)
}

func TestLoadOrBuild(t *testing.T) {
	l := ucf101test.Write(t, t.TempDir(), testClasses, 4)
	cachePath := CacheFile(t.TempDir(), true)

	r := newTestReader()
	first, cached, err := LoadOrBuild(context.Background(), cachePath, testOptions(l, r, true))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, len(l.Videos), r.Probes())
	assert.FileExists(t, cachePath)

	// second run reads the cache and probes nothing
	r2 := newTestReader()
	second, cached, err := LoadOrBuild(context.Background(), cachePath, testOptions(l, r2, true))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 0, r2.Probes())
	assert.Equal(t, first.Len(), second.Len())
	assert.Equal(t, first.Metadata(), second.Metadata())
}

func TestLoadOrBuild_CacheIsTrusted(t *testing.T) {
	l := ucf101test.Write(t, t.TempDir(), testClasses, 2)
	cachePath := CacheFile(t.TempDir(), false)

	// a cache whose frame counts disagree with the videos is used as is
	stale := Metadata{VideoPaths: l.Videos}
	for range l.Videos {
		stale.VideoFrameCounts = append(stale.VideoFrameCounts, 40)
		stale.VideoFPS = append(stale.VideoFPS, 25)
	}
	require.NoError(t, SaveMetadata(cachePath, stale))

	r := newTestReader()
	ds, cached, err := LoadOrBuild(context.Background(), cachePath, testOptions(l, r, false))
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 0, r.Probes())
	// 3 test videos, 40 frames each, 10 clips of 4 frames
	assert.Equal(t, 30, ds.Len())
}

func TestLoadOrBuild_CorruptCacheIsFatal(t *testing.T) {
	l := ucf101test.Write(t, t.TempDir(), testClasses, 2)
	cachePath := CacheFile(t.TempDir(), true)
	require.NoError(t, os.WriteFile(cachePath, []byte{1, 2, 3}, 0644))

	r := newTestReader()
	_, _, err := LoadOrBuild(context.Background(), cachePath, testOptions(l, r, true))
	assert.ErrorIs(t, err, ErrBadCache)
	assert.Equal(t, 0, r.Probes())
}
