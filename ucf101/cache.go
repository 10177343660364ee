package ucf101

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	cacheMagic   uint32 = 0x55434631 // "UCF1"
	cacheVersion uint32 = 1
)

// ErrBadCache is returned for a cache file that cannot be decoded
var ErrBadCache = errors.New("bad metadata cache")

// CacheFile returns the cache path of a split inside dir.
func CacheFile(dir string, train bool) string {
	if train {
		return filepath.Join(dir, "ucf101-train-meta.gob")
	}
	return filepath.Join(dir, "ucf101-val-meta.gob")
}

// SaveMetadata writes the metadata through a temporary file and a rename.
func SaveMetadata(path string, m Metadata) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := binary.Write(w, binary.LittleEndian, [2]uint32{cacheMagic, cacheVersion}); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache header: %w", err)
	}
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move cache into place: %w", err)
	}
	return nil
}

// LoadMetadata reads a cache written by SaveMetadata.
func LoadMetadata(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var header [2]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return Metadata{}, fmt.Errorf("%w: %s: %v", ErrBadCache, path, err)
	}
	if header[0] != cacheMagic {
		return Metadata{}, fmt.Errorf("%w: %s: bad magic number", ErrBadCache, path)
	}
	if header[1] != cacheVersion {
		return Metadata{}, fmt.Errorf("%w: %s: unsupported version %d", ErrBadCache, path, header[1])
	}

	var m Metadata
	if err := gob.NewDecoder(r).Decode(&m); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Metadata{}, fmt.Errorf("%w: %s: truncated", ErrBadCache, path)
		}
		return Metadata{}, fmt.Errorf("%w: %s: %v", ErrBadCache, path, err)
	}
	if err := m.validate(); err != nil {
		return Metadata{}, fmt.Errorf("%w: %s: %v", ErrBadCache, path, err)
	}
	return m, nil
}

// LoadOrBuild constructs the dataset from the cache at path when it
// exists. Otherwise it probes every video and writes the cache right
// away. An existing cache is never checked against the videos on disk.
func LoadOrBuild(ctx context.Context, path string, opts Options) (ds *Dataset, cached bool, err error) {
	meta, err := LoadMetadata(path)
	switch {
	case err == nil:
		opts.Precomputed = &meta
		cached = true
	case errors.Is(err, os.ErrNotExist):
		opts.Precomputed = nil
	default:
		return nil, false, err
	}

	ds, err = New(ctx, opts)
	if err != nil {
		return nil, cached, err
	}

	if !cached {
		if err := SaveMetadata(path, ds.Metadata()); err != nil {
			return nil, false, err
		}
	}
	return ds, cached, nil
}
