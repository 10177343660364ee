package video

import (
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
)

// FindVideoFiles scans a directory recursively for files with the given
// extensions (e.g. ".avi"). With no extensions every known video type
// matches. The result is sorted.
func FindVideoFiles(directory string, exts ...string) ([]string, error) {
	var files []string
	var err error

	// Use fd if available for better performance, otherwise fall back to filepath.WalkDir
	if isFdAvailable() {
		files, err = findFilesWithFd(directory, exts)
		if err != nil {
			// If fd fails, fall back to the standard method
			files, err = findFilesWithWalkDir(directory, exts)
		}
	} else {
		files, err = findFilesWithWalkDir(directory, exts)
	}
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

// isFdAvailable checks if the 'fd' command is available in PATH
func isFdAvailable() bool {
	_, err := exec.LookPath("fd")
	return err == nil
}

func matches(path string, exts []string) bool {
	if len(exts) == 0 {
		return IsVideoFile(path)
	}
	return HasExtension(path, exts...)
}

// findFilesWithWalkDir uses filepath.WalkDir to find video files (fallback method)
func findFilesWithWalkDir(directory string, exts []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(directory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		if matches(path, exts) {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

// findFilesWithFd uses the 'fd' command to efficiently find video files
func findFilesWithFd(directory string, exts []string) ([]string, error) {
	args := []string{"--type", "f", "--no-ignore", "--hidden"}
	for _, ext := range exts {
		args = append(args, "--extension", strings.TrimPrefix(ext, "."))
	}
	args = append(args, ".", directory)

	output, err := exec.Command("fd", args...).Output()
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if line != "" && matches(line, exts) {
			files = append(files, filepath.Clean(line))
		}
	}

	return files, nil
}
