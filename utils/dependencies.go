package utils

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

// DecodeTools are the binaries every video read goes through
var DecodeTools = []string{"ffprobe", "ffmpeg"}

// RequireTools checks that every named binary is in PATH and reports all
// missing ones at once.
func RequireTools(names ...string) error {
	var errs []error
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			errs = append(errs, fmt.Errorf("%s not found in PATH", name))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w. %s", errors.Join(errs...), installInstructions())
}

// ValidateFFmpegDependencies checks for ffprobe and ffmpeg
func ValidateFFmpegDependencies() error {
	return RequireTools(DecodeTools...)
}

func installInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Install with: brew install ffmpeg"
	case "linux":
		return "Install with: apt-get install ffmpeg (Ubuntu/Debian) or dnf install ffmpeg (Fedora)"
	case "windows":
		return "Download from https://ffmpeg.org/download.html and add to PATH"
	default:
		return "Download from https://ffmpeg.org/download.html"
	}
}
