package utils

import (
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireTools_Missing(t *testing.T) {
	err := RequireTools("vidtrain-no-such-tool-a", "vidtrain-no-such-tool-b")
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "vidtrain-no-such-tool-a not found in PATH")
	assert.Contains(t, msg, "vidtrain-no-such-tool-b not found in PATH")
	if !strings.Contains(msg, "Install with:") && !strings.Contains(msg, "Download from") {
		t.Errorf("Expected installation instructions, got: %v", msg)
	}
}

func TestRequireTools_None(t *testing.T) {
	assert.NoError(t, RequireTools())
}

func TestValidateFFmpegDependencies(t *testing.T) {
	ffmpegAvailable := exec.Command("ffmpeg", "-version").Run() == nil
	ffprobeAvailable := exec.Command("ffprobe", "-version").Run() == nil

	err := ValidateFFmpegDependencies()
	if ffmpegAvailable && ffprobeAvailable {
		assert.NoError(t, err)
		return
	}
	require.Error(t, err)
	if !ffprobeAvailable {
		assert.Contains(t, err.Error(), "ffprobe not found")
	}
	if !ffmpegAvailable {
		assert.Contains(t, err.Error(), "ffmpeg not found")
	}
}

func TestInstallInstructions(t *testing.T) {
	got := installInstructions()
	if got == "" {
		t.Fatal("Expected non-empty installation instructions")
	}
	if !strings.Contains(got, "ffmpeg") {
		t.Errorf("Expected instructions to mention ffmpeg, got: %s", got)
	}
}
