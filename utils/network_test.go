package utils

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNetworkDrive(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"UNC forward slashes", "//server/share/ucf101", true},
		{"UNC backslashes", `\\server\share\ucf101`, true},
		{"Linux mount", "/mnt/nas/UCF-101", true},
		{"Removable media", "/media/usb/UCF-101", true},
		{"macOS volume", "/Volumes/Data/UCF-101", true},
		{"NFS in path", "/srv/nfs/UCF-101", true},
		{"Local path", "/home/user/datasets/UCF-101", false},
		{"Relative path", "UCF-101", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.name == "Relative path" && IsNetworkDrive(".") {
				t.Skip("working directory is on a network mount")
			}
			assert.Equal(t, tt.want, IsNetworkDrive(tt.path))
		})
	}
}

func TestDefaultWorkers(t *testing.T) {
	assert.Equal(t, 1, DefaultWorkers("/home/user/UCF-101", "/mnt/nas/ucfTrainTestlist"))
	assert.Equal(t, runtime.NumCPU(), DefaultWorkers("/home/user/UCF-101", "/home/user/ucfTrainTestlist"))
	assert.Equal(t, runtime.NumCPU(), DefaultWorkers())
}
