package utils

import (
	"path/filepath"
	"runtime"
	"strings"
)

var (
	// mount points that usually hold NFS/SMB shares or removable media
	networkPrefixes = []string{"/mnt/", "/media/", "/Volumes/"}
	// filesystem names that show up in network mount paths
	networkIndicators = []string{"nfs", "cifs", "smb", "webdav", "ftp", "sftp"}
)

// IsNetworkDrive guesses from the path alone whether it lives on a
// network mount
func IsNetworkDrive(path string) bool {
	// UNC paths before filepath.Abs mangles them
	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, `\\`) {
		return true
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, prefix := range networkPrefixes {
		if strings.HasPrefix(abs, prefix) {
			return true
		}
	}
	lower := strings.ToLower(abs)
	for _, indicator := range networkIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// DefaultWorkers picks a worker count for reading videos under paths:
// one when any of them is on a network drive, otherwise one per CPU.
func DefaultWorkers(paths ...string) int {
	for _, p := range paths {
		if IsNetworkDrive(p) {
			return 1
		}
	}
	return runtime.NumCPU()
}
