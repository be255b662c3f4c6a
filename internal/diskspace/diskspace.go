// Package diskspace reports when a filesystem is short of free space; the
// service runs it once at startup against the temp directory and only logs
// a warning when it fails.
package diskspace

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CheckFree returns an error if the filesystem holding path has less than
// minGB of free space available to unprivileged writers.
func CheckFree(path string, minGB int) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Errorf("statfs %s: %w", path, err)
	}

	availableGB := float64(stat.Bavail*uint64(stat.Bsize)) / (1024 * 1024 * 1024)
	if availableGB < float64(minGB) {
		return fmt.Errorf("insufficient disk space at %s: %.2f GB available, %d GB required", path, availableGB, minGB)
	}
	return nil
}
