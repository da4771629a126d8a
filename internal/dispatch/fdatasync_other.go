//go:build !linux

package dispatch

import "os"

// fdatasync falls back to a full fsync on platforms without a distinct
// fdatasync syscall.
func fdatasync(f *os.File) error {
	return f.Sync()
}
