//go:build linux

package dispatch

import (
	"os"

	"golang.org/x/sys/unix"
)

// fdatasync flushes data but not metadata, per fsync's datasync flag in
// §4.2. Linux exposes this as a distinct syscall; other platforms fall
// back to a full sync (see fdatasync_other.go).
func fdatasync(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
