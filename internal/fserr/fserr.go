// Package fserr is the Error Mapper: it translates the Go errors produced
// by backing-filesystem syscalls (and by the Resolver's own failure modes)
// into the POSIX errno values the kernel bridge relays to the client.
//
// This is the only package in the engine that constructs a syscall.Errno
// from scratch; every other package returns ordinary Go errors (wrapped
// with %w) and lets fserr.Errno classify them at the boundary.
package fserr

import (
	"errors"
	"io/fs"
	"syscall"

	"github.com/mergefs/mergefs/internal/pathresolve"
)

// Sentinel errors for conditions that have no natural os/io/fs
// counterpart: the link/rename target-synthesis constraint from §4.5/§4.6.
var (
	// ErrCrossRoot is returned when a resolved rename/link target set is
	// not a subset of the resolved source set.
	ErrCrossRoot = errors.New("fserr: target root not among source roots")
)

// Errno classifies err into the errno value the bridge should report.
// A nil error maps to 0 (success, syscall.Errno's zero value).
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}

	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, ErrCrossRoot), errors.Is(err, pathresolve.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, fs.ErrExist):
		return syscall.EEXIST
	case errors.Is(err, fs.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, fs.ErrInvalid):
		return syscall.EINVAL
	case errors.Is(err, syscall.ENOTDIR):
		return syscall.ENOTDIR
	case errors.Is(err, syscall.EISDIR):
		return syscall.EISDIR
	case errors.Is(err, syscall.ENOSYS):
		return syscall.ENOSYS
	default:
		return syscall.EIO
	}
}
