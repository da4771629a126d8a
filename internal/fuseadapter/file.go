package fuseadapter

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/mergefs/mergefs/internal/handletable"
)

// File is the FUSE file handle for one OpenHandle: it just carries the
// handle value and forwards every call to the Dispatcher.
type File struct {
	root   *Root
	handle handletable.Handle
}

var (
	_ fs.FileReader   = (*File)(nil)
	_ fs.FileWriter   = (*File)(nil)
	_ fs.FileFlusher  = (*File)(nil)
	_ fs.FileFsyncer  = (*File)(nil)
	_ fs.FileReleaser = (*File)(nil)
)

func (f *File) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := f.root.fs.Read(f.handle, dest, off)
	if err != nil {
		return nil, errno(err)
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (f *File) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := f.root.fs.Write(f.handle, data, off)
	if err != nil {
		return 0, errno(err)
	}
	return uint32(n), 0
}

func (f *File) Flush(ctx context.Context) syscall.Errno {
	return errno(f.root.fs.Flush(f.handle))
}

func (f *File) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	const datasyncFlag = 1
	return errno(f.root.fs.Fsync(f.handle, flags&datasyncFlag != 0))
}

func (f *File) Release(ctx context.Context) syscall.Errno {
	return errno(f.root.fs.Release(f.handle))
}
