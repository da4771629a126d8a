package dispatch

import (
	"fmt"
	"os"

	"github.com/mergefs/mergefs/internal/fanout"
	"github.com/mergefs/mergefs/internal/handletable"
	"github.com/mergefs/mergefs/internal/pathresolve"
)

// openBacking opens one backing descriptor per resolved path, in reverse
// registry order, registers the resulting handle, and on any failure
// closes everything opened so far (in the reverse of the order it was
// opened) before returning the error — §4.2's create/open note.
func (fs *FS) openBacking(path string, flags int, mode os.FileMode, ensureDir bool) (handletable.Handle, error) {
	paths, err := fs.resolver.Resolve(path, true)
	if err != nil {
		return 0, err
	}

	var opened []handletable.Backing
	closeAll := func() {
		for i := len(opened) - 1; i >= 0; i-- {
			opened[i].File.Close()
		}
	}

	err = fanout.Do(paths, fanout.AllReverse, func(bp pathresolve.BackingPath) error {
		if ensureDir {
			if err := ensureParentDir(bp.Path); err != nil {
				return err
			}
		}
		f, err := os.OpenFile(bp.Path, flags, mode)
		if err != nil {
			return wrapOSErr("open", bp.Path, err)
		}
		opened = append(opened, handletable.Backing{Label: bp.Root.Label, File: f})
		return nil
	})
	if err != nil {
		closeAll()
		return 0, err
	}

	// opened was built in open order (highest registry index first, since
	// the fan-out above runs AllReverse). handletable.Entry wants the
	// opposite: Backing[0] must be the last-opened, registry-earliest
	// root. Reverse before registering.
	backing := make([]handletable.Backing, len(opened))
	for i, b := range opened {
		backing[len(opened)-1-i] = b
	}

	return fs.handles.Register(backing), nil
}

// Create implements create(2): O_WRONLY|O_CREAT|O_TRUNC against every
// best-inexistent-resolved backing path.
func (fs *FS) Create(path string, mode os.FileMode) (handletable.Handle, error) {
	return fs.openBacking(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode, true)
}

// Open implements open(2): the same best-inexistent resolution as Create,
// without forcing the creation flags. Unlike Create, it never makes
// parent directories — a plain open of a not-yet-existing path is
// expected to fail at the OS level, not to fabricate a tree for it.
func (fs *FS) Open(path string, flags int, mode os.FileMode) (handletable.Handle, error) {
	return fs.openBacking(path, flags, mode, false)
}

// Read implements the coherent read protocol of §4.3: seek the first
// backing descriptor, read, then seek every sibling descriptor to the
// resulting offset, all under the handle's mutex.
func (fs *FS) Read(h handletable.Handle, buf []byte, offset int64) (int, error) {
	e := fs.handles.Lookup(h)
	if e == nil {
		return 0, fmt.Errorf("dispatch: read: %w", os.ErrClosed)
	}
	e.Lock()
	defer e.Unlock()

	if len(e.Backing) == 0 {
		return 0, fmt.Errorf("dispatch: read: handle has no backing descriptors")
	}
	primary := e.Backing[0].File

	if _, err := primary.Seek(offset, os.SEEK_SET); err != nil {
		return 0, wrapOSErr("read", primary.Name(), err)
	}
	n, err := primary.Read(buf)
	if err != nil && n == 0 {
		return 0, err
	}

	newOffset, serr := primary.Seek(0, os.SEEK_CUR)
	if serr != nil {
		return n, nil
	}
	for _, b := range e.Backing[1:] {
		b.File.Seek(newOffset, os.SEEK_SET)
	}
	return n, nil
}

// Write implements the write protocol of §4.3: every backing descriptor
// is seeked to offset and written, under the handle's mutex. The last
// byte count is returned; divergence between descriptors is not
// reconciled (§7).
func (fs *FS) Write(h handletable.Handle, data []byte, offset int64) (int, error) {
	e := fs.handles.Lookup(h)
	if e == nil {
		return 0, fmt.Errorf("dispatch: write: %w", os.ErrClosed)
	}
	e.Lock()
	defer e.Unlock()

	var n int
	for _, b := range e.Backing {
		if _, err := b.File.Seek(offset, os.SEEK_SET); err != nil {
			return 0, wrapOSErr("write", b.File.Name(), err)
		}
		written, err := b.File.Write(data)
		if err != nil {
			return written, wrapOSErr("write", b.File.Name(), err)
		}
		n = written
	}
	return n, nil
}

// Flush fsyncs every backing descriptor and returns the last result.
func (fs *FS) Flush(h handletable.Handle) error {
	e := fs.handles.Lookup(h)
	if e == nil {
		return fmt.Errorf("dispatch: flush: %w", os.ErrClosed)
	}
	e.Lock()
	defer e.Unlock()
	return fanout.Do(e.Backing, fanout.AllForward, func(b handletable.Backing) error {
		return wrapOSErr("flush", b.File.Name(), b.File.Sync())
	})
}

// Fsync fsyncs (or, with datasync, fdatasyncs) every backing descriptor.
func (fs *FS) Fsync(h handletable.Handle, datasync bool) error {
	e := fs.handles.Lookup(h)
	if e == nil {
		return fmt.Errorf("dispatch: fsync: %w", os.ErrClosed)
	}
	e.Lock()
	defer e.Unlock()
	return fanout.Do(e.Backing, fanout.AllForward, func(b handletable.Backing) error {
		if datasync {
			return wrapOSErr("fdatasync", b.File.Name(), fdatasync(b.File))
		}
		return wrapOSErr("fsync", b.File.Name(), b.File.Sync())
	})
}

// Release closes every backing descriptor and removes the handle entry.
func (fs *FS) Release(h handletable.Handle) error {
	e := fs.handles.Release(h)
	if e == nil {
		return fmt.Errorf("dispatch: release: %w", os.ErrClosed)
	}
	return fanout.Do(e.Backing, fanout.AllForward, func(b handletable.Backing) error {
		return wrapOSErr("release", b.File.Name(), b.File.Close())
	})
}
