// Package dispatch implements the Operation Dispatcher: it composes
// pathresolve.Resolver results with a fan-out policy to realize every
// filesystem operation the kernel bridge may deliver.
//
// Every method here takes and returns plain strings, byte slices, and
// stdlib-shaped values — there is no FUSE type in this package — so the
// merge semantics can be exercised directly against a temp-directory root
// set in tests, without going through an actual mount.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mergefs/mergefs/internal/fanout"
	"github.com/mergefs/mergefs/internal/handletable"
	"github.com/mergefs/mergefs/internal/pathresolve"
	"github.com/mergefs/mergefs/internal/rootset"
)

// FS is the Operation Dispatcher for one mount: a Registry, the Resolver
// bound to it, and the Handle Table for open files.
type FS struct {
	Registry *rootset.Registry
	resolver *pathresolve.Resolver
	handles  *handletable.Table
	log      *slog.Logger
}

// New builds a Dispatcher for reg. A nil logger defaults to slog.Default().
func New(reg *rootset.Registry, logger *slog.Logger) *FS {
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{
		Registry: reg,
		resolver: pathresolve.New(reg),
		handles:  handletable.New(),
		log:      logger,
	}
}

// Attr is the subset of stat(2) fields getattr needs to report, read
// directly from a backing root via unix.Lstat so that uid, gid, and nlink
// survive — os.FileInfo on its own drops them.
type Attr struct {
	Mode    uint32
	Nlink   uint64
	Size    int64
	Uid     uint32
	Gid     uint32
	AtimeNS int64
	MtimeNS int64
	CtimeNS int64
}

func lstatAttr(path string) (Attr, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return Attr{}, fmt.Errorf("lstat %s: %w", path, err)
	}
	return Attr{
		Mode:    st.Mode,
		Nlink:   uint64(st.Nlink),
		Size:    st.Size,
		Uid:     st.Uid,
		Gid:     st.Gid,
		AtimeNS: st.Atim.Nano(),
		MtimeNS: st.Mtim.Nano(),
		CtimeNS: st.Ctim.Nano(),
	}, nil
}

// Access implements the bridge's access(2): every selected root must
// grant amode, or the whole call fails with a wrapped fs.ErrPermission.
func (fs *FS) Access(path string, amode uint32) error {
	paths, err := fs.resolver.Resolve(path, false)
	if err != nil {
		return err
	}
	return fanout.Do(paths, fanout.AllForward, func(bp pathresolve.BackingPath) error {
		if err := unix.Access(bp.Path, amode); err != nil {
			return fmt.Errorf("access %s: %w", bp.Path, os.ErrPermission)
		}
		return nil
	})
}

// Chmod implements chmod(2) across every selected root, registry-earliest
// root touched last (§4.2: "reverse order").
func (fs *FS) Chmod(path string, mode os.FileMode) error {
	paths, err := fs.resolver.Resolve(path, false)
	if err != nil {
		return err
	}
	return fanout.Do(paths, fanout.AllReverse, func(bp pathresolve.BackingPath) error {
		return wrapOSErr("chmod", bp.Path, os.Chmod(bp.Path, mode))
	})
}

// Chown implements chown(2) across every selected root.
func (fs *FS) Chown(path string, uid, gid int) error {
	paths, err := fs.resolver.Resolve(path, false)
	if err != nil {
		return err
	}
	return fanout.Do(paths, fanout.AllReverse, func(bp pathresolve.BackingPath) error {
		return wrapOSErr("chown", bp.Path, os.Chown(bp.Path, uid, gid))
	})
}

// Utimens implements utimensat(2) across every selected root.
func (fs *FS) Utimens(path string, atime, mtime time.Time) error {
	paths, err := fs.resolver.Resolve(path, false)
	if err != nil {
		return err
	}
	return fanout.Do(paths, fanout.AllReverse, func(bp pathresolve.BackingPath) error {
		return wrapOSErr("utimens", bp.Path, os.Chtimes(bp.Path, atime, mtime))
	})
}

// Truncate implements truncate(2) across every selected root.
func (fs *FS) Truncate(path string, size int64) error {
	paths, err := fs.resolver.Resolve(path, false)
	if err != nil {
		return err
	}
	return fanout.Do(paths, fanout.AllReverse, func(bp pathresolve.BackingPath) error {
		return wrapOSErr("truncate", bp.Path, os.Truncate(bp.Path, size))
	})
}

// Unlink implements unlink(2) across every selected root.
func (fs *FS) Unlink(path string) error {
	paths, err := fs.resolver.Resolve(path, false)
	if err != nil {
		return err
	}
	return fanout.Do(paths, fanout.AllReverse, func(bp pathresolve.BackingPath) error {
		return wrapOSErr("unlink", bp.Path, os.Remove(bp.Path))
	})
}

// Rmdir implements rmdir(2) across every selected root.
func (fs *FS) Rmdir(path string) error {
	paths, err := fs.resolver.Resolve(path, false)
	if err != nil {
		return err
	}
	return fanout.Do(paths, fanout.AllReverse, func(bp pathresolve.BackingPath) error {
		return wrapOSErr("rmdir", bp.Path, os.Remove(bp.Path))
	})
}

// Getattr implements getattr: every selected root is probed (to confirm
// presence, per §4.2's note), and the reported attributes are the
// registry-earliest root's, because fan-out runs in reverse.
func (fs *FS) Getattr(path string) (Attr, error) {
	paths, err := fs.resolver.Resolve(path, false)
	if err != nil {
		return Attr{}, err
	}
	var last Attr
	err = fanout.Do(paths, fanout.AllReverse, func(bp pathresolve.BackingPath) error {
		a, err := lstatAttr(bp.Path)
		if err != nil {
			return err
		}
		last = a
		return nil
	})
	if err != nil {
		return Attr{}, err
	}
	return last, nil
}

// Statfs implements statfs(2), reporting the first selected root's
// filesystem statistics.
func (fs *FS) Statfs(path string) (unix.Statfs_t, error) {
	paths, err := fs.resolver.Resolve(path, false)
	if err != nil {
		return unix.Statfs_t{}, err
	}
	var out unix.Statfs_t
	err = fanout.Do(paths, fanout.FirstOnly, func(bp pathresolve.BackingPath) error {
		return unix.Statfs(bp.Path, &out)
	})
	if err != nil {
		return unix.Statfs_t{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	return out, nil
}

// Readlink implements readlink(2), reading the first selected root's
// link target.
func (fs *FS) Readlink(path string) (string, error) {
	paths, err := fs.resolver.Resolve(path, false)
	if err != nil {
		return "", err
	}
	var target string
	err = fanout.Do(paths, fanout.FirstOnly, func(bp pathresolve.BackingPath) error {
		t, err := os.Readlink(bp.Path)
		if err != nil {
			return wrapOSErr("readlink", bp.Path, err)
		}
		target = t
		return nil
	})
	return target, err
}

// Mkdir implements mkdir(2), using best-inexistent selection and creating
// parent directories as needed, reverse fan-out (which for a
// best-inexistent single-entry resolution is a no-op ordering-wise).
func (fs *FS) Mkdir(path string, mode os.FileMode) error {
	paths, err := fs.resolver.Resolve(path, true)
	if err != nil {
		return err
	}
	return fanout.Do(paths, fanout.AllReverse, func(bp pathresolve.BackingPath) error {
		if err := ensureParentDir(bp.Path); err != nil {
			return err
		}
		return wrapOSErr("mkdir", bp.Path, os.Mkdir(bp.Path, mode))
	})
}

// Mknod implements mknod(2), resolved exactly like Mkdir: best-inexistent
// selection with parent-directory creation, so a device or FIFO node can
// be created under a virtual directory that exists under no single root
// yet.
func (fs *FS) Mknod(path string, mode uint32, dev uint64) error {
	paths, err := fs.resolver.Resolve(path, true)
	if err != nil {
		return err
	}
	return fanout.Do(paths, fanout.AllReverse, func(bp pathresolve.BackingPath) error {
		if err := ensureParentDir(bp.Path); err != nil {
			return err
		}
		return wrapOSErr("mknod", bp.Path, unix.Mknod(bp.Path, mode, int(dev)))
	})
}

func ensureParentDir(path string) error {
	return os.MkdirAll(parentDir(path), 0o755)
}

func parentDir(path string) string {
	i := len(path) - 1
	for i >= 0 && path[i] != '/' {
		i--
	}
	if i <= 0 {
		return "/"
	}
	return path[:i]
}

// wrapOSErr wraps err (if non-nil) with the operation and path, for the
// benefit of callers and the Error Mapper downstream. *os.PathError and
// *fs.PathError already carry this; for plain syscall errors it adds it.
func wrapOSErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return err
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}
