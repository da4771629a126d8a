// Package fuseadapter is the Kernel Bridge Adapter: a thin shim translating
// hanwen/go-fuse callbacks into calls against a *dispatch.FS. It carries no
// merge logic of its own — every decision about which backing root an
// operation touches has already been made by the time a call reaches here.
//
// Nodes reconstruct the virtual path of an inode via the embedding library's
// own parent/name bookkeeping (Inode.Path) rather than keeping a path cache,
// so there is nothing here to invalidate or keep coherent across renames.
package fuseadapter

import (
	"log/slog"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/mergefs/mergefs/internal/dispatch"
)

// Root holds the shared state every Node needs: the Dispatcher to call into
// and a logger for unexpected conditions.
type Root struct {
	fs  *dispatch.FS
	log *slog.Logger
}

// Mount mounts the merge engine at mountpoint and returns the serving
// fuse.Server without waiting for it; callers block on Server.Wait until
// it is unmounted. debug enables go-fuse's own request tracing. allowOther maps
// to fuse.MountOptions.AllowOther, letting users other than the mounting
// uid access the merged view (requires user_allow_other in fuse.conf on
// most systems).
func Mount(mountpoint string, engine *dispatch.FS, logger *slog.Logger, debug, allowOther bool) (*fuse.Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	root := &Node{root: &Root{fs: engine, log: logger}}
	server, err := fs.Mount(mountpoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			Debug:      debug,
			FsName:     "mergefs",
			Name:       "mergefs",
			AllowOther: allowOther,
		},
	})
	if err != nil {
		return nil, err
	}
	return server, nil
}
