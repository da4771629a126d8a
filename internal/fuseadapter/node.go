package fuseadapter

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/mergefs/mergefs/internal/dispatch"
	"github.com/mergefs/mergefs/internal/fserr"
)

// Node is one inode in the mounted tree. It carries no state of its own
// beyond the shared Root pointer — its virtual path is derived on demand
// from the embedding library's parent/name chain.
type Node struct {
	fs.Inode
	root *Root
}

var (
	_ fs.NodeLookuper   = (*Node)(nil)
	_ fs.NodeGetattrer  = (*Node)(nil)
	_ fs.NodeSetattrer  = (*Node)(nil)
	_ fs.NodeAccesser   = (*Node)(nil)
	_ fs.NodeStatfser   = (*Node)(nil)
	_ fs.NodeReaddirer  = (*Node)(nil)
	_ fs.NodeMkdirer    = (*Node)(nil)
	_ fs.NodeMknoder    = (*Node)(nil)
	_ fs.NodeCreater    = (*Node)(nil)
	_ fs.NodeOpener     = (*Node)(nil)
	_ fs.NodeUnlinker   = (*Node)(nil)
	_ fs.NodeRmdirer    = (*Node)(nil)
	_ fs.NodeRenamer    = (*Node)(nil)
	_ fs.NodeSymlinker  = (*Node)(nil)
	_ fs.NodeLinker     = (*Node)(nil)
	_ fs.NodeReadlinker = (*Node)(nil)
)

// virtualPath reconstructs the absolute path of n within the merged
// namespace from the tree the embedding library already maintains.
func (n *Node) virtualPath() string {
	return "/" + n.Path(nil)
}

func (n *Node) child(name string) string {
	p := n.virtualPath()
	if p == "/" {
		return "/" + name
	}
	return p + "/" + name
}

func errno(err error) syscall.Errno { return fserr.Errno(err) }

func fillAttrOut(a dispatch.Attr, out *fuse.AttrOut) {
	out.Mode = a.Mode
	out.Nlink = uint32(a.Nlink)
	out.Size = uint64(a.Size)
	out.Owner = fuse.Owner{Uid: a.Uid, Gid: a.Gid}
	out.Atime = uint64(a.AtimeNS / 1e9)
	out.Atimensec = uint32(a.AtimeNS % 1e9)
	out.Mtime = uint64(a.MtimeNS / 1e9)
	out.Mtimensec = uint32(a.MtimeNS % 1e9)
	out.Ctime = uint64(a.CtimeNS / 1e9)
	out.Ctimensec = uint32(a.CtimeNS % 1e9)
}

func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	path := n.child(name)
	attr, err := n.root.fs.Getattr(path)
	if err != nil {
		return nil, errno(err)
	}
	fillAttrOut(attr, &out.Attr)
	child := n.NewInode(ctx, &Node{root: n.root}, fs.StableAttr{Mode: attr.Mode & syscall.S_IFMT})
	return child, 0
}

func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	attr, err := n.root.fs.Getattr(n.virtualPath())
	if err != nil {
		return errno(err)
	}
	fillAttrOut(attr, out)
	return 0
}

func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	path := n.virtualPath()

	if mode, ok := in.GetMode(); ok {
		if err := n.root.fs.Chmod(path, os.FileMode(mode&0o7777)); err != nil {
			return errno(err)
		}
	}
	if uid, uok := in.GetUID(); uok {
		gid, gok := in.GetGID()
		if !gok {
			gid = ^uint32(0)
		}
		if err := n.root.fs.Chown(path, int(uid), int(gid)); err != nil {
			return errno(err)
		}
	} else if gid, gok := in.GetGID(); gok {
		if err := n.root.fs.Chown(path, -1, int(gid)); err != nil {
			return errno(err)
		}
	}
	if size, ok := in.GetSize(); ok {
		if err := n.root.fs.Truncate(path, int64(size)); err != nil {
			return errno(err)
		}
	}
	atime, atok := in.GetATime()
	mtime, mtok := in.GetMTime()
	if atok || mtok {
		now := time.Now()
		if !atok {
			atime = now
		}
		if !mtok {
			mtime = now
		}
		if err := n.root.fs.Utimens(path, atime, mtime); err != nil {
			return errno(err)
		}
	}

	attr, err := n.root.fs.Getattr(path)
	if err != nil {
		return errno(err)
	}
	fillAttrOut(attr, out)
	return 0
}

func (n *Node) Access(ctx context.Context, mask uint32) syscall.Errno {
	return errno(n.root.fs.Access(n.virtualPath(), mask))
}

func (n *Node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	st, err := n.root.fs.Statfs(n.virtualPath())
	if err != nil {
		return errno(err)
	}
	out.Blocks = st.Blocks
	out.Bfree = st.Bfree
	out.Bavail = st.Bavail
	out.Files = st.Files
	out.Ffree = st.Ffree
	out.Bsize = uint32(st.Bsize)
	out.NameLen = uint32(st.Namelen)
	out.Frsize = uint32(st.Frsize)
	return 0
}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := n.root.fs.Readdir(n.virtualPath())
	if err != nil {
		return nil, errno(err)
	}
	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		mode := uint32(syscall.S_IFREG)
		if e.IsDir {
			mode = syscall.S_IFDIR
		}
		out = append(out, fuse.DirEntry{Name: e.Name, Mode: mode})
	}
	return fs.NewListDirStream(out), 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	path := n.child(name)
	if err := n.root.fs.Mkdir(path, os.FileMode(mode&0o7777)); err != nil {
		return nil, errno(err)
	}
	attr, err := n.root.fs.Getattr(path)
	if err != nil {
		return nil, errno(err)
	}
	fillAttrOut(attr, &out.Attr)
	return n.NewInode(ctx, &Node{root: n.root}, fs.StableAttr{Mode: syscall.S_IFDIR}), 0
}

func (n *Node) Mknod(ctx context.Context, name string, mode, dev uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	path := n.child(name)
	if err := n.root.fs.Mknod(path, mode, uint64(dev)); err != nil {
		return nil, errno(err)
	}
	attr, err := n.root.fs.Getattr(path)
	if err != nil {
		return nil, errno(err)
	}
	fillAttrOut(attr, &out.Attr)
	return n.NewInode(ctx, &Node{root: n.root}, fs.StableAttr{Mode: attr.Mode & syscall.S_IFMT}), 0
}

func (n *Node) Create(ctx context.Context, name string, flags, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	path := n.child(name)
	h, err := n.root.fs.Create(path, os.FileMode(mode&0o7777))
	if err != nil {
		return nil, nil, 0, errno(err)
	}
	attr, err := n.root.fs.Getattr(path)
	if err != nil {
		return nil, nil, 0, errno(err)
	}
	fillAttrOut(attr, &out.Attr)
	child := n.NewInode(ctx, &Node{root: n.root}, fs.StableAttr{Mode: syscall.S_IFREG})
	return child, &File{root: n.root, handle: h}, 0, 0
}

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	h, err := n.root.fs.Open(n.virtualPath(), int(flags), 0)
	if err != nil {
		return nil, 0, errno(err)
	}
	return &File{root: n.root, handle: h}, 0, 0
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return errno(n.root.fs.Unlink(n.child(name)))
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return errno(n.root.fs.Rmdir(n.child(name)))
}

func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	destDir, ok := newParent.(*Node)
	if !ok {
		return syscall.EXDEV
	}
	return errno(n.root.fs.Rename(n.child(name), destDir.child(newName)))
}

func (n *Node) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	path := n.child(name)
	if err := n.root.fs.Symlink(target, path); err != nil {
		return nil, errno(err)
	}
	attr, err := n.root.fs.Getattr(path)
	if err != nil {
		return nil, errno(err)
	}
	fillAttrOut(attr, &out.Attr)
	return n.NewInode(ctx, &Node{root: n.root}, fs.StableAttr{Mode: syscall.S_IFLNK}), 0
}

func (n *Node) Link(ctx context.Context, target fs.InodeEmbedder, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	src, ok := target.(*Node)
	if !ok {
		return nil, syscall.EXDEV
	}
	path := n.child(name)
	if err := n.root.fs.Link(src.virtualPath(), path); err != nil {
		return nil, errno(err)
	}
	attr, err := n.root.fs.Getattr(path)
	if err != nil {
		return nil, errno(err)
	}
	fillAttrOut(attr, &out.Attr)
	return n.NewInode(ctx, &Node{root: n.root}, fs.StableAttr{Mode: attr.Mode & syscall.S_IFMT}), 0
}

func (n *Node) Readlink(ctx context.Context) ([]byte, syscall.Errno) {
	target, err := n.root.fs.Readlink(n.virtualPath())
	if err != nil {
		return nil, errno(err)
	}
	return []byte(target), 0
}
