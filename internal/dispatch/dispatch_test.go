package dispatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mergefs/mergefs/internal/rootset"
)

func newTestFS(t *testing.T, labels ...byte) (*FS, []string) {
	t.Helper()
	var dirs []string
	for range labels {
		dirs = append(dirs, t.TempDir())
	}
	reg, err := rootset.New(labels, dirs)
	if err != nil {
		t.Fatalf("rootset.New: %v", err)
	}
	return New(reg, nil), dirs
}

func TestAccessRequiresAllSelectedRoots(t *testing.T) {
	fs, dirs := newTestFS(t, 'a', 'b')
	write(t, filepath.Join(dirs[0], "f"), "x")
	write(t, filepath.Join(dirs[1], "f"), "y")

	if err := fs.Access("/f", 0); err != nil {
		t.Fatalf("Access: %v", err)
	}

	if err := os.Chmod(filepath.Join(dirs[1], "f"), 0o000); err != nil {
		t.Fatal(err)
	}
	if err := fs.Access("/f", 4); err == nil {
		t.Fatalf("Access: expected failure when one root denies")
	}
}

func TestChmodTouchesEveryRoot(t *testing.T) {
	fs, dirs := newTestFS(t, 'a', 'b')
	write(t, filepath.Join(dirs[0], "f"), "x")
	write(t, filepath.Join(dirs[1], "f"), "y")

	if err := fs.Chmod("/f", 0o640); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	for _, d := range dirs {
		info, err := os.Stat(filepath.Join(d, "f"))
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o640 {
			t.Fatalf("root %s: mode = %v, want 0640", d, info.Mode().Perm())
		}
	}
}

func TestGetattrReflectsEarliestRoot(t *testing.T) {
	fs, dirs := newTestFS(t, 'a', 'b')
	write(t, filepath.Join(dirs[0], "f"), "aaaa")
	write(t, filepath.Join(dirs[1], "f"), "b")

	attr, err := fs.Getattr("/f")
	if err != nil {
		t.Fatalf("Getattr: %v", err)
	}
	if attr.Size != 4 {
		t.Fatalf("Getattr size = %d, want 4 (root a's size)", attr.Size)
	}
}

func TestMkdirBestInexistent(t *testing.T) {
	fs, dirs := newTestFS(t, 'a', 'b')
	if err := os.MkdirAll(filepath.Join(dirs[0], "new"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := fs.Mkdir("/new/sub", 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dirs[0], "new", "sub")); err != nil {
		t.Fatalf("expected /new/sub under root a: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dirs[1], "new", "sub")); err == nil {
		t.Fatalf("did not expect /new/sub under root b")
	}

	if err := fs.Mkdir("/new/sub/deeper", 0o755); err != nil {
		t.Fatalf("Mkdir deeper: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dirs[0], "new", "sub", "deeper")); err != nil {
		t.Fatalf("expected deeper dir to land on the same root a: %v", err)
	}
}

func TestCreateOpenReadWriteCoherence(t *testing.T) {
	fs, dirs := newTestFS(t, 'a', 'b')
	// /f must already exist under both roots for Create to select both:
	// a path that exists nowhere resolves by best-inexistent to one root.
	write(t, filepath.Join(dirs[0], "f"), "old-a")
	write(t, filepath.Join(dirs[1], "f"), "old-b")

	h, err := fs.Create("/f", 0o644)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n, err := fs.Write(h, []byte("hello"), 0); err != nil || n != 5 {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}
	if err := fs.Flush(h); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := fs.Release(h); err != nil {
		t.Fatalf("Release: %v", err)
	}

	for _, d := range dirs {
		got, err := os.ReadFile(filepath.Join(d, "f"))
		if err != nil {
			t.Fatalf("root %s: %v", d, err)
		}
		if string(got) != "hello" {
			t.Fatalf("root %s: content = %q, want hello", d, got)
		}
	}

	h2, err := fs.Open("/f", os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := make([]byte, 5)
	n, err := fs.Read(h2, buf, 0)
	if err != nil || n != 5 || string(buf) != "hello" {
		t.Fatalf("Read: n=%d buf=%q err=%v", n, buf, err)
	}
	if err := fs.Release(h2); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestOpenNeverCreatesParentDirs(t *testing.T) {
	fs, _ := newTestFS(t, 'a')
	if _, err := fs.Open("/missing/f", os.O_RDONLY, 0); err == nil {
		t.Fatalf("Open: expected failure for nonexistent parent directory")
	}
}

func TestUtimensAndTruncate(t *testing.T) {
	fs, dirs := newTestFS(t, 'a')
	write(t, filepath.Join(dirs[0], "f"), "hello world")

	if err := fs.Truncate("/f", 5); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dirs[0], "f"))
	if err != nil || string(got) != "hello" {
		t.Fatalf("after truncate: %q, %v", got, err)
	}

	mtime := time.Unix(1000000, 0)
	if err := fs.Utimens("/f", mtime, mtime); err != nil {
		t.Fatalf("Utimens: %v", err)
	}
	info, err := os.Stat(filepath.Join(dirs[0], "f"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Fatalf("mtime = %v, want %v", info.ModTime(), mtime)
	}
}

func TestUnlinkAndRmdir(t *testing.T) {
	fs, dirs := newTestFS(t, 'a', 'b')
	write(t, filepath.Join(dirs[0], "f"), "x")
	write(t, filepath.Join(dirs[1], "f"), "y")
	if err := fs.Unlink("/f"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	for _, d := range dirs {
		if _, err := os.Stat(filepath.Join(d, "f")); !os.IsNotExist(err) {
			t.Fatalf("expected /f removed under %s", d)
		}
	}

	for _, d := range dirs {
		if err := os.Mkdir(filepath.Join(d, "dir"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := fs.Rmdir("/dir"); err != nil {
		t.Fatalf("Rmdir: %v", err)
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
