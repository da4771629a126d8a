package dispatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func findEntry(entries []DirEntry, name string) (DirEntry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return DirEntry{}, false
}

// S1: a file present only under root a is listed with an all-absent-but-a mask.
func TestReaddirSingleRootFile(t *testing.T) {
	fs, dirs := newTestFS(t, 'a', 'b')
	write(t, filepath.Join(dirs[0], "foo.txt"), "hello")

	entries, err := fs.Readdir("/")
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	if _, ok := findEntry(entries, "a._foo.txt"); !ok {
		t.Fatalf("entries = %+v, want a._foo.txt present", entries)
	}
}

// S2: identical identity across both roots merges into one masked entry.
func TestReaddirIdenticalIdentityMerges(t *testing.T) {
	fs, dirs := newTestFS(t, 'a', 'b')
	mtime := time.Unix(1700000000, 0)
	for _, d := range dirs {
		write(t, filepath.Join(d, "bar.txt"), "xxxxx")
		if err := os.Chtimes(filepath.Join(d, "bar.txt"), mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := fs.Readdir("/")
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v, want exactly one merged entry", entries)
	}
	if entries[0].Name != "ab_bar.txt" {
		t.Fatalf("entries[0].Name = %q, want ab_bar.txt", entries[0].Name)
	}
}

// S3: divergent identity (different sizes) produces two independently
// addressable masked entries.
func TestReaddirDivergentIdentitySplits(t *testing.T) {
	fs, dirs := newTestFS(t, 'a', 'b')
	write(t, filepath.Join(dirs[0], "baz.txt"), "short")
	write(t, filepath.Join(dirs[1], "baz.txt"), "a much longer body")

	entries, err := fs.Readdir("/")
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	if _, ok := findEntry(entries, "a._baz.txt"); !ok {
		t.Fatalf("entries = %+v, want a._baz.txt", entries)
	}
	if _, ok := findEntry(entries, ".b_baz.txt"); !ok {
		t.Fatalf("entries = %+v, want .b_baz.txt", entries)
	}
}

func TestReaddirDirectoriesNeverMasked(t *testing.T) {
	fs, dirs := newTestFS(t, 'a', 'b')
	if err := os.Mkdir(filepath.Join(dirs[0], "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dirs[1], "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	entries, err := fs.Readdir("/")
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	e, ok := findEntry(entries, "sub")
	if !ok || !e.IsDir {
		t.Fatalf("entries = %+v, want unmasked directory entry sub", entries)
	}
}

func TestReaddirMissingRootDirectoryIsEmpty(t *testing.T) {
	fs, dirs := newTestFS(t, 'a', 'b')
	if err := os.Mkdir(filepath.Join(dirs[0], "onlyA"), 0o755); err != nil {
		t.Fatal(err)
	}
	write(t, filepath.Join(dirs[0], "onlyA", "f"), "x")

	entries, err := fs.Readdir("/onlyA")
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	if _, ok := findEntry(entries, "a._f"); !ok {
		t.Fatalf("entries = %+v, want a._f from the only existing root", entries)
	}
}
