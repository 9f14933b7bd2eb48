// Package testutil provides fixtures for tests that rewrite artifact trees
// on disk.
package testutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// Tree is a directory of test artifacts addressed by slash-separated
// relative paths.
type Tree struct {
	t    testing.TB
	root string
}

// NewTree returns a Tree rooted in a fresh temporary directory.
func NewTree(t testing.TB) *Tree {
	t.Helper()
	return &Tree{t: t, root: t.TempDir()}
}

// Root returns the absolute root directory.
func (tr *Tree) Root() string { return tr.root }

// Path resolves a relative path below the root.
func (tr *Tree) Path(rel string) string {
	return filepath.Join(tr.root, filepath.FromSlash(rel))
}

// Write creates rel with content, making parent directories as needed.
func (tr *Tree) Write(rel, content string) *Tree {
	tr.t.Helper()
	tr.writeBytes(rel, []byte(content), 0o644)
	return tr
}

// WriteFiles writes every rel/content pair.
func (tr *Tree) WriteFiles(files map[string]string) *Tree {
	tr.t.Helper()
	for rel, content := range files {
		tr.Write(rel, content)
	}
	return tr
}

// WriteGzip writes content gzip-compressed to rel.
func (tr *Tree) WriteGzip(rel, content string) *Tree {
	tr.t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		tr.t.Fatalf("gzip %s: %v", rel, err)
	}
	if err := zw.Close(); err != nil {
		tr.t.Fatalf("gzip %s: %v", rel, err)
	}
	tr.writeBytes(rel, buf.Bytes(), 0o644)
	return tr
}

func (tr *Tree) writeBytes(rel string, data []byte, perm os.FileMode) {
	tr.t.Helper()
	path := tr.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		tr.t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		tr.t.Fatalf("write %s: %v", rel, err)
	}
}

// Read returns the content of rel.
func (tr *Tree) Read(rel string) string {
	tr.t.Helper()
	data, err := os.ReadFile(tr.Path(rel))
	if err != nil {
		tr.t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

// ReadGzip returns the decompressed content of rel.
func (tr *Tree) ReadGzip(rel string) string {
	tr.t.Helper()
	f, err := os.Open(tr.Path(rel))
	if err != nil {
		tr.t.Fatalf("open %s: %v", rel, err)
	}
	defer func() { _ = f.Close() }()
	zr, err := gzip.NewReader(f)
	if err != nil {
		tr.t.Fatalf("gunzip %s: %v", rel, err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		tr.t.Fatalf("gunzip %s: %v", rel, err)
	}
	return string(data)
}

// AssertContent fails the test unless rel holds exactly want.
func (tr *Tree) AssertContent(rel, want string) *Tree {
	tr.t.Helper()
	data, err := os.ReadFile(tr.Path(rel))
	if err != nil {
		tr.t.Errorf("Expected file %s: %v", rel, err)
		return tr
	}
	if got := string(data); got != want {
		tr.t.Errorf("File %s:\n got: %q\nwant: %q", rel, got, want)
	}
	return tr
}

// AssertNotExists fails the test if rel exists.
func (tr *Tree) AssertNotExists(rel string) *Tree {
	tr.t.Helper()
	if _, err := os.Stat(tr.Path(rel)); err == nil {
		tr.t.Errorf("Expected %s to not exist", rel)
	}
	return tr
}
