// Package assets rewrites the gzipped stylesheets bundled with the package
// site so their /assets/ URLs resolve below the mount point.
//
// Each src.css.gz is decompressed next to itself as src.css. Stylesheets get
// every "/assets/" replaced by mount+"/assets/" and the rewritten text is
// compressed back into src.css.gz, so both variants stay in sync. Other
// gzipped files, and every file when no mount point is set, are only
// decompressed.
package assets

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	ferrors "git.home.luguber.info/inful/mountrewrite/internal/foundation/errors"
	"git.home.luguber.info/inful/mountrewrite/internal/fsutil"
	"git.home.luguber.info/inful/mountrewrite/internal/mountpoint"
)

const assetsPath = "/assets/"

// maxDecompressedSize bounds a single decompressed asset.
const maxDecompressedSize = 64 << 20

// Result describes one processed asset.
type Result struct {
	Source       string // the .gz file
	Target       string // the decompressed file
	Replacements int
	Recompressed bool
	Skipped      bool
}

// RewriteGzipCSS decompresses src into dst. When dst is a stylesheet and a
// mount point is set, its /assets/ URLs are prefixed with the mount point and
// src is rewritten with the new content. With no mount point src is left as
// it is and the result is marked Skipped.
func RewriteGzipCSS(src, dst string, mp mountpoint.MountPoint) (Result, error) {
	res := Result{Source: src, Target: dst}
	mount, ok := mp.Value()
	res.Skipped = !ok

	info, err := os.Stat(src)
	if err != nil {
		return res, fsError(err, "stat asset", src)
	}
	content, err := decompress(src)
	if err != nil {
		return res, err
	}

	rewrite := ok && filepath.Ext(dst) == ".css"
	if rewrite {
		res.Replacements = bytes.Count(content, []byte(assetsPath))
		content = bytes.ReplaceAll(content, []byte(assetsPath), []byte(mount+assetsPath))
	}

	if err := fsutil.WriteFileAtomic(dst, content, info.Mode().Perm()); err != nil {
		return res, fsError(err, "write decompressed asset", dst)
	}
	if !rewrite {
		return res, nil
	}

	compressed, err := compress(content, filepath.Base(dst))
	if err != nil {
		return res, ferrors.WrapError(err, ferrors.CategoryAssets, "compress asset").
			WithContext("path", src).
			Build()
	}
	if err := fsutil.WriteFileAtomic(src, compressed, info.Mode().Perm()); err != nil {
		return res, fsError(err, "write compressed asset", src)
	}
	res.Recompressed = true
	return res, nil
}

// TargetFor returns the decompressed path for a .gz asset.
func TargetFor(src string) string {
	return strings.TrimSuffix(src, ".gz")
}

func decompress(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fsError(err, "open asset", path)
	}
	defer func() { _ = f.Close() }()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, corrupt(err, path)
	}
	defer func() { _ = zr.Close() }()

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(zr, maxDecompressedSize+1))
	if err != nil {
		return nil, corrupt(err, path)
	}
	if n > maxDecompressedSize {
		return nil, ferrors.AssetsError(fmt.Sprintf("decompressed asset exceeds %d bytes", maxDecompressedSize)).
			WithContext("path", path).
			Build()
	}
	return buf.Bytes(), nil
}

func compress(content []byte, name string) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	zw.Name = name
	zw.ModTime = time.Now()
	if _, err := zw.Write(content); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fsError(err error, msg, path string) error {
	return ferrors.WrapError(err, ferrors.CategoryFileSystem, msg).
		WithContext("path", path).
		Build()
}

func corrupt(err error, path string) error {
	return ferrors.WrapError(err, ferrors.CategoryAssets, "corrupt gzip asset").
		WithContext("path", path).
		Build()
}
