// Package mountpoint rewrites compiled documentation frontend JavaScript so that
// absolute site paths resolve under a URL prefix (the mount point).
//
// Two shapes are recognised:
//
//   - string literals whose value starts with /packages, /all-packages,
//     /new-packages or /assets/ get the mount point prepended;
//   - calls to the href attribute constructor with the single literal "/"
//     become calls with mountPoint + "/".
//
// The source is parsed with the tree-sitter JavaScript grammar into a small
// tagged tree (StringLit, CallExpr, Ident, Other). Rewrites are spliced into
// the original text, so bytes outside a rewritten node are never touched.
//
// Example:
//
//	rw := mountpoint.New()
//	res, err := rw.Rewrite(ctx, src, mountpoint.At("/docs"))
//	if err != nil {
//		return err // *mountpoint.ParseError on invalid input
//	}
//	if res.Changed {
//		_ = os.WriteFile(path, res.Source, 0o644)
//	}
//
// Rewriting is not idempotent: running it twice prefixes twice.
package mountpoint
