package runner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	ferrors "git.home.luguber.info/inful/mountrewrite/internal/foundation/errors"
)

// StdinPath names standard input as a source; its result goes to standard output.
const StdinPath = "-"

// task is one artifact to rewrite.
type task struct {
	path  string // source path, StdinPath for standard input
	rel   string // path below the output directory
	stdin bool
}

// discover expands the given paths into tasks. Directories are walked
// recursively and filtered by extension; hidden directories and outDir are
// not descended into. Files named explicitly are taken regardless of extension.
// A file reached through more than one argument is queued once.
func discover(paths, extensions []string, outDir string) ([]task, error) {
	var absOut string
	if outDir != "" {
		var err error
		if absOut, err = filepath.Abs(outDir); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve output directory").Build()
		}
	}

	var tasks []task
	seenAbs := make(map[string]bool)
	seenRel := make(map[string]string)
	stdinSeen := false

	add := func(t task) error {
		abs, err := filepath.Abs(t.path)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryFileSystem, "resolve input").
				WithContext("path", t.path).
				Build()
		}
		// Rewriting is not idempotent; a second pass would prefix twice.
		if seenAbs[abs] {
			return nil
		}
		seenAbs[abs] = true
		if prev, ok := seenRel[t.rel]; ok && outDir != "" {
			return ferrors.ValidationError(fmt.Sprintf("%s and %s map to the same output file %s", prev, t.path, t.rel)).Build()
		}
		seenRel[t.rel] = t.path
		tasks = append(tasks, t)
		return nil
	}

	for _, p := range paths {
		if p == StdinPath {
			if stdinSeen {
				return nil, ferrors.ValidationError("standard input given more than once").Build()
			}
			stdinSeen = true
			tasks = append(tasks, task{path: StdinPath, stdin: true})
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "cannot access input").
				WithContext("path", p).
				Build()
		}
		if !info.IsDir() {
			if err := add(task{path: p, rel: filepath.Base(p)}); err != nil {
				return nil, err
			}
			continue
		}

		root := p
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				if absOut != "" {
					if abs, err := filepath.Abs(path); err == nil && abs == absOut {
						return filepath.SkipDir
					}
				}
				return nil
			}
			if !d.Type().IsRegular() || !hasExtension(path, extensions) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			return add(task{path: path, rel: rel})
		})
		if err != nil {
			if ferrors.IsClassified(err) {
				return nil, err
			}
			return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "walk input directory").
				WithContext("path", root).
				Build()
		}
	}
	return tasks, nil
}

func hasExtension(path string, extensions []string) bool {
	return slices.Contains(extensions, filepath.Ext(path))
}
