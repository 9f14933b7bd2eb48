package assets

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/mountrewrite/internal/logfields"
	"git.home.luguber.info/inful/mountrewrite/internal/metrics"
	"git.home.luguber.info/inful/mountrewrite/internal/mountpoint"
)

// DefaultPatterns selects the bundled font stylesheets.
var DefaultPatterns = []string{"*.css.gz"}

type treeOptions struct {
	recorder metrics.Recorder
	logger   *slog.Logger
}

// Option configures RewriteTree.
type Option func(*treeOptions)

func WithRecorder(r metrics.Recorder) Option {
	return func(o *treeOptions) {
		if r != nil {
			o.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *treeOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// RewriteTree applies RewriteGzipCSS to every file below root whose base
// name matches one of patterns. Only .gz files are considered. Failures are
// collected; the walk continues past them.
func RewriteTree(ctx context.Context, root string, patterns []string, mp mountpoint.MountPoint, opts ...Option) ([]Result, error) {
	o := treeOptions{recorder: metrics.NoopRecorder{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	if !mp.IsSet() {
		o.logger.Debug("Mount point unset, assets are only decompressed", logfields.Path(root))
	}

	var (
		results []Result
		errs    []error
	)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".gz" || !matchAny(patterns, d.Name()) {
			return nil
		}

		res, err := RewriteGzipCSS(path, TargetFor(path), mp)
		if err != nil {
			o.recorder.IncAssetResult(metrics.ResultFailed)
			o.logger.Error("Asset rewrite failed", logfields.Path(path), logfields.Error(err))
			errs = append(errs, err)
			return nil
		}
		results = append(results, res)
		switch {
		case res.Skipped:
			o.recorder.IncAssetResult(metrics.ResultSkipped)
		case res.Replacements > 0:
			o.recorder.IncAssetResult(metrics.ResultRewritten)
		default:
			o.recorder.IncAssetResult(metrics.ResultUnchanged)
		}
		o.logger.Debug("Asset rewritten", logfields.Path(path), slog.Int("replacements", res.Replacements))
		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			errs = append(errs, walkErr)
		} else {
			errs = append(errs, fsError(walkErr, "walk asset tree", root))
		}
	}
	if len(errs) > 0 {
		return results, errors.Join(errs...)
	}
	return results, nil
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}
