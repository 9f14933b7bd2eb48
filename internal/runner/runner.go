// Package runner feeds compiled artifacts from disk or standard input
// through the mount point rewriter and writes the results back.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/mountrewrite/internal/foundation/errors"
	"git.home.luguber.info/inful/mountrewrite/internal/fsutil"
	"git.home.luguber.info/inful/mountrewrite/internal/logfields"
	"git.home.luguber.info/inful/mountrewrite/internal/metrics"
	"git.home.luguber.info/inful/mountrewrite/internal/mountpoint"
	"git.home.luguber.info/inful/mountrewrite/internal/retry"
)

// Options controls a Runner.
type Options struct {
	// Extensions filters files found below directory arguments. Defaults to [".js"].
	Extensions []string
	// OutDir mirrors results below this directory instead of rewriting in place.
	OutDir string
	// DryRun rewrites and reports but never writes.
	DryRun bool
	// FailFast stops scheduling new files after the first failure.
	FailFast    bool
	Concurrency int
	Recorder    metrics.Recorder
	Logger      *slog.Logger
	// Retry governs rewriting an output file after a transient write error.
	// The zero value writes once.
	Retry  retry.Policy
	Stdin  io.Reader
	Stdout io.Writer
}

// Summary counts the outcome of a run.
type Summary struct {
	Files     int
	Rewritten int
	Unchanged int
	Skipped   int
	Failed    int
	Literals  int
	Hrefs     int
	Duration  time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf("files=%d rewritten=%d unchanged=%d skipped=%d failed=%d literals=%d hrefs=%d",
		s.Files, s.Rewritten, s.Unchanged, s.Skipped, s.Failed, s.Literals, s.Hrefs)
}

// Runner applies one Rewriter and mount point to many files.
type Runner struct {
	rw   *mountpoint.Rewriter
	mp   mountpoint.MountPoint
	opts Options
}

// New returns a Runner with defaults filled into opts.
func New(rw *mountpoint.Rewriter, mp mountpoint.MountPoint, opts Options) *Runner {
	if rw == nil {
		rw = mountpoint.New()
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".js"}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	return &Runner{rw: rw, mp: mp, opts: opts}
}

// Run rewrites every artifact named by paths. Files are independent; a
// failing file does not stop the others unless FailFast is set. All
// failures are returned joined.
func (r *Runner) Run(ctx context.Context, paths []string) (Summary, error) {
	start := time.Now()
	tasks, err := discover(paths, r.opts.Extensions, r.opts.OutDir)
	if err != nil {
		return Summary{}, err
	}

	var (
		mu      sync.Mutex
		summary Summary
		errs    []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for _, t := range tasks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			out, err := r.processFile(gctx, t)

			mu.Lock()
			defer mu.Unlock()
			if err != nil && errors.Is(err, context.Canceled) && gctx.Err() != nil {
				// Cancelled by another failure or the caller; not this file's fault.
				return nil
			}
			summary.Files++
			if err != nil {
				summary.Failed++
				errs = append(errs, err)
				if r.opts.FailFast {
					return err
				}
				return nil
			}
			summary.Literals += out.Literals
			summary.Hrefs += out.Hrefs
			switch out.label {
			case metrics.ResultRewritten:
				summary.Rewritten++
			case metrics.ResultUnchanged:
				summary.Unchanged++
			case metrics.ResultSkipped:
				summary.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(start)
	r.opts.Recorder.ObserveRunDuration(summary.Duration)

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return summary, errors.Join(errs...)
}

type fileOutcome struct {
	mountpoint.Result
	label metrics.ResultLabel
}

func (r *Runner) processFile(ctx context.Context, t task) (fileOutcome, error) {
	start := time.Now()
	logger := r.opts.Logger.With(logfields.File(t.path))

	out, err := r.rewriteTask(ctx, t)
	r.opts.Recorder.ObserveFileDuration(time.Since(start))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.opts.Recorder.IncFileResult(metrics.ResultFailed)
			logger.Error("Rewrite failed", logfields.Error(err))
		}
		return out, err
	}

	r.opts.Recorder.IncFileResult(out.label)
	r.opts.Recorder.AddRewrites(metrics.RuleLiteral, out.Literals)
	r.opts.Recorder.AddRewrites(metrics.RuleHref, out.Hrefs)

	attrs := []any{
		logfields.Stage(string(out.label)),
		logfields.Literals(out.Literals),
		logfields.Hrefs(out.Hrefs),
		logfields.DurationMS(float64(time.Since(start).Microseconds()) / 1000),
	}
	if out.label == metrics.ResultRewritten {
		logger.Info("Rewrote artifact", attrs...)
	} else {
		logger.Debug("Processed artifact", attrs...)
	}
	return out, nil
}

func (r *Runner) rewriteTask(ctx context.Context, t task) (fileOutcome, error) {
	var (
		src  []byte
		perm os.FileMode = 0o644
		err  error
	)
	if t.stdin {
		src, err = io.ReadAll(r.opts.Stdin)
	} else {
		var info os.FileInfo
		if info, err = os.Stat(t.path); err == nil {
			perm = info.Mode().Perm()
			src, err = os.ReadFile(t.path)
		}
	}
	if err != nil {
		return fileOutcome{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read artifact").
			WithContext("file", t.path).
			Build()
	}

	res, err := r.rw.RewriteFile(ctx, displayName(t), src, r.mp)
	if err != nil {
		var pe *mountpoint.ParseError
		if errors.As(err, &pe) {
			return fileOutcome{}, ferrors.WrapError(err, ferrors.CategoryParse, "cannot rewrite artifact").
				WithContext("file", t.path).
				WithContext("line", pe.Line).
				Build()
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fileOutcome{}, err
		}
		return fileOutcome{}, ferrors.WrapError(err, ferrors.CategoryInternal, "rewrite artifact").
			WithContext("file", t.path).
			Build()
	}

	out := fileOutcome{Result: res}
	switch {
	case res.Skipped:
		out.label = metrics.ResultSkipped
	case res.Changed:
		out.label = metrics.ResultRewritten
	default:
		out.label = metrics.ResultUnchanged
	}

	err = retry.Do(ctx, r.opts.Retry, func() error {
		if err := r.emit(t, out, perm); err != nil {
			b := ferrors.WrapError(err, ferrors.CategoryFileSystem, "write artifact").
				WithContext("file", t.path)
			// A partial write to stdout cannot be taken back.
			if !t.stdin {
				b = b.Retryable()
			}
			return b.Build()
		}
		return nil
	})
	if err != nil {
		return fileOutcome{}, err
	}
	return out, nil
}

// emit writes a result according to the run mode. Standard input is always
// echoed to standard output, rewritten or not, unless this is a dry run.
func (r *Runner) emit(t task, out fileOutcome, perm os.FileMode) error {
	if r.opts.DryRun {
		return nil
	}
	if t.stdin {
		_, err := r.opts.Stdout.Write(out.Source)
		return err
	}
	switch {
	case out.label == metrics.ResultSkipped:
		return nil
	case r.opts.OutDir != "":
		return fsutil.WriteFileAtomic(filepath.Join(r.opts.OutDir, t.rel), out.Source, perm)
	case out.label == metrics.ResultRewritten:
		return fsutil.WriteFileAtomic(t.path, out.Source, perm)
	}
	return nil
}

func displayName(t task) string {
	if t.stdin {
		return "<stdin>"
	}
	return t.path
}
