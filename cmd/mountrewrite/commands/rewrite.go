package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/mountrewrite/internal/logfields"
	"git.home.luguber.info/inful/mountrewrite/internal/runner"
)

// RewriteCmd implements the 'rewrite' command.
type RewriteCmd struct {
	Paths    []string `arg:"" optional:"" help:"Files or directories to rewrite; - reads stdin and writes stdout (default: -)"`
	OutDir   string   `short:"o" name:"out-dir" help:"Write results below this directory instead of in place"`
	DryRun   bool     `name:"dry-run" help:"Report what would change without writing"`
	FailFast bool     `name:"fail-fast" help:"Stop at the first file that fails"`
	Jobs     int      `short:"j" help:"Files rewritten in parallel (default: config concurrency)"`
	Ext      []string `name:"ext" help:"Artifact extensions picked up in directories (default: config extensions)"`
}

func (r *RewriteCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	s, err := root.open(g)
	if err != nil {
		return err
	}
	defer s.close()

	paths := r.Paths
	if len(paths) == 0 {
		paths = []string{runner.StdinPath}
	}
	opts := runner.Options{
		Extensions:  s.cfg.Extensions,
		OutDir:      r.OutDir,
		DryRun:      r.DryRun,
		FailFast:    r.FailFast,
		Concurrency: s.cfg.Concurrency,
		Recorder:    s.recorder,
		Logger:      s.logger,
		Retry:       s.cfg.Retry.Policy(),
	}
	if r.Jobs > 0 {
		opts.Concurrency = r.Jobs
	}
	if len(r.Ext) > 0 {
		opts.Extensions = r.Ext
	}

	summary, err := runner.New(s.rewriter(), s.mp, opts).Run(ctx, paths)
	s.logger.Info("Rewrite finished",
		slog.Int("files", summary.Files),
		slog.Int("rewritten", summary.Rewritten),
		slog.Int("unchanged", summary.Unchanged),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		logfields.Literals(summary.Literals),
		logfields.Hrefs(summary.Hrefs),
		slog.Bool("dry_run", r.DryRun),
		logfields.DurationMS(float64(summary.Duration.Milliseconds())))
	return err
}
