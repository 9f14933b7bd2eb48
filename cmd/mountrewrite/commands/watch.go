package commands

import (
	"context"
	"time"

	"git.home.luguber.info/inful/mountrewrite/internal/runner"
	"git.home.luguber.info/inful/mountrewrite/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Src      string        `arg:"" help:"Directory of compiled artifacts to watch" type:"existingdir"`
	OutDir   string        `short:"o" name:"out-dir" required:"" help:"Directory the rewritten tree is written to"`
	Debounce time.Duration `help:"Quiet period before a rewrite starts" default:"300ms"`
	Rescan   time.Duration `help:"Also rewrite the whole tree on this interval (0 disables)" default:"0s"`
}

func (w *WatchCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	s, err := root.open(g)
	if err != nil {
		return err
	}
	defer s.close()

	r := runner.New(s.rewriter(), s.mp, runner.Options{
		Extensions:  s.cfg.Extensions,
		OutDir:      w.OutDir,
		Concurrency: s.cfg.Concurrency,
		Recorder:    s.recorder,
		Logger:      s.logger,
		Retry:       s.cfg.Retry.Policy(),
	})
	pass := func(ctx context.Context) error {
		summary, err := r.Run(ctx, []string{w.Src})
		s.logger.Debug("Pass summary", "summary", summary.String())
		return err
	}

	watcher, err := watch.New(w.Src, w.OutDir, pass, watch.Options{
		Debounce:   w.Debounce,
		Extensions: s.cfg.Extensions,
		Rescan:     w.Rescan,
		Logger:     s.logger,
	})
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}
