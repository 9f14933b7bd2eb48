package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/mountrewrite/internal/assets"
	"git.home.luguber.info/inful/mountrewrite/internal/logfields"
)

// AssetsCmd implements the 'assets' command.
type AssetsCmd struct {
	Root    string   `arg:"" help:"Directory holding the extracted site assets" type:"existingdir"`
	Pattern []string `name:"pattern" help:"Base-name patterns of gzipped assets (default: config assets.patterns)"`
}

func (a *AssetsCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	s, err := root.open(g)
	if err != nil {
		return err
	}
	defer s.close()

	patterns := s.cfg.Assets.Patterns
	if len(a.Pattern) > 0 {
		patterns = a.Pattern
	}

	results, err := assets.RewriteTree(ctx, a.Root, patterns, s.mp,
		assets.WithRecorder(s.recorder),
		assets.WithLogger(s.logger))
	replaced := 0
	for _, r := range results {
		replaced += r.Replacements
	}
	s.logger.Info("Assets finished",
		logfields.Path(a.Root),
		slog.Int("assets", len(results)),
		slog.Int("replacements", replaced))
	return err
}
