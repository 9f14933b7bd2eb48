package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mountrewrite/internal/config"
	"git.home.luguber.info/inful/mountrewrite/internal/logfields"
	"git.home.luguber.info/inful/mountrewrite/internal/metrics"
	"git.home.luguber.info/inful/mountrewrite/internal/mountpoint"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	RunID  string
}

// CLI definition & global flags.
type CLI struct {
	Config          string           `short:"c" help:"Configuration file path" default:"mountrewrite.yaml"`
	Verbose         bool             `short:"v" help:"Enable verbose logging"`
	MountAt         *string          `name:"mount-at" help:"Mount point, overrides ELM_DOC_MOUNT_POINT and the config file"`
	MetricsTextfile string           `name:"metrics-textfile" help:"Write Prometheus metrics to this file after the run"`
	Version         kong.VersionFlag `name:"version" help:"Show version and exit"`

	Rewrite RewriteCmd `cmd:"" help:"Rewrite compiled JavaScript artifacts (files, directories or - for stdin)"`
	Assets  AssetsCmd  `cmd:"" help:"Decompress bundled .css.gz assets and prefix their /assets/ URLs"`
	Watch   WatchCmd   `cmd:"" help:"Rewrite a source directory into an output directory on every change"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; sets up logging and the run id once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.RunID = uuid.NewString()
	g.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With(logfields.RunID(g.RunID))
	slog.SetDefault(g.Logger)
	return nil
}

// session carries what every rewriting command resolves before it starts.
type session struct {
	cfg      *config.Config
	mp       mountpoint.MountPoint
	logger   *slog.Logger
	registry *prom.Registry
	recorder metrics.Recorder
	textfile string
}

// open loads the configuration, resolves the mount point and prepares metrics.
func (c *CLI) open(g *Global) (*session, error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.Load(c.Config, c.Config != config.DefaultConfigFile)
	if err != nil {
		return nil, err
	}

	mp, source := config.ResolveMountPoint(c.MountAt, cfg)
	value, set := mp.Value()
	logger = logger.With(logfields.MountPoint(value, set))
	for _, w := range config.MountPointWarnings(mp) {
		logger.Warn(w)
	}
	if set {
		logger.Debug("Resolved mount point", slog.String("source", string(source)))
	} else {
		logger.Info("No mount point configured; artifacts are left untouched",
			slog.String("env", config.EnvMountPoint))
	}

	s := &session{cfg: cfg, mp: mp, logger: logger, recorder: metrics.NoopRecorder{}}
	s.textfile = cfg.Metrics.Textfile
	if c.MetricsTextfile != "" {
		s.textfile = c.MetricsTextfile
	}
	if s.textfile != "" {
		s.registry = prom.NewRegistry()
		s.recorder = metrics.NewPrometheusRecorder(s.registry)
	}
	return s, nil
}

func (s *session) rewriter() *mountpoint.Rewriter {
	return mountpoint.New(mountpoint.WithHrefCallee(s.cfg.HrefCallee))
}

// close writes the metrics textfile, if one is configured. A failure here
// is logged but never masks the command's own error.
func (s *session) close() {
	if s.registry == nil {
		return
	}
	if err := metrics.WriteTextfile(s.textfile, s.registry); err != nil {
		s.logger.Warn("Failed to write metrics", logfields.Path(s.textfile), logfields.Error(err))
		return
	}
	s.logger.Debug("Wrote metrics", logfields.Path(s.textfile))
}
