package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mountrewrite/internal/config"
	ferrors "git.home.luguber.info/inful/mountrewrite/internal/foundation/errors"
	"git.home.luguber.info/inful/mountrewrite/internal/testutil"
)

func newParser(t *testing.T, cli *CLI, g *Global) *kong.Kong {
	t.Helper()
	parser, err := kong.New(cli,
		kong.Name("mountrewrite"),
		kong.Vars{"version": "test"},
		kong.Bind(g),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	require.NoError(t, err)
	return parser
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cli := &CLI{}
	g := &Global{}
	kctx, err := newParser(t, cli, g).Parse(args)
	require.NoError(t, err)
	return kctx.Run(g, cli)
}

func TestCLI_ParseFlags(t *testing.T) {
	cli := &CLI{}
	g := &Global{}
	kctx, err := newParser(t, cli, g).Parse([]string{
		"-v", "--mount-at", "/docs", "rewrite", "a.js", "b", "-j", "3", "--ext", ".js", "--ext", ".mjs", "--dry-run",
	})
	require.NoError(t, err)

	assert.Equal(t, "rewrite", kctx.Selected().Name)
	require.NotNil(t, cli.MountAt)
	assert.Equal(t, "/docs", *cli.MountAt)
	assert.True(t, cli.Verbose)
	assert.Equal(t, config.DefaultConfigFile, cli.Config)
	assert.Equal(t, []string{"a.js", "b"}, cli.Rewrite.Paths)
	assert.Equal(t, 3, cli.Rewrite.Jobs)
	assert.Equal(t, []string{".js", ".mjs"}, cli.Rewrite.Ext)
	assert.True(t, cli.Rewrite.DryRun)

	assert.NotEmpty(t, g.RunID, "AfterApply assigns a run id")
	assert.NotNil(t, g.Logger)
}

func TestCLI_MountAtAbsentIsNil(t *testing.T) {
	cli := &CLI{}
	_, err := newParser(t, cli, &Global{}).Parse([]string{"rewrite"})
	require.NoError(t, err)
	assert.Nil(t, cli.MountAt)
	assert.Empty(t, cli.Rewrite.Paths)
}

func TestCLI_WatchRequiresOutDir(t *testing.T) {
	cli := &CLI{}
	_, err := newParser(t, cli, &Global{}).Parse([]string{"watch", t.TempDir()})
	require.Error(t, err)
}

func TestRewriteCommand(t *testing.T) {
	tree := testutil.NewTree(t).
		Write("site/Page.js", `var u = "/packages"; _elm_lang$html$Html_Attributes$href("/");`).
		Write("mountrewrite.yaml", "concurrency: 2\n")

	err := execute(t,
		"-c", tree.Path("mountrewrite.yaml"),
		"--mount-at", "/docs/",
		"--metrics-textfile", tree.Path("metrics.prom"),
		"rewrite", tree.Path("site"))
	require.NoError(t, err)

	tree.AssertContent("site/Page.js", `var u = "/docs/packages"; _elm_lang$html$Html_Attributes$href("/docs/");`)
	prom := tree.Read("metrics.prom")
	assert.Contains(t, prom, `mountrewrite_file_results_total{result="rewritten"} 1`)
	assert.Contains(t, prom, `mountrewrite_rewrites_total{rule="href"} 1`)
}

func TestAssetsCommand(t *testing.T) {
	tree := testutil.NewTree(t).WriteGzip("assets/fonts/_hints_on.css.gz", "src: url(/assets/fonts/a.woff2);")

	require.NoError(t, execute(t, "--mount-at", "/docs", "assets", tree.Path("assets")))
	tree.AssertContent("assets/fonts/_hints_on.css", "src: url(/docs/assets/fonts/a.woff2);")
}

func TestRewriteCommand_ParseFailureExitCode(t *testing.T) {
	tree := testutil.NewTree(t).Write("Broken.js", "var = ;")

	err := execute(t, "--mount-at", "/docs", "rewrite", tree.Path("Broken.js"))
	require.Error(t, err)
	assert.Equal(t, 3, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestRewriteCommand_MissingExplicitConfig(t *testing.T) {
	err := execute(t, "-c", filepath.Join(t.TempDir(), "absent.yaml"), "--mount-at", "/docs", "rewrite", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, 7, ferrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestInitCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "mountrewrite.yaml")
	require.NoError(t, execute(t, "-c", cfgPath, "init"))
	_, err := os.Stat(cfgPath)
	require.NoError(t, err)

	require.Error(t, execute(t, "-c", cfgPath, "init"))
	require.NoError(t, execute(t, "-c", cfgPath, "init", "--force"))
}
