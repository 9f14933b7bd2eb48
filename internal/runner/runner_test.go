package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/mountrewrite/internal/foundation/errors"
	"git.home.luguber.info/inful/mountrewrite/internal/metrics"
	"git.home.luguber.info/inful/mountrewrite/internal/mountpoint"
	"git.home.luguber.info/inful/mountrewrite/internal/retry"
	"git.home.luguber.info/inful/mountrewrite/internal/testutil"
)

const (
	changedJS   = `var u = "/packages/elm/core";` + "\n"
	rewrittenJS = `var u = "/docs/packages/elm/core";` + "\n"
	unchangedJS = `var u = "/elsewhere";` + "\n"
	invalidJS   = "var = ;\n"
)

type recordingRecorder struct {
	mu       sync.Mutex
	results  map[metrics.ResultLabel]int
	rewrites map[metrics.RuleLabel]int
	runs     int
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{
		results:  make(map[metrics.ResultLabel]int),
		rewrites: make(map[metrics.RuleLabel]int),
	}
}

func (r *recordingRecorder) ObserveFileDuration(time.Duration) {}
func (r *recordingRecorder) IncAssetResult(metrics.ResultLabel) {}

func (r *recordingRecorder) IncFileResult(l metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[l]++
}

func (r *recordingRecorder) AddRewrites(rule metrics.RuleLabel, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rewrites[rule] += n
}

func (r *recordingRecorder) ObserveRunDuration(time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRunner(mp mountpoint.MountPoint, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	return New(mountpoint.New(), mp, opts)
}

func TestRun_InPlace(t *testing.T) {
	tree := testutil.NewTree(t).WriteFiles(map[string]string{
		"Page/Search.js":     changedJS,
		"elm.js":             unchangedJS,
		"notes.txt":          `"/packages"`,
		".cache/hidden.js":   changedJS,
		"nested/deep/App.js": `_elm_lang$html$Html_Attributes$href("/");`,
	})
	rec := newRecordingRecorder()

	summary, err := newRunner(mountpoint.At("/docs"), Options{Concurrency: 4, Recorder: rec}).
		Run(context.Background(), []string{tree.Root()})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Files)
	assert.Equal(t, 2, summary.Rewritten)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Equal(t, 1, summary.Literals)
	assert.Equal(t, 1, summary.Hrefs)

	tree.AssertContent("Page/Search.js", rewrittenJS).
		AssertContent("elm.js", unchangedJS).
		AssertContent("nested/deep/App.js", `_elm_lang$html$Html_Attributes$href("/docs/");`).
		AssertContent("notes.txt", `"/packages"`).
		AssertContent(".cache/hidden.js", changedJS)

	assert.Equal(t, 2, rec.results[metrics.ResultRewritten])
	assert.Equal(t, 1, rec.results[metrics.ResultUnchanged])
	assert.Equal(t, 1, rec.rewrites[metrics.RuleLiteral])
	assert.Equal(t, 1, rec.rewrites[metrics.RuleHref])
	assert.Equal(t, 1, rec.runs)
}

func TestRun_OutDirMirrorsLayout(t *testing.T) {
	src := testutil.NewTree(t).WriteFiles(map[string]string{
		"a/Page.js": changedJS,
		"elm.js":    unchangedJS,
	})
	out := testutil.NewTree(t)

	summary, err := newRunner(mountpoint.At("/docs"), Options{OutDir: out.Path("site")}).
		Run(context.Background(), []string{src.Root()})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rewritten)
	assert.Equal(t, 1, summary.Unchanged)

	src.AssertContent("a/Page.js", changedJS)
	out.AssertContent("site/a/Page.js", rewrittenJS).
		AssertContent("site/elm.js", unchangedJS)
}

func TestRun_OutDirInsideSourceIsNotRewalked(t *testing.T) {
	src := testutil.NewTree(t).WriteFiles(map[string]string{
		"Page.js":      changedJS,
		"dist/Page.js": "stale",
	})

	summary, err := newRunner(mountpoint.At("/docs"), Options{OutDir: src.Path("dist")}).
		Run(context.Background(), []string{src.Root()})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Files)
	src.AssertContent("dist/Page.js", rewrittenJS)
}

func TestRun_UnsetMountPointWritesNothing(t *testing.T) {
	src := testutil.NewTree(t).WriteFiles(map[string]string{"Page.js": changedJS, "broken.js": invalidJS})
	out := testutil.NewTree(t)

	summary, err := newRunner(mountpoint.Unset(), Options{OutDir: out.Path("site")}).
		Run(context.Background(), []string{src.Root()})
	require.NoError(t, err, "unset mount point never parses")
	assert.Equal(t, 2, summary.Skipped)
	assert.Zero(t, summary.Rewritten)

	out.AssertNotExists("site")
	src.AssertContent("Page.js", changedJS)
}

func TestRun_DryRun(t *testing.T) {
	src := testutil.NewTree(t).Write("Page.js", changedJS)

	summary, err := newRunner(mountpoint.At("/docs"), Options{DryRun: true}).
		Run(context.Background(), []string{src.Root()})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rewritten)
	src.AssertContent("Page.js", changedJS)
}

func TestRun_ParseErrorIsolatedToFile(t *testing.T) {
	src := testutil.NewTree(t).WriteFiles(map[string]string{
		"a.js":      changedJS,
		"broken.js": invalidJS,
		"c.js":      changedJS,
	})
	rec := newRecordingRecorder()

	summary, err := newRunner(mountpoint.At("/docs"), Options{Concurrency: 2, Recorder: rec}).
		Run(context.Background(), []string{src.Root()})
	require.Error(t, err)

	assert.Equal(t, 3, summary.Files)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Rewritten)
	assert.Equal(t, 1, rec.results[metrics.ResultFailed])

	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryParse))
	var pe *mountpoint.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, src.Path("broken.js"), pe.File)
	assert.Equal(t, 1, pe.Line)
	src.AssertContent("broken.js", invalidJS).
		AssertContent("a.js", rewrittenJS)
}

func TestRun_FailFastStopsScheduling(t *testing.T) {
	src := testutil.NewTree(t).WriteFiles(map[string]string{
		"a_broken.js": invalidJS,
		"b.js":        changedJS,
		"c.js":        changedJS,
	})

	summary, err := newRunner(mountpoint.At("/docs"), Options{Concurrency: 1, FailFast: true}).
		Run(context.Background(), []string{src.Root()})
	require.Error(t, err)
	assert.Equal(t, 1, summary.Files)
	assert.Equal(t, 1, summary.Failed)
	src.AssertContent("b.js", changedJS).
		AssertContent("c.js", changedJS)
}

func TestRun_Stdin(t *testing.T) {
	var stdout bytes.Buffer
	r := newRunner(mountpoint.At("/docs"), Options{
		Stdin:  strings.NewReader(changedJS),
		Stdout: &stdout,
	})
	summary, err := r.Run(context.Background(), []string{StdinPath})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rewritten)
	assert.Equal(t, rewrittenJS, stdout.String())
}

func TestRun_StdinEchoedWhenUnset(t *testing.T) {
	var stdout bytes.Buffer
	r := newRunner(mountpoint.Unset(), Options{
		Stdin:  strings.NewReader(invalidJS),
		Stdout: &stdout,
	})
	_, err := r.Run(context.Background(), []string{StdinPath})
	require.NoError(t, err)
	assert.Equal(t, invalidJS, stdout.String())
}

func TestRun_StdinParseErrorNamesStdin(t *testing.T) {
	r := newRunner(mountpoint.At("/docs"), Options{
		Stdin:  strings.NewReader(invalidJS),
		Stdout: io.Discard,
	})
	_, err := r.Run(context.Background(), []string{StdinPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<stdin>:1:")
}

func TestRun_InvalidInputs(t *testing.T) {
	t.Run("stdin twice", func(t *testing.T) {
		_, err := newRunner(mountpoint.At("/docs"), Options{}).
			Run(context.Background(), []string{StdinPath, StdinPath})
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := newRunner(mountpoint.At("/docs"), Options{}).
			Run(context.Background(), []string{filepath.Join(t.TempDir(), "absent.js")})
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
	})

	t.Run("output collision", func(t *testing.T) {
		src := testutil.NewTree(t).WriteFiles(map[string]string{"x/Page.js": changedJS, "y/Page.js": changedJS})
		_, err := newRunner(mountpoint.At("/docs"), Options{OutDir: t.TempDir()}).
			Run(context.Background(), []string{src.Path("x/Page.js"), src.Path("y/Page.js")})
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	})
}

func TestRun_OverlappingPathsRewriteOnce(t *testing.T) {
	src := testutil.NewTree(t).WriteFiles(map[string]string{
		"elm.js":    `var u = "/assets/x.css";` + "\n",
		"a/Page.js": changedJS,
	})

	for _, concurrency := range []int{1, 4} {
		summary, err := newRunner(mountpoint.At("/assets/v2"), Options{Concurrency: concurrency}).
			Run(context.Background(), []string{src.Root(), src.Path("elm.js"), src.Root(), src.Path("a/../a/Page.js")})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Files)
		assert.Equal(t, 2, summary.Literals)

		src.AssertContent("elm.js", `var u = "/assets/v2/assets/x.css";`+"\n")
		src.AssertContent("a/Page.js", `var u = "/assets/v2/packages/elm/core";`+"\n")
		src.Write("elm.js", `var u = "/assets/x.css";`+"\n").Write("a/Page.js", changedJS)
	}
}

func TestRun_ExplicitFileIgnoresExtensionFilter(t *testing.T) {
	src := testutil.NewTree(t).Write("bundle.mjs", changedJS)

	summary, err := newRunner(mountpoint.At("/docs"), Options{}).
		Run(context.Background(), []string{src.Path("bundle.mjs")})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rewritten)
	src.AssertContent("bundle.mjs", rewrittenJS)
}

func TestRun_PreservesFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Page.js")
	require.NoError(t, os.WriteFile(path, []byte(changedJS), 0o600))

	_, err := newRunner(mountpoint.At("/docs"), Options{}).Run(context.Background(), []string{path})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestRun_WriteFailureIsFilesystemError(t *testing.T) {
	src := testutil.NewTree(t).Write("Page.js", changedJS).Write("blocker", "")
	policy := retry.NewPolicy(retry.BackoffFixed, time.Millisecond, time.Millisecond, 1)

	summary, err := newRunner(mountpoint.At("/docs"), Options{OutDir: src.Path("blocker/out"), Retry: policy}).
		Run(context.Background(), []string{src.Path("Page.js")})
	require.Error(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func TestRun_CanceledContext(t *testing.T) {
	src := testutil.NewTree(t).Write("Page.js", changedJS)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := newRunner(mountpoint.At("/docs"), Options{}).Run(ctx, []string{src.Root()})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Rewritten)
	src.AssertContent("Page.js", changedJS)
}

func TestSummaryString(t *testing.T) {
	s := Summary{Files: 3, Rewritten: 1, Unchanged: 1, Failed: 1, Literals: 4, Hrefs: 1}
	assert.Equal(t, "files=3 rewritten=1 unchanged=1 skipped=0 failed=1 literals=4 hrefs=1", s.String())
}
