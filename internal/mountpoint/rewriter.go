package mountpoint

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"
)

// Rewriter prefixes site paths in JavaScript source with a mount point.
// It holds no per-call state and is safe for concurrent use.
type Rewriter struct {
	hrefCallee string
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithHrefCallee overrides the identifier whose root-href calls are rewritten.
// Empty names are ignored.
func WithHrefCallee(name string) Option {
	return func(r *Rewriter) {
		if name != "" {
			r.hrefCallee = name
		}
	}
}

// New returns a Rewriter using DefaultHrefCallee unless overridden.
func New(opts ...Option) *Rewriter {
	r := &Rewriter{hrefCallee: DefaultHrefCallee}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HrefCallee returns the identifier matched for root-href calls.
func (r *Rewriter) HrefCallee() string { return r.hrefCallee }

// Result is the outcome of one rewrite.
type Result struct {
	Source   []byte
	Changed  bool // Source differs from the input
	Skipped  bool // mount point unset, input returned untouched
	Literals int  // string literals prefixed
	Hrefs    int  // root-href calls rewritten
}

// Rewrite applies both rewrites to src. With an unset mount point src is
// returned as is and nothing is parsed.
func (r *Rewriter) Rewrite(ctx context.Context, src []byte, mp MountPoint) (Result, error) {
	return r.RewriteFile(ctx, "", src, mp)
}

// RewriteFile is Rewrite with a file name attached to any ParseError.
func (r *Rewriter) RewriteFile(ctx context.Context, name string, src []byte, mp MountPoint) (Result, error) {
	mount, ok := mp.Value()
	if !ok {
		return Result{Source: src, Skipped: true}, nil
	}

	root, err := parse(ctx, name, src)
	if err != nil {
		return Result{}, err
	}

	literals := prefixLiterals(root, mount)
	hrefs := rewriteHrefCalls(root, r.hrefCallee, mount)

	out, err := splice(src, append(literals, hrefs...))
	if err != nil {
		return Result{}, err
	}
	return Result{
		Source:   out,
		Changed:  !bytes.Equal(out, src),
		Literals: len(literals),
		Hrefs:    len(hrefs),
	}, nil
}

// splice applies non-overlapping edits to src.
func splice(src []byte, edits []edit) ([]byte, error) {
	if len(edits) == 0 {
		return src, nil
	}
	slices.SortFunc(edits, func(a, b edit) int { return cmp.Compare(a.span.Start, b.span.Start) })

	grow := 0
	for _, e := range edits {
		grow += len(e.text) - (e.span.End - e.span.Start)
	}
	var out bytes.Buffer
	out.Grow(len(src) + max(grow, 0))

	pos := 0
	for _, e := range edits {
		if e.span.Start < pos {
			return nil, fmt.Errorf("overlapping rewrites at byte %d", e.span.Start)
		}
		out.Write(src[pos:e.span.Start])
		out.WriteString(e.text)
		pos = e.span.End
	}
	out.Write(src[pos:])
	return out.Bytes(), nil
}
