package mountpoint

import (
	"errors"
	"fmt"
)

// ErrSyntax is matched by every ParseError via errors.Is.
var ErrSyntax = errors.New("syntax error")

// ParseError reports source text that is not valid JavaScript. No rewriting is
// attempted when it is returned.
type ParseError struct {
	File   string // empty when the source has no name
	Line   int    // 1-based
	Column int    // 1-based, in bytes
	Reason string // "unexpected input" or "missing <token>"
	Near   string // first line of the offending text, truncated
}

func (e *ParseError) Error() string {
	loc := fmt.Sprintf("%d:%d", e.Line, e.Column)
	if e.File != "" {
		loc = e.File + ":" + loc
	}
	if e.Near == "" {
		return fmt.Sprintf("%s: %s: %s", loc, ErrSyntax, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s near %q", loc, ErrSyntax, e.Reason, e.Near)
}

func (e *ParseError) Unwrap() error { return ErrSyntax }
