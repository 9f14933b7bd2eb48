package mountpoint

import "strings"

// DefaultHrefCallee is the identifier the Elm 0.18 compiler emits for
// Html.Attributes.href.
const DefaultHrefCallee = "_elm_lang$html$Html_Attributes$href"

const siteRoot = "/"

// pathPrefixes are the absolute site paths the frontend builds links from.
// Only /assets/ requires the trailing slash.
var pathPrefixes = []string{
	"/packages",
	"/all-packages",
	"/new-packages",
	"/assets/",
}

// MatchesPathPrefix reports whether a literal value is a site path that needs
// the mount point prepended.
func MatchesPathPrefix(value string) bool {
	for _, p := range pathPrefixes {
		if strings.HasPrefix(value, p) {
			return true
		}
	}
	return false
}

// edit replaces span of the source with text.
type edit struct {
	span Span
	text string
}

// prefixLiterals collects one edit per string literal whose value is a site path.
func prefixLiterals(root Node, mount string) []edit {
	var edits []edit
	Walk(root, func(n Node) bool {
		lit, ok := n.(*StringLit)
		if !ok || !MatchesPathPrefix(lit.Value) {
			return true
		}
		edits = append(edits, edit{
			span: lit.span,
			text: string(lit.Quote) + escapeString(mount, lit.Quote) + lit.Body + string(lit.Quote),
		})
		return true
	})
	return edits
}

// rewriteHrefCalls collects one edit per callee("/") call, replacing the whole call.
func rewriteHrefCalls(root Node, callee, mount string) []edit {
	var edits []edit
	Walk(root, func(n Node) bool {
		call, ok := n.(*CallExpr)
		if !ok {
			return true
		}
		lit, ok := rootHrefArgument(call, callee)
		if !ok {
			return true
		}
		edits = append(edits, edit{
			span: call.span,
			text: callee + "(" + string(lit.Quote) + escapeString(mount+siteRoot, lit.Quote) + string(lit.Quote) + ")",
		})
		// The only literal below is "/"; nothing else can match.
		return false
	})
	return edits
}

func rootHrefArgument(call *CallExpr, callee string) (*StringLit, bool) {
	if call.Optional || len(call.Args) != 1 {
		return nil, false
	}
	id, ok := unparen(call.Callee).(*Ident)
	if !ok || id.Name != callee {
		return nil, false
	}
	lit, ok := unparen(call.Args[0]).(*StringLit)
	if !ok || lit.Value != siteRoot {
		return nil, false
	}
	return lit, true
}
