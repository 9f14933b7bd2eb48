package mountpoint

import "testing"

func TestDecodeString(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`/packages`, "/packages"},
		{`\/packages`, "/packages"},
		{`/assets/`, "/assets/"},
		{`\u{2F}assets/`, "/assets/"},
		{`\x2fnew-packages`, "/new-packages"},
		{`\057all-packages`, "/all-packages"},
		{`a\nb\tc\\d`, "a\nb\tc\\d"},
		{`it\'s`, "it's"},
		{`say \"hi\"`, `say "hi"`},
		{"line\\\ncontinued", "linecontinued"},
		{"line\\\r\ncontinued", "linecontinued"},
		{`\0`, "\x00"},
		{`\uD83D\uDE00`, "\U0001F600"},
		{`\uD83D`, "\uFFFD"},
		{`\q`, "q"},
		{`\xZZ`, "xZZ"},
		{`\u12`, "u12"},
		{`trailing\`, "trailing"},
		{`héllo`, "héllo"},
	}
	for _, tt := range tests {
		if got := decodeString(tt.body); got != tt.want {
			t.Errorf("decodeString(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestEscapeString(t *testing.T) {
	tests := []struct {
		in    string
		quote byte
		want  string
	}{
		{"/docs", '"', "/docs"},
		{`it's`, '\'', `it\'s`},
		{`it's`, '"', `it's`},
		{`a "b"`, '"', `a \"b\"`},
		{`back\slash`, '"', `back\\slash`},
		{"new\nline", '"', `new\nline`},
		{"bell\a", '"', `bell\x07`},
		{"sep\u2028", '"', `sep\u2028`},
		{"/dócs", '"', "/dócs"},
	}
	for _, tt := range tests {
		got := escapeString(tt.in, tt.quote)
		if got != tt.want {
			t.Errorf("escapeString(%q, %q) = %q, want %q", tt.in, tt.quote, got, tt.want)
		}
		if back := decodeString(got); back != tt.in {
			t.Errorf("decodeString(escapeString(%q)) = %q", tt.in, back)
		}
	}
}

func TestMatchesPathPrefix(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"/packages", true},
		{"/packages/elm/core/latest", true},
		{"/all-packages", true},
		{"/all-packages/search.json", true},
		{"/new-packages", true},
		{"/assets/", true},
		{"/assets/favicon.ico", true},
		{"/assets", false},
		{"/asset/x", false},
		{"/", false},
		{"", false},
		{"packages", false},
		{"//packages", false},
		{"/Packages", false},
		{"/help/documentation-format", false},
	}
	for _, tt := range tests {
		if got := MatchesPathPrefix(tt.value); got != tt.want {
			t.Errorf("MatchesPathPrefix(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
