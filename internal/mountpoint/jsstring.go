package mountpoint

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	lineSeparator      = '\u2028'
	paragraphSeparator = '\u2029'
)

// decodeString returns the value of a string literal given the text between
// its quotes. Malformed escapes decode to the escaped character, matching how
// sloppy-mode engines treat unknown escapes.
func decodeString(body string) string {
	if !strings.Contains(body, `\`) {
		return body
	}

	runes := make([]rune, 0, len(body))
	for i := 0; i < len(body); {
		if body[i] != '\\' {
			r, size := utf8.DecodeRuneInString(body[i:])
			runes = append(runes, r)
			i += size
			continue
		}
		i++
		if i >= len(body) {
			break
		}

		switch c := body[i]; c {
		case 'n':
			runes = append(runes, '\n')
			i++
		case 't':
			runes = append(runes, '\t')
			i++
		case 'r':
			runes = append(runes, '\r')
			i++
		case 'b':
			runes = append(runes, '\b')
			i++
		case 'f':
			runes = append(runes, '\f')
			i++
		case 'v':
			runes = append(runes, '\v')
			i++
		case '\n':
			i++
		case '\r':
			i++
			if i < len(body) && body[i] == '\n' {
				i++
			}
		case 'x':
			if r, ok := parseHex(body, i+1, 2); ok {
				runes = append(runes, r)
				i += 3
			} else {
				runes = append(runes, 'x')
				i++
			}
		case 'u':
			r, n := decodeUnicodeEscape(body, i+1)
			if n == 0 {
				runes = append(runes, 'u')
				i++
			} else {
				runes = append(runes, r)
				i += 1 + n
			}
		case '0', '1', '2', '3', '4', '5', '6', '7':
			r, n := decodeLegacyOctal(body, i)
			runes = append(runes, r)
			i += n
		default:
			r, size := utf8.DecodeRuneInString(body[i:])
			if r != lineSeparator && r != paragraphSeparator {
				runes = append(runes, r)
			}
			i += size
		}
	}
	return string(joinSurrogates(runes))
}

// decodeUnicodeEscape decodes the part of a \u escape after the "u", either
// XXXX or {X...}. It returns the code point and the bytes consumed, or 0
// consumed when the escape is malformed.
func decodeUnicodeEscape(s string, at int) (rune, int) {
	if at < len(s) && s[at] == '{' {
		end := strings.IndexByte(s[at:], '}')
		if end < 2 {
			return 0, 0
		}
		v, err := strconv.ParseUint(s[at+1:at+end], 16, 32)
		if err != nil || v > utf8.MaxRune {
			return 0, 0
		}
		return rune(v), end + 1
	}
	r, ok := parseHex(s, at, 4)
	if !ok {
		return 0, 0
	}
	return r, 4
}

func decodeLegacyOctal(s string, at int) (rune, int) {
	maxDigits := 2
	if s[at] <= '3' {
		maxDigits = 3
	}
	v := 0
	n := 0
	for n < maxDigits && at+n < len(s) && s[at+n] >= '0' && s[at+n] <= '7' {
		v = v*8 + int(s[at+n]-'0')
		n++
	}
	return rune(v), n
}

func parseHex(s string, at, digits int) (rune, bool) {
	if at+digits > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[at:at+digits], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}

// joinSurrogates combines UTF-16 surrogate pairs produced by \u escapes.
// Lone surrogates are left for string() to turn into U+FFFD.
func joinSurrogates(runes []rune) []rune {
	out := runes[:0]
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if utf16.IsSurrogate(r) && i+1 < len(runes) {
			if combined := utf16.DecodeRune(r, runes[i+1]); combined != utf8.RuneError {
				out = append(out, combined)
				i++
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// escapeString renders s as the body of a literal quoted with quote.
func escapeString(s string, quote byte) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteByte(quote)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == lineSeparator || r == paragraphSeparator:
			fmt.Fprintf(&b, `\u%04x`, r)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
