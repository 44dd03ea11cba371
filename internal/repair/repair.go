package repair

import (
	"fmt"
	"strings"
	"unicode/utf8"

	gojson "github.com/goccy/go-json"
)

// maxDepth bounds container nesting; deeper input is returned untouched
const maxDepth = 512

// Repair rewrites JSON-like text into text a strict parser is more likely to
// accept: comments stripped, commas normalized, keys and single-quoted strings
// requoted, stray quotes and control characters escaped, unbalanced strings and
// brackets closed.
//
// Text whose first significant character cannot start a JSON value is returned
// verbatim as a single JSON string literal. Callers decide whether that result
// is meaningful.
func Repair(text string) string {
	r := &repairer{in: strings.TrimPrefix(text, "\uFEFF")}

	r.skipSpace()
	if r.eof() {
		return text
	}

	if !startsValue(r.peek()) {
		if lit, ok := literal(strings.TrimSpace(r.in[r.pos:])); ok {
			return lit
		}
		if !utf8.ValidString(text) {
			return text
		}
		return quote(text)
	}

	r.value(0)
	if r.failed {
		return text
	}

	// Drop stray closers after the top-level value; keep anything else so a
	// strict parse still rejects it.
	r.skipSpace()
	rest := strings.TrimLeft(r.in[r.pos:], "}] \t\r\n")
	if rest != "" {
		r.out.puts(r.in[r.pos:])
	}
	return string(r.out)
}

type repairer struct {
	in     string
	pos    int
	out    output
	failed bool
}

func (r *repairer) eof() bool  { return r.pos >= len(r.in) }
func (r *repairer) peek() byte { return r.in[r.pos] }

// skipSpace skips whitespace and comments
func (r *repairer) skipSpace() {
	for !r.eof() {
		c := r.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			r.pos++
		case c == '/' && r.pos+1 < len(r.in) && r.in[r.pos+1] == '/':
			end := strings.IndexByte(r.in[r.pos:], '\n')
			if end < 0 {
				r.pos = len(r.in)
			} else {
				r.pos += end + 1
			}
		case c == '/' && r.pos+1 < len(r.in) && r.in[r.pos+1] == '*':
			end := strings.Index(r.in[r.pos+2:], "*/")
			if end < 0 {
				r.pos = len(r.in)
			} else {
				r.pos += end + 4
			}
		default:
			return
		}
	}
}

// skipSeparators skips whitespace, comments and commas. Commas are re-emitted
// by the container loops, which drops trailing and repeated ones.
func (r *repairer) skipSeparators() {
	for {
		r.skipSpace()
		if r.eof() || r.peek() != ',' {
			return
		}
		r.pos++
	}
}

func (r *repairer) value(depth int) {
	if depth > maxDepth {
		r.failed = true
		return
	}
	r.skipSpace()
	if r.eof() {
		r.out.puts("null")
		return
	}

	switch c := r.peek(); {
	case c == '{':
		r.object(depth + 1)
	case c == '[':
		r.array(depth + 1)
	case c == '"' || c == '\'':
		r.str()
	case c == ',' || c == ':' || c == '}' || c == ']':
		r.out.puts("null")
	default:
		r.scalar()
	}
}

func (r *repairer) object(depth int) {
	r.pos++
	r.out.put('{')

	count := 0
	for !r.failed {
		r.skipSeparators()
		if r.eof() {
			break
		}
		c := r.peek()
		if c == '}' || c == ']' {
			r.pos++
			break
		}

		mark := len(r.out)
		if count > 0 {
			r.out.put(',')
		}
		if !r.key() {
			r.out = r.out[:mark]
			continue
		}

		r.skipSpace()
		for !r.eof() && r.peek() == ':' {
			r.pos++
			r.skipSpace()
		}
		r.out.put(':')
		r.value(depth)
		count++
	}
	r.out.put('}')
}

func (r *repairer) array(depth int) {
	r.pos++
	r.out.put('[')

	count := 0
	for !r.failed {
		r.skipSeparators()
		if r.eof() {
			break
		}
		c := r.peek()
		if c == ']' || c == '}' {
			r.pos++
			break
		}
		if c == ':' {
			r.pos++
			continue
		}

		if count > 0 {
			r.out.put(',')
		}
		r.value(depth)
		count++
	}
	r.out.put(']')
}

// key emits an object key. It reports false after consuming a character that
// cannot start a key.
func (r *repairer) key() bool {
	c := r.peek()
	if c == '"' || c == '\'' {
		r.str()
		return true
	}

	start := r.pos
	for !r.eof() && !isSpace(r.peek()) && !strings.ContainsRune(":,{}[]\"'", rune(r.peek())) {
		r.pos++
	}
	if r.pos == start {
		r.pos++
		return false
	}
	r.out.puts(quote(r.in[start:r.pos]))
	return true
}

// str copies a quoted string, deciding for each matching quote whether it
// closes the string or is a stray character inside it
func (r *repairer) str() {
	q := r.peek()
	r.pos++
	r.out.put('"')

	for !r.eof() {
		c := r.peek()
		switch {
		case c == '\\':
			r.escape()
		case c == q:
			r.pos++
			if r.closes() {
				r.out.put('"')
				return
			}
			if q == '"' {
				r.out.puts(`\"`)
			} else {
				r.out.put(c)
			}
		case c == '"':
			r.pos++
			r.out.puts(`\"`)
		case c < 0x20:
			r.pos++
			r.out.puts(controlEscape(c))
		default:
			r.pos++
			r.out.put(c)
		}
	}
	r.out.put('"')
}

// closes reports whether a quote just consumed ends its string: it does when
// followed by a delimiter, a line break, a comment or the end of input
func (r *repairer) closes() bool {
	i := r.pos
	for i < len(r.in) && (r.in[i] == ' ' || r.in[i] == '\t') {
		i++
	}
	if i >= len(r.in) {
		return true
	}
	switch r.in[i] {
	case ',', ':', '}', ']', '\n', '\r', '/':
		return true
	}
	return false
}

func (r *repairer) escape() {
	if r.pos+1 >= len(r.in) {
		r.pos++
		r.out.puts(`\\`)
		return
	}
	n := r.in[r.pos+1]
	switch n {
	case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
		r.out.put('\\')
		r.out.put(n)
		r.pos += 2
	case '\'':
		r.out.put('\'')
		r.pos += 2
	case 'u':
		if r.pos+6 <= len(r.in) && isHex4(r.in[r.pos+2:r.pos+6]) {
			r.out.puts(r.in[r.pos : r.pos+6])
			r.pos += 6
			return
		}
		r.out.puts(`\\`)
		r.pos++
	default:
		r.out.puts(`\\`)
		r.pos++
	}
}

// scalar handles numbers, literals and bare words in value position
func (r *repairer) scalar() {
	start := r.pos
	for !r.eof() && !isSpace(r.peek()) && !strings.ContainsRune(",:}]{[\"'", rune(r.peek())) {
		r.pos++
	}
	tok := r.in[start:r.pos]

	if num, ok := number(tok); ok {
		r.out.puts(num)
		return
	}
	if lit, ok := literal(tok); ok {
		r.out.puts(lit)
		return
	}

	// bare word: extend to the end of the line or the next delimiter
	for !r.eof() && !strings.ContainsRune(",}]\n\r", rune(r.peek())) {
		r.pos++
	}
	word := strings.TrimSpace(r.in[start:r.pos])
	if word == "" {
		r.pos++
		r.out.puts("null")
		return
	}
	r.out.puts(quote(word))
}

// number normalizes lenient numeric spellings (.5, 5., +3, 007) into JSON
func number(tok string) (string, bool) {
	if tok == "" || !strings.ContainsAny(tok[:1], "+-.0123456789") {
		return "", false
	}
	s := strings.TrimPrefix(tok, "+")
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	mant, exp := s, ""
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		mant, exp = s[:i], s[i:]
	}
	if strings.HasPrefix(mant, ".") {
		mant = "0" + mant
	}
	if strings.HasSuffix(mant, ".") {
		mant += "0"
	}
	intPart, frac := mant, ""
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		intPart, frac = mant[:i], mant[i:]
	}
	if len(intPart) > 1 {
		intPart = strings.TrimLeft(intPart, "0")
		if intPart == "" {
			intPart = "0"
		}
	}

	out := sign + intPart + frac + exp
	if !gojson.Valid([]byte(out)) {
		return "", false
	}
	return out, true
}

func literal(tok string) (string, bool) {
	switch tok {
	case "true", "True", "TRUE":
		return "true", true
	case "false", "False", "FALSE":
		return "false", true
	case "null", "None", "NULL", "undefined":
		return "null", true
	}
	return "", false
}

func startsValue(c byte) bool {
	return strings.IndexByte(`{["'-+.0123456789`, c) >= 0
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isHex4(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return len(s) == 4
}

func controlEscape(c byte) string {
	switch c {
	case '\n':
		return `\n`
	case '\r':
		return `\r`
	case '\t':
		return `\t`
	case '\b':
		return `\b`
	case '\f':
		return `\f`
	}
	return fmt.Sprintf(`\u%04x`, c)
}

func quote(s string) string {
	b, err := gojson.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

// output is the rewritten text. Dropping a partly written member reslices it.
type output []byte

func (o *output) put(c byte) { *o = append(*o, c) }
func (o *output) puts(s string) { *o = append(*o, s...) }
