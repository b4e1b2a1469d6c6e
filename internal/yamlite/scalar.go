package yamlite

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// scanQuoted reads the quoted scalar starting at s[start] and returns its
// value and the offset just past the closing quote. Errors carry a column
// relative to s and no line; callers fill in the position.
func scanQuoted(s string, start int) (string, int, *ParseError) {
	q := s[start]
	var b strings.Builder
	i := start + 1

	for i < len(s) {
		c := s[i]
		if q == '\'' {
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					b.WriteByte('\'')
					i += 2
					continue
				}
				return b.String(), i + 1, nil
			}
			b.WriteByte(c)
			i++
			continue
		}

		switch c {
		case '"':
			return b.String(), i + 1, nil
		case '\\':
			if i+1 >= len(s) {
				return "", 0, newError(ErrUnterminated, 0, start+1, "unterminated double-quoted string")
			}
			n, r, err := unescape(s[i+1:])
			if err != nil {
				err.Column = i + 1
				return "", 0, err
			}
			b.WriteString(r)
			i += 1 + n
		default:
			b.WriteByte(c)
			i++
		}
	}

	kind := "double-quoted"
	if q == '\'' {
		kind = "single-quoted"
	}
	return "", 0, newError(ErrUnterminated, 0, start+1, "unterminated %s string", kind)
}

var simpleEscapes = map[byte]string{
	'0': "\x00", 'a': "\a", 'b': "\b", 't': "\t", '\t': "\t", 'n': "\n",
	'v': "\v", 'f': "\f", 'r': "\r", 'e': "\x1b", ' ': " ", '"': "\"",
	'/': "/", '\\': "\\", 'N': "\u0085", '_': "\u00a0", 'L': "\u2028",
	'P': "\u2029",
}

// unescape decodes the escape sequence at the start of s (the part after the
// backslash) and returns how many bytes it consumed.
func unescape(s string) (int, string, *ParseError) {
	if r, ok := simpleEscapes[s[0]]; ok {
		return 1, r, nil
	}

	width := 0
	switch s[0] {
	case 'x':
		width = 2
	case 'u':
		width = 4
	case 'U':
		width = 8
	default:
		return 0, "", newError(ErrSyntax, 0, 0, "invalid escape sequence \\%c", s[0])
	}

	if len(s) < 1+width {
		return 0, "", newError(ErrSyntax, 0, 0, "truncated escape sequence \\%s", s)
	}
	code, err := strconv.ParseUint(s[1:1+width], 16, 32)
	if err != nil || !utf8.ValidRune(rune(code)) {
		return 0, "", newError(ErrSyntax, 0, 0, "invalid escape sequence \\%s", s[:1+width])
	}
	return 1 + width, string(rune(code)), nil
}

type chomping int

const (
	chompClip chomping = iota
	chompStrip
	chompKeep
)

// parseBlockScalar reads a literal (|) or folded (>) block scalar. Content is
// taken from the raw source lines following the header so interior blank
// lines survive exactly.
func (p *parser) parseBlockScalar(header string, lineNum, col, indent int) (*Node, error) {
	style := LiteralStyle
	if header[0] == '>' {
		style = FoldedStyle
	}

	chomp := chompClip
	explicit := 0
	for i := 1; i < len(header); i++ {
		c := header[i]
		switch {
		case c == '-' && chomp == chompClip:
			chomp = chompStrip
		case c == '+' && chomp == chompClip:
			chomp = chompKeep
		case c >= '1' && c <= '9' && explicit == 0:
			explicit = int(c - '0')
		default:
			return nil, newError(ErrSyntax, lineNum, col+i, "invalid block scalar header %q", header)
		}
	}

	contentIndent := 0
	if explicit > 0 {
		contentIndent = max(indent, 0) + explicit
	}

	var body []string
	blanks := 0
	end := lineNum
	for i := lineNum; i < len(p.raw); i++ {
		raw := p.raw[i]
		if strings.TrimSpace(raw) == "" {
			blanks++
			continue
		}
		ind := leadingSpaces(raw)
		if contentIndent == 0 {
			if ind <= indent {
				break
			}
			contentIndent = ind
		}
		if ind < contentIndent {
			break
		}
		for ; blanks > 0; blanks-- {
			body = append(body, "")
		}
		body = append(body, strings.TrimRight(raw[contentIndent:], "\r"))
		end = i + 1
	}

	var value string
	if style == LiteralStyle {
		value = strings.Join(body, "\n")
	} else {
		value = fold(body)
	}

	if len(body) > 0 {
		switch chomp {
		case chompClip:
			value += "\n"
		case chompKeep:
			value += strings.Repeat("\n", blanks+1)
		}
	} else if chomp == chompKeep {
		value = strings.Repeat("\n", blanks)
	}

	for p.pos < len(p.lines) && p.lines[p.pos].num <= end {
		p.pos++
	}

	return &Node{
		Kind:   ScalarNode,
		Style:  style,
		Value:  value,
		Line:   lineNum,
		Column: col,
	}, nil
}

// fold joins folded block lines: adjacent regular lines are joined with a
// space, blank lines become newlines and more-indented lines keep their
// line breaks.
func fold(lines []string) string {
	var b strings.Builder
	prevRegular := false
	blanks := 0
	first := true

	for _, l := range lines {
		if l == "" {
			blanks++
			continue
		}
		more := l[0] == ' ' || l[0] == '\t'
		switch {
		case first:
			b.WriteString(strings.Repeat("\n", blanks))
		case prevRegular && !more && blanks == 0:
			b.WriteByte(' ')
		case prevRegular && !more:
			b.WriteString(strings.Repeat("\n", blanks))
		default:
			b.WriteString(strings.Repeat("\n", blanks+1))
		}
		b.WriteString(l)
		blanks = 0
		first = false
		prevRegular = !more
	}
	return b.String()
}
