package yamlite

import "strings"

// line is one significant (non-blank, non-comment) source line
type line struct {
	num    int // 1-based line number in the raw source
	indent int
	tab    bool // indentation contains a tab
	text   string
}

// splitLines returns the raw source lines and the significant lines with
// indentation measured and trailing comments removed. Raw lines are kept for
// block scalars, which must see blank lines and '#' characters verbatim.
func splitLines(src string) ([]string, []line) {
	src = strings.TrimPrefix(src, "\ufeff")
	src = strings.ReplaceAll(src, "\r\n", "\n")
	// a final newline terminates the last line rather than starting a new one
	raw := strings.Split(strings.TrimSuffix(src, "\n"), "\n")

	lines := make([]line, 0, len(raw))
	for i, r := range raw {
		body := strings.TrimLeft(r, " \t")
		if body == "" || body[0] == '#' {
			continue
		}
		lead := r[:len(r)-len(body)]
		text := strings.TrimRight(stripComment(body), " \t")
		if text == "" {
			continue
		}
		lines = append(lines, line{
			num:    i + 1,
			indent: leadingSpaces(lead),
			tab:    strings.ContainsRune(lead, '\t'),
			text:   text,
		})
	}
	return raw, lines
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}

// quoteOpens reports whether a quote character at s[i] starts a quoted
// scalar. Quotes only count at value-start positions; an apostrophe inside a
// plain scalar ("don't") is just text.
func quoteOpens(s string, i int) bool {
	if i == 0 {
		return true
	}
	switch s[i-1] {
	case '[', '{', ',':
		return true
	case ' ':
	default:
		return false
	}
	j := i - 1
	for j >= 0 && s[j] == ' ' {
		j--
	}
	if j < 0 {
		return true
	}
	switch s[j] {
	case ':', '-', '[', '{', ',', '?':
		return true
	}
	return false
}

// stripComment removes a trailing "# comment" that sits outside quotes
func stripComment(s string) string {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == '"':
			if c == '\\' {
				i++
			} else if c == '"' {
				quote = 0
			}
		case quote == '\'':
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
				} else {
					quote = 0
				}
			}
		case c == '"' || c == '\'':
			if quoteOpens(s, i) {
				quote = c
			}
		case c == '#':
			if i == 0 || s[i-1] == ' ' || s[i-1] == '\t' {
				return s[:i]
			}
		}
	}
	return s
}

// flowDepth returns the bracket nesting left open at the end of s
func flowDepth(s string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == '"':
			if c == '\\' {
				i++
			} else if c == '"' {
				quote = 0
			}
		case quote == '\'':
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					i++
				} else {
					quote = 0
				}
			}
		case c == '"' || c == '\'':
			if quoteOpens(s, i) {
				quote = c
			}
		case c == '[' || c == '{':
			depth++
		case c == ']' || c == '}':
			depth--
		}
	}
	return depth
}

func isSeqItem(text string) bool {
	return text == "-" || strings.HasPrefix(text, "- ")
}

// splitKey splits "key: value" at the first key separator. The returned
// offset is the byte offset of the value inside text. Quoted keys are
// returned unquoted.
func splitKey(text string) (key string, quoted bool, rest string, off int, ok bool) {
	if text == "" {
		return "", false, "", 0, false
	}

	switch text[0] {
	case '"', '\'':
		val, end, err := scanQuoted(text, 0)
		if err != nil {
			return "", false, "", 0, false
		}
		j := end
		for j < len(text) && text[j] == ' ' {
			j++
		}
		if j < len(text) && text[j] == ':' && (j+1 == len(text) || text[j+1] == ' ') {
			k := j + 1
			for k < len(text) && text[k] == ' ' {
				k++
			}
			return val, true, text[k:], k, true
		}
		return "", false, "", 0, false
	case '[', '{':
		return "", false, "", 0, false
	}

	for i := 0; i < len(text); i++ {
		if text[i] != ':' {
			continue
		}
		if i+1 == len(text) || text[i+1] == ' ' {
			k := i + 1
			for k < len(text) && text[k] == ' ' {
				k++
			}
			return strings.TrimRight(text[:i], " "), false, text[k:], k, true
		}
	}
	return "", false, "", 0, false
}

// checkUnsupported rejects anchors, aliases and tags at a value-start
// position. v must begin at that position.
func checkUnsupported(v string, lineNum, col int) *ParseError {
	if v == "" {
		return nil
	}
	name := v
	if i := strings.IndexAny(v, " ,]}"); i > 0 {
		name = v[:i]
	}
	switch v[0] {
	case '&':
		if len(v) > 1 && v[1] != ' ' {
			return newError(ErrAnchor, lineNum, col, "anchors are not supported (%s)", name)
		}
	case '*':
		if len(v) > 1 && v[1] != ' ' {
			return newError(ErrAlias, lineNum, col, "aliases are not supported (%s)", name)
		}
	case '!':
		return newError(ErrTag, lineNum, col, "tags are not supported (%s)", name)
	case '@', '`':
		return newError(ErrSyntax, lineNum, col, "reserved indicator %q cannot start a plain scalar", v[0])
	}
	return nil
}
