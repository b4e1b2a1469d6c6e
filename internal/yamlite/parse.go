package yamlite

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

type parser struct {
	raw   []string
	lines []line
	pos   int
}

// Parse parses a single YAML document. Failures are returned as *ParseError.
func Parse(data []byte) (*Node, error) {
	raw, lines := splitLines(string(data))
	p := &parser{raw: raw, lines: lines}
	return p.parseDocument()
}

// ParseFile reads and parses path. Parse errors carry the file name.
func ParseFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	node, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Source = path
		}
		return nil, err
	}
	return node, nil
}

func (p *parser) parseDocument() (*Node, error) {
	if err := p.stripDocumentMarkers(); err != nil {
		return nil, err
	}
	if len(p.lines) == 0 {
		return &Node{Kind: ScalarNode, Line: 1, Column: 1}, nil
	}

	root, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	if p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.tab {
			return nil, tabError(ln)
		}
		if isSeqItem(ln.text) {
			return nil, newError(ErrSyntax, ln.num, ln.indent+1, "unexpected sequence item")
		}
		return nil, newError(ErrIndentation, ln.num, ln.indent+1, "unexpected indentation")
	}
	return root, nil
}

// stripDocumentMarkers drops a leading "---" and a trailing "..." and rejects
// directives and additional documents.
func (p *parser) stripDocumentMarkers() error {
	out := p.lines[:0]
	started := false
	ended := false

	for _, ln := range p.lines {
		if ln.indent == 0 {
			switch {
			case strings.HasPrefix(ln.text, "%"):
				if started {
					break
				}
				return newError(ErrSyntax, ln.num, 1, "directives are not supported (%s)", ln.text)
			case ln.text == "---":
				if started || ended {
					return newError(ErrMultipleDocuments, ln.num, 1, "multiple documents are not supported")
				}
				started = true
				continue
			case strings.HasPrefix(ln.text, "--- "):
				return newError(ErrSyntax, ln.num, 5, "content after a document marker is not supported")
			case ln.text == "...":
				ended = true
				continue
			}
		}
		if ended {
			return newError(ErrMultipleDocuments, ln.num, ln.indent+1, "content after document end marker")
		}
		started = true
		out = append(out, ln)
	}
	p.lines = out
	return nil
}

func tabError(ln line) *ParseError {
	return newError(ErrTab, ln.num, 1, "tabs are not allowed in indentation")
}

// parseBlock parses the block starting at the current line; that line's
// indentation defines the block.
func (p *parser) parseBlock() (*Node, error) {
	ln := p.lines[p.pos]
	if ln.tab {
		return nil, tabError(ln)
	}
	if isSeqItem(ln.text) {
		return p.parseSeq(ln.indent)
	}
	if _, _, _, _, ok := splitKey(ln.text); ok {
		return p.parseMap(ln.indent)
	}
	p.pos++
	return p.parseInline(ln.text, ln.num, ln.indent+1, ln.indent-1)
}

func (p *parser) parseMap(indent int) (*Node, error) {
	first := p.lines[p.pos]
	node := &Node{Kind: MappingNode, Line: first.num, Column: indent + 1}
	seen := make(map[string]bool)

	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.indent < indent {
			break
		}
		if ln.tab {
			return nil, tabError(ln)
		}
		if ln.indent > indent {
			return nil, newError(ErrIndentation, ln.num, ln.indent+1, "unexpected indentation")
		}
		if isSeqItem(ln.text) {
			break
		}

		key, quoted, rest, off, ok := splitKey(ln.text)
		if !ok {
			return nil, newError(ErrSyntax, ln.num, ln.indent+1, "expected a mapping entry (key: value), got %q", ln.text)
		}
		if !quoted {
			if key == "<<" {
				return nil, newError(ErrMergeKey, ln.num, ln.indent+1, "merge keys are not supported (<<)")
			}
			if key == "" {
				return nil, newError(ErrSyntax, ln.num, ln.indent+1, "empty mapping key")
			}
		}
		if seen[key] {
			return nil, newError(ErrDuplicateKey, ln.num, ln.indent+1, "duplicate key %q", key)
		}
		seen[key] = true

		p.pos++
		value, err := p.parseEntryValue(ln, indent, rest, ln.indent+off+1)
		if err != nil {
			return nil, err
		}
		node.Pairs = append(node.Pairs, Pair{Key: key, Line: ln.num, Value: value})
	}
	return node, nil
}

// parseEntryValue parses the value of a mapping entry whose inline part is
// rest. An empty rest means the value is a nested block, a compact sequence
// at the key's indentation, or null.
func (p *parser) parseEntryValue(ln line, indent int, rest string, col int) (*Node, error) {
	if rest != "" {
		return p.parseInline(rest, ln.num, col, indent)
	}
	if p.pos < len(p.lines) {
		next := p.lines[p.pos]
		if next.indent > indent {
			return p.parseBlock()
		}
		if next.indent == indent && isSeqItem(next.text) {
			return p.parseSeq(indent)
		}
	}
	return &Node{Kind: ScalarNode, Line: ln.num, Column: col}, nil
}

func (p *parser) parseSeq(indent int) (*Node, error) {
	first := p.lines[p.pos]
	node := &Node{Kind: SequenceNode, Line: first.num, Column: indent + 1}

	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.indent < indent {
			break
		}
		if ln.tab {
			return nil, tabError(ln)
		}
		if ln.indent > indent {
			return nil, newError(ErrIndentation, ln.num, ln.indent+1, "unexpected indentation")
		}
		if !isSeqItem(ln.text) {
			break
		}

		rest := strings.TrimLeft(ln.text[1:], " ")
		col := ln.indent + len(ln.text) - len(rest) + 1
		item, err := p.parseSeqItem(ln, indent, rest, col)
		if err != nil {
			return nil, err
		}
		node.Items = append(node.Items, item)
	}
	return node, nil
}

// parseSeqItem parses one "- ..." entry. Inline mappings and nested
// sequences continue on following lines at indent+2.
func (p *parser) parseSeqItem(ln line, indent int, rest string, col int) (*Node, error) {
	if rest == "" {
		p.pos++
		if p.pos < len(p.lines) && p.lines[p.pos].indent > indent {
			return p.parseBlock()
		}
		return &Node{Kind: ScalarNode, Line: ln.num, Column: col}, nil
	}

	if err := checkUnsupported(rest, ln.num, col); err != nil {
		return nil, err
	}

	_, _, _, _, isMap := splitKey(rest)
	if isMap || isSeqItem(rest) {
		p.lines[p.pos] = line{num: ln.num, indent: indent + 2, text: rest}
		return p.parseBlock()
	}

	p.pos++
	return p.parseInline(rest, ln.num, col, indent)
}

// parseInline parses a value that starts on the current line at col. indent
// is the indentation of the owning entry: block scalar content and plain
// continuation lines must be indented further.
func (p *parser) parseInline(v string, lineNum, col, indent int) (*Node, error) {
	if err := checkUnsupported(v, lineNum, col); err != nil {
		return nil, err
	}

	switch v[0] {
	case '|', '>':
		return p.parseBlockScalar(v, lineNum, col, indent)
	case '[', '{':
		return p.parseFlow(v, lineNum, col)
	case '"', '\'':
		return p.parseQuotedInline(v, lineNum, col, indent)
	case '%':
		return nil, newError(ErrSyntax, lineNum, col, "reserved indicator '%%' cannot start a plain scalar")
	}

	text := v
	for p.pos < len(p.lines) && p.lines[p.pos].indent > indent {
		next := p.lines[p.pos]
		if _, _, _, _, ok := splitKey(next.text); ok || isSeqItem(next.text) {
			return nil, newError(ErrIndentation, next.num, next.indent+1, "unexpected indentation")
		}
		text += " " + next.text
		p.pos++
	}
	return &Node{Kind: ScalarNode, Style: PlainStyle, Value: text, Line: lineNum, Column: col}, nil
}

// parseQuotedInline parses a quoted scalar, folding continuation lines into
// it when the closing quote is on a later line. Continuations come from the
// raw source: inside quotes '#' is text and blank lines are line breaks.
func (p *parser) parseQuotedInline(v string, lineNum, col, indent int) (*Node, error) {
	style := DoubleQuotedStyle
	if v[0] == '\'' {
		style = SingleQuotedStyle
	}

	text := v
	last := lineNum // last raw line consumed, 1-based
	blanks := 0
	for {
		val, end, err := scanQuoted(text, 0)
		if err == nil {
			if trailing := strings.TrimSpace(stripComment(text[end:])); trailing != "" {
				return nil, newError(ErrSyntax, lineNum, col+end, "unexpected content after quoted scalar: %q", trailing)
			}
			for p.pos < len(p.lines) && p.lines[p.pos].num <= last {
				p.pos++
			}
			return &Node{Kind: ScalarNode, Style: style, Value: val, Line: lineNum, Column: col}, nil
		}

		var raw string
		if last < len(p.raw) {
			raw = p.raw[last]
		}
		body := strings.TrimSpace(raw)
		if err.Kind == ErrUnterminated && last < len(p.raw) && body == "" {
			blanks++
			last++
			continue
		}
		if err.Kind != ErrUnterminated || last >= len(p.raw) || leadingSpaces(raw) <= indent {
			err.Line = lineNum
			err.Column += col - 1
			return nil, err
		}

		sep := " "
		if blanks > 0 {
			sep = strings.Repeat("\n", blanks)
		}
		text = strings.TrimRight(text, " \t") + sep + body
		blanks = 0
		last++
	}
}

func (p *parser) parseFlow(v string, lineNum, col int) (*Node, error) {
	text := v
	for flowDepth(text) > 0 {
		if p.pos >= len(p.lines) {
			return nil, newError(ErrUnterminated, lineNum, col, "unterminated flow collection")
		}
		text += " " + p.lines[p.pos].text
		p.pos++
	}

	f := &flowParser{s: text, line: lineNum, col: col}
	node, err := f.parseValue()
	if err != nil {
		return nil, err
	}
	f.skipSpaces()
	if f.i < len(f.s) {
		return nil, f.errorf(ErrSyntax, "unexpected content after flow collection: %q", f.s[f.i:])
	}
	return node, nil
}
