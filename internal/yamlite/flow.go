package yamlite

import "strings"

// flowParser parses a flow collection ([...] or {...}). Multi-line flow
// collections are joined into one string beforehand, so columns past the
// first line are approximate.
type flowParser struct {
	s    string
	i    int
	line int
	col  int // source column of s[0]
}

func (f *flowParser) errorf(kind ErrorKind, format string, args ...any) *ParseError {
	return newError(kind, f.line, f.col+f.i, format, args...)
}

func (f *flowParser) skipSpaces() {
	for f.i < len(f.s) && f.s[f.i] == ' ' {
		f.i++
	}
}

func (f *flowParser) node(kind Kind, style Style) *Node {
	return &Node{Kind: kind, Style: style, Line: f.line, Column: f.col + f.i}
}

func (f *flowParser) parseValue() (*Node, error) {
	f.skipSpaces()
	if f.i >= len(f.s) {
		return nil, f.errorf(ErrUnterminated, "unterminated flow collection")
	}
	if err := checkUnsupported(f.s[f.i:], f.line, f.col+f.i); err != nil {
		return nil, err
	}

	switch f.s[f.i] {
	case '[':
		return f.parseSeq()
	case '{':
		return f.parseMap()
	case '"', '\'':
		return f.parseQuoted()
	case ']', '}', ',':
		return nil, f.errorf(ErrSyntax, "unexpected %q in flow collection", f.s[f.i])
	}
	n := f.node(ScalarNode, PlainStyle)
	n.Value = f.readPlain()
	return n, nil
}

func (f *flowParser) parseQuoted() (*Node, error) {
	style := DoubleQuotedStyle
	if f.s[f.i] == '\'' {
		style = SingleQuotedStyle
	}
	n := f.node(ScalarNode, style)
	val, end, err := scanQuoted(f.s, f.i)
	if err != nil {
		err.Line = f.line
		err.Column += f.col - 1
		return nil, err
	}
	n.Value = val
	f.i = end
	return n, nil
}

// readPlain reads a plain scalar up to the next flow indicator or a ':'
// that is followed by a space or an indicator.
func (f *flowParser) readPlain() string {
	start := f.i
	for f.i < len(f.s) {
		c := f.s[f.i]
		if c == ',' || c == ']' || c == '}' {
			break
		}
		if c == ':' && (f.i+1 == len(f.s) || strings.IndexByte(" ,]}", f.s[f.i+1]) >= 0) {
			break
		}
		f.i++
	}
	return strings.TrimRight(f.s[start:f.i], " ")
}

func (f *flowParser) parseSeq() (*Node, error) {
	n := f.node(SequenceNode, FlowStyle)
	f.i++

	for {
		f.skipSpaces()
		if f.i >= len(f.s) {
			return nil, f.errorf(ErrUnterminated, "unterminated flow sequence")
		}
		if f.s[f.i] == ']' {
			f.i++
			return n, nil
		}

		item, err := f.parseValue()
		if err != nil {
			return nil, err
		}
		f.skipSpaces()
		if item.Kind == ScalarNode && f.i < len(f.s) && f.s[f.i] == ':' {
			if item, err = f.parseSinglePair(item); err != nil {
				return nil, err
			}
		}
		n.Items = append(n.Items, item)

		f.skipSpaces()
		if f.i >= len(f.s) {
			return nil, f.errorf(ErrUnterminated, "unterminated flow sequence")
		}
		switch f.s[f.i] {
		case ',':
			f.i++
		case ']':
			f.i++
			return n, nil
		default:
			return nil, f.errorf(ErrSyntax, "expected ',' or ']' in flow sequence")
		}
	}
}

func (f *flowParser) parseMap() (*Node, error) {
	n := f.node(MappingNode, FlowStyle)
	f.i++
	seen := make(map[string]bool)

	for {
		f.skipSpaces()
		if f.i >= len(f.s) {
			return nil, f.errorf(ErrUnterminated, "unterminated flow mapping")
		}
		if f.s[f.i] == '}' {
			f.i++
			return n, nil
		}

		keyCol := f.col + f.i
		var key string
		quoted := false
		switch f.s[f.i] {
		case '"', '\'':
			k, err := f.parseQuoted()
			if err != nil {
				return nil, err
			}
			key, quoted = k.Value, true
		case '[', '{':
			return nil, f.errorf(ErrSyntax, "complex keys are not supported in flow mappings")
		default:
			if err := checkUnsupported(f.s[f.i:], f.line, keyCol); err != nil {
				return nil, err
			}
			key = f.readPlain()
		}
		if !quoted && key == "<<" {
			return nil, newError(ErrMergeKey, f.line, keyCol, "merge keys are not supported (<<)")
		}
		if seen[key] {
			return nil, newError(ErrDuplicateKey, f.line, keyCol, "duplicate key %q", key)
		}
		seen[key] = true

		f.skipSpaces()
		value := &Node{Kind: ScalarNode, Line: f.line, Column: f.col + f.i}
		if f.i < len(f.s) && f.s[f.i] == ':' {
			f.i++
			f.skipSpaces()
			if f.i < len(f.s) && f.s[f.i] != ',' && f.s[f.i] != '}' {
				v, err := f.parseValue()
				if err != nil {
					return nil, err
				}
				value = v
			}
		}
		n.Pairs = append(n.Pairs, Pair{Key: key, Line: f.line, Value: value})

		f.skipSpaces()
		if f.i >= len(f.s) {
			return nil, f.errorf(ErrUnterminated, "unterminated flow mapping")
		}
		switch f.s[f.i] {
		case ',':
			f.i++
		case '}':
			f.i++
			return n, nil
		default:
			return nil, f.errorf(ErrSyntax, "expected ',' or '}' in flow mapping")
		}
	}
}

// parseSinglePair turns "[key: value]" entries into one-pair mappings
func (f *flowParser) parseSinglePair(key *Node) (*Node, error) {
	f.i++
	f.skipSpaces()
	value := &Node{Kind: ScalarNode, Line: f.line, Column: f.col + f.i}
	if f.i < len(f.s) && f.s[f.i] != ',' && f.s[f.i] != ']' {
		v, err := f.parseValue()
		if err != nil {
			return nil, err
		}
		value = v
	}
	return &Node{
		Kind:   MappingNode,
		Style:  FlowStyle,
		Line:   key.Line,
		Column: key.Column,
		Pairs:  []Pair{{Key: key.Value, Line: key.Line, Value: value}},
	}, nil
}
