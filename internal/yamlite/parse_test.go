package yamlite

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Node {
	t.Helper()
	node, err := Parse([]byte(src))
	require.NoError(t, err)
	return node
}

func parseErr(t *testing.T, src string) *ParseError {
	t.Helper()
	_, err := Parse([]byte(src))
	require.Error(t, err)
	var perr *ParseError
	require.True(t, errors.As(err, &perr), "expected *ParseError, got %T", err)
	return perr
}

func TestParse_BlockMapping(t *testing.T) {
	doc := mustParse(t, `
openapi: 3.0.3
info:
  title: Users API   # trailing comment
  version: "1.0"
  x-count: 42
  x-ratio: 0.5
  x-flag: true
  x-none: ~
`)

	require.True(t, doc.IsMap())
	assert.Equal(t, []string{"openapi", "info"}, doc.Keys())
	assert.Equal(t, "3.0.3", doc.Get("openapi").Text())
	assert.Equal(t, StrTag, doc.Get("openapi").Tag())

	info := doc.Get("info")
	assert.Equal(t, "Users API", info.Get("title").Text())
	assert.Equal(t, "1.0", info.Get("version").Text())
	assert.Equal(t, StrTag, info.Get("version").Tag())
	assert.Equal(t, int64(42), info.Get("x-count").Interface())
	assert.Equal(t, 0.5, info.Get("x-ratio").Interface())
	assert.True(t, info.Get("x-flag").Bool())
	assert.True(t, info.Get("x-none").IsNull())
	assert.Equal(t, 3, doc.Pairs[1].Line)
	assert.Equal(t, 4, info.Get("title").Line)
}

func TestParse_QuotedKeysAreUnquoted(t *testing.T) {
	doc := mustParse(t, `
responses:
  '200':
    description: OK
  "404":
    description: 'Not found: it''s gone'
`)

	responses := doc.Get("responses")
	assert.Equal(t, []string{"200", "404"}, responses.Keys())
	assert.Equal(t, "OK", responses.Lookup("200", "description").Text())
	assert.Equal(t, "Not found: it's gone", responses.Lookup("404", "description").Text())
}

func TestParse_Sequences(t *testing.T) {
	doc := mustParse(t, `
tags:
  - users
  - admin
compact:
- one
- two
parameters:
  - name: limit
    in: query
    required: false
  - name: id
    in: path
nested:
  - - a
    - b
  - - c
empty:
  -
  - x
`)

	tags := doc.Get("tags")
	require.True(t, tags.IsSeq())
	assert.Equal(t, []any{"users", "admin"}, tags.Interface())

	assert.Equal(t, []any{"one", "two"}, doc.Get("compact").Interface())

	params := doc.Get("parameters")
	require.Equal(t, 2, params.Len())
	assert.Equal(t, "limit", params.Items[0].Get("name").Text())
	assert.Equal(t, "query", params.Items[0].Get("in").Text())
	assert.False(t, params.Items[0].Get("required").Bool())
	assert.Equal(t, "path", params.Items[1].Get("in").Text())

	assert.Equal(t, []any{[]any{"a", "b"}, []any{"c"}}, doc.Get("nested").Interface())

	empty := doc.Get("empty")
	require.Equal(t, 2, empty.Len())
	assert.True(t, empty.Items[0].IsNull())
}

func TestParse_SequenceItemMapWithNestedBlock(t *testing.T) {
	doc := mustParse(t, `
servers:
  - url: https://api.example.com
    variables:
      region:
        default: eu
    tags:
    - a
  - url: http://localhost:8080
`)

	servers := doc.Get("servers")
	require.Equal(t, 2, servers.Len())
	assert.Equal(t, "https://api.example.com", servers.Items[0].Get("url").Text())
	assert.Equal(t, "eu", servers.Items[0].Lookup("variables", "region", "default").Text())
	assert.Equal(t, []any{"a"}, servers.Items[0].Get("tags").Interface())
	assert.Equal(t, "http://localhost:8080", servers.Items[1].Get("url").Text())
}

func TestParse_FlowCollections(t *testing.T) {
	doc := mustParse(t, `
security: [{}, {bearerAuth: []}]
required: [id, "name", 'email']
schema: {type: object, properties: {id: {type: integer}}}
multi: [
  one,
  two,
]
`)

	security := doc.Get("security")
	require.Equal(t, 2, security.Len())
	assert.True(t, security.Items[0].IsMap())
	assert.Equal(t, 0, security.Items[0].Len())
	assert.True(t, security.Items[1].Get("bearerAuth").IsSeq())

	assert.Equal(t, []any{"id", "name", "email"}, doc.Get("required").Interface())
	assert.Equal(t, "integer", doc.Lookup("schema", "properties", "id", "type").Text())
	assert.Equal(t, []any{"one", "two"}, doc.Get("multi").Interface())
}

func TestParse_BlockScalars(t *testing.T) {
	src := "description: |\n" +
		"  First line\n" +
		"\n" +
		"  # not a comment\n" +
		"    indented\n" +
		"\n" +
		"folded: >\n" +
		"  one\n" +
		"  two\n" +
		"\n" +
		"  three\n" +
		"strip: |-\n" +
		"  text\n" +
		"keep: |+\n" +
		"  text\n" +
		"\n" +
		"after: value\n"

	doc := mustParse(t, src)
	assert.Equal(t, "First line\n\n# not a comment\n  indented\n", doc.Get("description").Text())
	assert.Equal(t, LiteralStyle, doc.Get("description").Style)
	assert.Equal(t, "one two\nthree\n", doc.Get("folded").Text())
	assert.Equal(t, "text", doc.Get("strip").Text())
	assert.Equal(t, "text\n\n", doc.Get("keep").Text())
	assert.Equal(t, "value", doc.Get("after").Text())
}

func TestParse_BlockScalarInSequence(t *testing.T) {
	doc := mustParse(t, `
steps:
  - |
    echo one

    echo two
  - name: run
    script: >-
      a
      b
`)

	steps := doc.Get("steps")
	require.Equal(t, 2, steps.Len())
	assert.Equal(t, "echo one\n\necho two\n", steps.Items[0].Text())
	assert.Equal(t, "a b", steps.Items[1].Get("script").Text())
}

func TestParse_MultiLinePlainAndQuoted(t *testing.T) {
	doc := mustParse(t, `
summary: This summary
  wraps onto two lines
quoted: "starts here
  and ends here"
`)
	assert.Equal(t, "This summary wraps onto two lines", doc.Get("summary").Text())
	assert.Equal(t, "starts here and ends here", doc.Get("quoted").Text())
}

func TestParse_QuotedContinuationKeepsHash(t *testing.T) {
	doc, err := Parse([]byte("k: \"first line\n  see issue #42 here\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "first line see issue #42 here", doc.Get("k").Text())

	doc = mustParse(t, `
description: 'Filters by tag.
  # is a literal here

  and a blank line breaks'   # trailing comment
next: ok
`)
	assert.Equal(t, "Filters by tag. # is a literal here\nand a blank line breaks", doc.Get("description").Text())
	assert.Equal(t, "ok", doc.Get("next").Text())
}

func TestParse_QuotedContinuationMustBeIndented(t *testing.T) {
	_, err := Parse([]byte("k: \"open\nother: value\n"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrUnterminated, perr.Kind)
	assert.Equal(t, 1, perr.Line)
}

func TestParse_KeepChompAtEndOfFile(t *testing.T) {
	assert.Equal(t, "x\n", mustParse(t, "k: |+\n  x\n").Get("k").Text())
	assert.Equal(t, "x\n\n", mustParse(t, "k: |+\n  x\n\n").Get("k").Text())
	assert.Equal(t, "x\n", mustParse(t, "k: |+\n  x").Get("k").Text())
	assert.Equal(t, "x\n", mustParse(t, "k: |\n  x\n").Get("k").Text())
}

func TestParse_DoubleQuotedEscapes(t *testing.T) {
	doc := mustParse(t, `value: "tab\there \"q\" \u00e9 #not-comment"`)
	assert.Equal(t, "tab\there \"q\" é #not-comment", doc.Get("value").Text())
}

func TestParse_CommentsAndApostrophes(t *testing.T) {
	doc := mustParse(t, `
a: don't strip this # but strip this
b: 'hash # inside quotes'
c: url#fragment
`)
	assert.Equal(t, "don't strip this", doc.Get("a").Text())
	assert.Equal(t, "hash # inside quotes", doc.Get("b").Text())
	assert.Equal(t, "url#fragment", doc.Get("c").Text())
}

func TestParse_DocumentMarkers(t *testing.T) {
	doc := mustParse(t, "---\na: 1\n...\n")
	assert.Equal(t, int64(1), doc.Get("a").Interface())

	perr := parseErr(t, "a: 1\n---\nb: 2\n")
	assert.Equal(t, ErrMultipleDocuments, perr.Kind)
	assert.Equal(t, 2, perr.Line)
}

func TestParse_EmptyDocument(t *testing.T) {
	doc := mustParse(t, "# only a comment\n\n")
	assert.True(t, doc.IsNull())
}

func TestParse_UnsupportedConstructs(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
		line int
	}{
		{"anchor on mapping value", "base:\n  x: 1\nother: &base\n  y: 2\n", ErrAnchor, 3},
		{"anchor on scalar", "a: &x 1\n", ErrAnchor, 1},
		{"alias", "a: 1\nb: *a\n", ErrAlias, 2},
		{"alias in sequence", "items:\n  - *ref\n", ErrAlias, 2},
		{"anchor on sequence item map", "items:\n  - &a name: x\n", ErrAnchor, 2},
		{"tag", "a: !!str 1\n", ErrTag, 1},
		{"local tag", "a: !custom x\n", ErrTag, 1},
		{"merge key", "base: {a: 1}\nchild:\n  <<: {b: 2}\n", ErrMergeKey, 3},
		{"alias in flow", "a: [1, *x]\n", ErrAlias, 1},
		{"merge key in flow", "a: {<<: {b: 1}}\n", ErrMergeKey, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := parseErr(t, tt.src)
			assert.Equal(t, tt.kind, perr.Kind)
			assert.True(t, perr.Kind.Unsupported())
			assert.Equal(t, tt.line, perr.Line)
			assert.Contains(t, perr.Error(), "line")
		})
	}
}

func TestParse_EmphasisIsNotAnAlias(t *testing.T) {
	doc := mustParse(t, `
info:
  description: Use *emphasis* and **bold** & entities like &amp; freely
  summary: "*quoted emphasis*"
  notes: |
    *block emphasis*
    &not-an-anchor
  tags: ['*x*', "&y"]
  key: a * b
`)

	info := doc.Get("info")
	assert.Equal(t, "Use *emphasis* and **bold** & entities like &amp; freely", info.Get("description").Text())
	assert.Equal(t, "*quoted emphasis*", info.Get("summary").Text())
	assert.Equal(t, "*block emphasis*\n&not-an-anchor\n", info.Get("notes").Text())
	assert.Equal(t, []any{"*x*", "&y"}, info.Get("tags").Interface())
	assert.Equal(t, "a * b", info.Get("key").Text())
}

func TestParse_ComplexKeyIsNotSpeciallyDetected(t *testing.T) {
	perr := parseErr(t, "a: 1\n? complex\n")
	assert.False(t, perr.Kind.Unsupported())
	assert.Equal(t, 2, perr.Line)
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ErrorKind
		line int
	}{
		{"duplicate key", "a: 1\na: 2\n", ErrDuplicateKey, 2},
		{"bad indentation", "a:\n    b: 1\n  c: 2\n", ErrIndentation, 3},
		{"tab indentation", "a:\n\tb: 1\n", ErrTab, 2},
		{"unterminated double quote", "a: \"open\n", ErrUnterminated, 1},
		{"unterminated flow", "a: [1, 2\n", ErrUnterminated, 1},
		{"bad flow separator", "a: {x: 1 y: 2}\n", ErrSyntax, 1},
		{"content after quote", "a: \"x\" y\n", ErrSyntax, 1},
		{"key continuation", "a: text\n  b: 1\n", ErrIndentation, 2},
		{"bad escape", `a: "\q"`, ErrSyntax, 1},
		{"directive", "%YAML 1.2\n---\na: 1\n", ErrSyntax, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := parseErr(t, tt.src)
			assert.Equal(t, tt.kind, perr.Kind, perr.Error())
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestParse_ErrorColumn(t *testing.T) {
	perr := parseErr(t, "paths:\n  /users:\n    get: &op\n")
	assert.Equal(t, ErrAnchor, perr.Kind)
	assert.Equal(t, 3, perr.Line)
	assert.Equal(t, 10, perr.Column)
	assert.Equal(t, "line 3, column 10: anchors are not supported (&op)", perr.Error())
}

func TestParseFile_SetsSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("a: *b\n"), 0644))

	_, err := ParseFile(path)
	require.Error(t, err)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, path, perr.Source)
	assert.Contains(t, err.Error(), path+": line 1")

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.False(t, errors.As(err, &perr))
}

func TestNode_ScalarResolution(t *testing.T) {
	tests := []struct {
		in   string
		tag  string
		want any
	}{
		{"null", NullTag, nil},
		{"~", NullTag, nil},
		{"TRUE", BoolTag, true},
		{"false", BoolTag, false},
		{"42", IntTag, int64(42)},
		{"-7", IntTag, int64(-7)},
		{"0x1F", IntTag, int64(31)},
		{"1.5", FloatTag, 1.5},
		{"1e3", FloatTag, 1000.0},
		{"3.0.3", StrTag, "3.0.3"},
		{"v1", StrTag, "v1"},
		{"Inf", StrTag, "Inf"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			n := &Node{Kind: ScalarNode, Value: tt.in}
			assert.Equal(t, tt.tag, n.Tag())
			assert.Equal(t, tt.want, n.Interface())
		})
	}

	quoted := &Node{Kind: ScalarNode, Style: DoubleQuotedStyle, Value: "42"}
	assert.Equal(t, StrTag, quoted.Tag())
	assert.Equal(t, "42", quoted.Interface())
}

func TestNode_NilSafety(t *testing.T) {
	var n *Node
	assert.Nil(t, n.Get("x"))
	assert.Nil(t, n.Lookup("a", "b"))
	assert.Equal(t, 0, n.Len())
	assert.Equal(t, "", n.Text())
	assert.True(t, n.IsNull())
	assert.False(t, n.Has("x"))
}
