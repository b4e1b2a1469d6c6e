// Package yamlite reads the subset of YAML used by OpenAPI contracts and
// context files without pulling in a general YAML implementation.
//
// The supported grammar covers block mappings and sequences, flow
// collections, block scalars and quoted scalars. Anchors, aliases, tags and
// merge keys are rejected with a line-numbered *ParseError so that a document
// never silently means something different from what the reader sees.
package yamlite

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the structural kind of a node
type Kind int

const (
	ScalarNode Kind = iota + 1
	MappingNode
	SequenceNode
)

func (k Kind) String() string {
	switch k {
	case ScalarNode:
		return "scalar"
	case MappingNode:
		return "mapping"
	case SequenceNode:
		return "sequence"
	default:
		return "unknown"
	}
}

// Style records how a scalar or collection was written in the source
type Style int

const (
	PlainStyle Style = iota
	SingleQuotedStyle
	DoubleQuotedStyle
	LiteralStyle
	FoldedStyle
	FlowStyle
)

// Resolved scalar tags (YAML 1.2 core schema)
const (
	NullTag  = "!!null"
	BoolTag  = "!!bool"
	IntTag   = "!!int"
	FloatTag = "!!float"
	StrTag   = "!!str"
	MapTag   = "!!map"
	SeqTag   = "!!seq"
)

// Pair is one key/value entry of a mapping, in source order
type Pair struct {
	Key   string
	Line  int
	Value *Node
}

// Node is a parsed YAML node. Nodes are immutable once returned by Parse.
type Node struct {
	Kind   Kind
	Style  Style
	Value  string // scalar text after unquoting or folding
	Line   int    // 1-based source line
	Column int    // 1-based source column

	Pairs []Pair  // MappingNode entries
	Items []*Node // SequenceNode entries
}

// Tag returns the resolved tag of the node
func (n *Node) Tag() string {
	if n == nil {
		return NullTag
	}
	switch n.Kind {
	case MappingNode:
		return MapTag
	case SequenceNode:
		return SeqTag
	}
	if n.Style != PlainStyle {
		return StrTag
	}
	return resolvePlain(n.Value)
}

// IsNull reports whether the node is absent or a null scalar
func (n *Node) IsNull() bool {
	return n == nil || (n.Kind == ScalarNode && n.Tag() == NullTag)
}

// IsMap reports whether the node is a mapping
func (n *Node) IsMap() bool { return n != nil && n.Kind == MappingNode }

// IsSeq reports whether the node is a sequence
func (n *Node) IsSeq() bool { return n != nil && n.Kind == SequenceNode }

// Len returns the number of entries of a mapping or sequence
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	switch n.Kind {
	case MappingNode:
		return len(n.Pairs)
	case SequenceNode:
		return len(n.Items)
	}
	return 0
}

// Get returns the value stored under key, or nil
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != MappingNode {
		return nil
	}
	for _, p := range n.Pairs {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

// Has reports whether a mapping contains key, even with a null value
func (n *Node) Has(key string) bool {
	if n == nil || n.Kind != MappingNode {
		return false
	}
	for _, p := range n.Pairs {
		if p.Key == key {
			return true
		}
	}
	return false
}

// Lookup walks nested mappings by key
func (n *Node) Lookup(path ...string) *Node {
	cur := n
	for _, key := range path {
		cur = cur.Get(key)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Entries returns mapping pairs in source order; nil-safe
func (n *Node) Entries() []Pair {
	if n == nil || n.Kind != MappingNode {
		return nil
	}
	return n.Pairs
}

// Elements returns sequence items; nil-safe
func (n *Node) Elements() []*Node {
	if n == nil || n.Kind != SequenceNode {
		return nil
	}
	return n.Items
}

// Keys returns mapping keys in source order
func (n *Node) Keys() []string {
	if n == nil || n.Kind != MappingNode {
		return nil
	}
	keys := make([]string, 0, len(n.Pairs))
	for _, p := range n.Pairs {
		keys = append(keys, p.Key)
	}
	return keys
}

// Text returns the scalar text, or "" for non-scalars and nulls
func (n *Node) Text() string {
	if n == nil || n.Kind != ScalarNode || n.IsNull() {
		return ""
	}
	return n.Value
}

// Bool returns the scalar as a boolean (false when not a bool)
func (n *Node) Bool() bool {
	if n == nil || n.Tag() != BoolTag {
		return false
	}
	return strings.EqualFold(n.Value, "true")
}

// Interface converts the node into plain Go values: map[string]any, []any,
// string, bool, int64, float64 or nil.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case MappingNode:
		m := make(map[string]any, len(n.Pairs))
		for _, p := range n.Pairs {
			m[p.Key] = p.Value.Interface()
		}
		return m
	case SequenceNode:
		s := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			s = append(s, item.Interface())
		}
		return s
	}

	switch n.Tag() {
	case NullTag:
		return nil
	case BoolTag:
		return strings.EqualFold(n.Value, "true")
	case IntTag:
		if v, err := parseInt(n.Value); err == nil {
			return v
		}
	case FloatTag:
		if v, err := parseFloat(n.Value); err == nil {
			return v
		}
	}
	return n.Value
}

func resolvePlain(s string) string {
	switch s {
	case "", "~", "null", "Null", "NULL":
		return NullTag
	case "true", "True", "TRUE", "false", "False", "FALSE":
		return BoolTag
	}
	if _, err := parseInt(s); err == nil {
		return IntTag
	}
	if _, err := parseFloat(s); err == nil {
		return FloatTag
	}
	return StrTag
}

func parseInt(s string) (int64, error) {
	switch {
	case strings.HasPrefix(s, "0x"):
		return strconv.ParseInt(s[2:], 16, 64)
	case strings.HasPrefix(s, "0o"):
		return strconv.ParseInt(s[2:], 8, 64)
	}
	if s == "" || strings.ContainsAny(s, "_") {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseFloat(s string) (float64, error) {
	switch s {
	case ".inf", ".Inf", ".INF", "+.inf", "+.Inf", "+.INF":
		return math.Inf(1), nil
	case "-.inf", "-.Inf", "-.INF":
		return math.Inf(-1), nil
	case ".nan", ".NaN", ".NAN":
		return math.NaN(), nil
	}
	if s == "" || !strings.ContainsAny(s, "0123456789") {
		return 0, strconv.ErrSyntax
	}
	// strconv accepts forms YAML does not ("Inf", "0x1p-2", "1_000")
	for _, r := range s {
		if !strings.ContainsRune("0123456789.eE+-", r) {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.ParseFloat(s, 64)
}
