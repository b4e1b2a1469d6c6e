package openapi

import (
	"strconv"
	"strings"

	"github.com/kennyg/ctxkit/internal/yamlite"
)

// Schema is a flattened schema: one level of $ref and allOf resolved
type Schema struct {
	Type       string
	Ref        string // name of the referenced component, if any
	Properties []Property
	Required   []string
	Items      *Schema
}

// Property is one flattened schema property
type Property struct {
	Name string
	Type string
}

// Resolve follows a local $ref exactly one level. External references,
// missing targets and references to another $ref return n unchanged.
func (d *Document) Resolve(n *yamlite.Node) *yamlite.Node {
	ref := n.Get("$ref").Text()
	if !strings.HasPrefix(ref, "#/") {
		return n
	}
	target := d.Pointer(ref)
	if target == nil || target.Has("$ref") {
		return n
	}
	return target
}

// Pointer evaluates a local JSON pointer ("#/components/schemas/User")
func (d *Document) Pointer(ref string) *yamlite.Node {
	ptr, ok := strings.CutPrefix(ref, "#/")
	if !ok {
		return nil
	}
	cur := d.Root
	for _, token := range strings.Split(ptr, "/") {
		token = strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
		switch {
		case cur.IsMap():
			cur = cur.Get(token)
		case cur.IsSeq():
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= len(cur.Items) {
				return nil
			}
			cur = cur.Items[i]
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// RefName returns the last segment of a node's $ref, or ""
func RefName(n *yamlite.Node) string {
	ref := n.Get("$ref").Text()
	if ref == "" {
		return ""
	}
	return ref[strings.LastIndex(ref, "/")+1:]
}

// FlattenSchema resolves n one level and merges its allOf members (each
// resolved one level) into a single property list. Property order follows
// the document; later definitions of a property replace its type in place.
func (d *Document) FlattenSchema(n *yamlite.Node) Schema {
	if n == nil {
		return Schema{}
	}
	s := d.Resolve(n)
	out := Schema{
		Type: s.Get("type").Text(),
		Ref:  RefName(n),
	}

	seen := make(map[string]int)
	addProps := func(node *yamlite.Node) {
		for _, p := range node.Get("properties").Entries() {
			typ := propertyType(d, p.Value)
			if i, ok := seen[p.Key]; ok {
				out.Properties[i].Type = typ
				continue
			}
			seen[p.Key] = len(out.Properties)
			out.Properties = append(out.Properties, Property{Name: p.Key, Type: typ})
		}
		out.Required = appendUnique(out.Required, node.Get("required"))
	}

	if allOf := s.Get("allOf"); allOf.IsSeq() {
		for _, member := range allOf.Items {
			m := d.Resolve(member)
			if out.Type == "" {
				out.Type = m.Get("type").Text()
			}
			addProps(m)
		}
	}
	addProps(s)

	if out.Type == "" && len(out.Properties) > 0 {
		out.Type = "object"
	}

	if items := s.Get("items"); items != nil {
		it := d.Resolve(items)
		out.Items = &Schema{Type: it.Get("type").Text(), Ref: RefName(items)}
		if out.Type == "" {
			out.Type = "array"
		}
	}
	return out
}

func propertyType(d *Document, n *yamlite.Node) string {
	p := d.Resolve(n)
	if t := p.Get("type").Text(); t != "" {
		return t
	}
	if p.Has("properties") || p.Has("allOf") {
		return "object"
	}
	if name := RefName(n); name != "" {
		return name
	}
	return ""
}

func appendUnique(dst []string, list *yamlite.Node) []string {
	if !list.IsSeq() {
		return dst
	}
	for _, item := range list.Items {
		name := item.Text()
		if name == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if existing == name {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, name)
		}
	}
	return dst
}
