// Package openapi provides a read-only view over OpenAPI documents parsed with
// yamlite: operations, parameters, request bodies, security schemes, and a
// single-level $ref/allOf resolver used to flatten schemas for display.
package openapi

import (
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/kennyg/ctxkit/internal/artifact"
	"github.com/kennyg/ctxkit/internal/yamlite"
)

// Methods lists the HTTP methods of a path item in index order
var Methods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Document is a parsed OpenAPI document
type Document struct {
	Root     *yamlite.Node
	Source   string // path the document was read from
	Checksum string // sha256 of the raw source
}

// Info holds the document's info block
type Info struct {
	Title       string
	Version     string
	Description string
}

// Load reads and parses an OpenAPI document from path
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return Parse(data, path)
}

// Parse parses an OpenAPI document. source is used in error messages.
func Parse(data []byte, source string) (*Document, error) {
	root, err := yamlite.Parse(data)
	if err != nil {
		var perr *yamlite.ParseError
		if errors.As(err, &perr) {
			perr.Source = source
		}
		return nil, err
	}
	if !root.IsMap() {
		return nil, errors.Errorf("%s: not an OpenAPI document (top level is a %s)", source, root.Kind)
	}
	if !root.Has("openapi") && !root.Has("swagger") {
		return nil, errors.Errorf("%s: not an OpenAPI document (missing openapi version)", source)
	}
	return &Document{
		Root:     root,
		Source:   source,
		Checksum: artifact.Checksum(data),
	}, nil
}

// Version returns the openapi (or swagger) version string
func (d *Document) Version() string {
	if v := d.Root.Get("openapi").Text(); v != "" {
		return v
	}
	return d.Root.Get("swagger").Text()
}

// Info returns the info block
func (d *Document) Info() Info {
	info := d.Root.Get("info")
	return Info{
		Title:       info.Get("title").Text(),
		Version:     info.Get("version").Text(),
		Description: info.Get("description").Text(),
	}
}

// Servers returns server URLs in document order. Swagger 2 host/basePath
// documents yield a single URL.
func (d *Document) Servers() []string {
	var urls []string
	if servers := d.Root.Get("servers"); servers.IsSeq() {
		for _, s := range servers.Items {
			if u := s.Get("url").Text(); u != "" {
				urls = append(urls, u)
			}
		}
	}
	if len(urls) == 0 {
		if host := d.Root.Get("host").Text(); host != "" {
			scheme := "https"
			if schemes := d.Root.Get("schemes").Elements(); len(schemes) > 0 {
				scheme = schemes[0].Text()
			}
			urls = append(urls, scheme+"://"+host+d.Root.Get("basePath").Text())
		}
	}
	return urls
}

// Operation is one (path, method) pair with its inputs and outputs
type Operation struct {
	Path        string
	Method      string // lower case
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool

	// PathParameters are declared on the path item, Parameters on the
	// operation itself. Both are resolved but not merged.
	PathParameters []Parameter
	Parameters     []Parameter

	RequestBody *RequestBody
	Responses   []string // status codes in document order

	// Security is the operation-level requirement list. SecurityDeclared
	// distinguishes "security: []" (explicitly none) from absent.
	Security         []Requirement
	SecurityDeclared bool
}

// Parameter is a resolved operation or path parameter
type Parameter struct {
	Name        string
	In          string
	Required    bool
	Deprecated  bool
	Description string
	Type        string
}

// RequestBody is a resolved request body
type RequestBody struct {
	Required     bool
	ContentTypes []string
	Schema       Schema
}

// Operations returns every operation in document path order and canonical
// method order.
func (d *Document) Operations() []Operation {
	paths := d.Root.Get("paths")
	var ops []Operation

	for _, pair := range paths.Entries() {
		item := d.Resolve(pair.Value)
		if !item.IsMap() {
			continue
		}
		pathParams := d.parameters(item.Get("parameters"))

		for _, method := range Methods {
			opNode := item.Get(method)
			if !opNode.IsMap() {
				continue
			}
			ops = append(ops, d.operation(pair.Key, method, opNode, pathParams))
		}
	}
	return ops
}

func (d *Document) operation(path, method string, n *yamlite.Node, pathParams []Parameter) Operation {
	op := Operation{
		Path:           path,
		Method:         method,
		OperationID:    n.Get("operationId").Text(),
		Summary:        strings.TrimSpace(n.Get("summary").Text()),
		Description:    strings.TrimSpace(n.Get("description").Text()),
		Deprecated:     n.Get("deprecated").Bool(),
		PathParameters: pathParams,
		Parameters:     d.parameters(n.Get("parameters")),
		RequestBody:    d.requestBody(n),
	}

	if tags := n.Get("tags"); tags.IsSeq() {
		for _, t := range tags.Items {
			if s := t.Text(); s != "" {
				op.Tags = append(op.Tags, s)
			}
		}
	}

	if op.Summary == "" && op.Description != "" {
		op.Summary, _, _ = strings.Cut(op.Description, "\n")
	}

	op.Responses = d.Resolve(n.Get("responses")).Keys()

	if n.Has("security") {
		op.SecurityDeclared = true
		op.Security = requirements(n.Get("security"))
	}
	return op
}

func (d *Document) parameters(list *yamlite.Node) []Parameter {
	if !list.IsSeq() {
		return nil
	}
	params := make([]Parameter, 0, list.Len())
	for _, item := range list.Items {
		p := d.Resolve(item)
		name := p.Get("name").Text()
		if name == "" || p.Get("in").Text() == "body" {
			continue
		}
		typ := d.Resolve(p.Get("schema")).Get("type").Text()
		if typ == "" {
			typ = p.Get("type").Text()
		}
		params = append(params, Parameter{
			Name:        name,
			In:          p.Get("in").Text(),
			Required:    p.Get("required").Bool() || p.Get("in").Text() == "path",
			Deprecated:  p.Get("deprecated").Bool(),
			Description: strings.TrimSpace(p.Get("description").Text()),
			Type:        typ,
		})
	}
	return params
}

func (d *Document) requestBody(op *yamlite.Node) *RequestBody {
	if !op.Has("requestBody") {
		return d.swaggerBody(op)
	}
	rb := d.Resolve(op.Get("requestBody"))
	body := &RequestBody{Required: rb.Get("required").Bool()}

	content := rb.Get("content")
	body.ContentTypes = content.Keys()
	for _, ct := range body.ContentTypes {
		if isJSON(ct) {
			body.Schema = d.FlattenSchema(content.Lookup(ct, "schema"))
			return body
		}
	}
	if len(body.ContentTypes) > 0 {
		body.Schema = d.FlattenSchema(content.Lookup(body.ContentTypes[0], "schema"))
	}
	return body
}

// swaggerBody maps a Swagger 2 "in: body" parameter onto a request body
func (d *Document) swaggerBody(op *yamlite.Node) *RequestBody {
	params := op.Get("parameters")
	if !params.IsSeq() {
		return nil
	}
	for _, item := range params.Items {
		p := d.Resolve(item)
		if p.Get("in").Text() != "body" {
			continue
		}
		return &RequestBody{
			Required:     p.Get("required").Bool(),
			ContentTypes: []string{"application/json"},
			Schema:       d.FlattenSchema(p.Get("schema")),
		}
	}
	return nil
}

func isJSON(contentType string) bool {
	ct, _, _ := strings.Cut(contentType, ";")
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}
