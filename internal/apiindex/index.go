// Package apiindex turns an OpenAPI document into a compact endpoint index
// (api-index.json plus an optional Markdown table) for agents to read.
package apiindex

import (
	"sort"
	"strings"

	"github.com/kennyg/ctxkit/internal/artifact"
	"github.com/kennyg/ctxkit/internal/openapi"
)

// DefaultBaseURL is used in curl examples when neither --base-url nor
// servers[] provide one
const DefaultBaseURL = "http://localhost"

// Index is the api-index.json document
type Index struct {
	Schema         string     `json:"schema"`
	GeneratedAt    string     `json:"generatedAt"`
	Source         string     `json:"source"`
	SourceChecksum string     `json:"sourceChecksumSha256"`
	API            API        `json:"api"`
	Endpoints      []Endpoint `json:"endpoints"`
}

// API describes the indexed document
type API struct {
	Title   string `json:"title"`
	Version string `json:"version"`
	OpenAPI string `json:"openapi"`
	BaseURL string `json:"baseUrl"`
}

// Endpoint is one (path, method) row
type Endpoint struct {
	Method      string       `json:"method"`
	Path        string       `json:"path"`
	OperationID string       `json:"operationId,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Deprecated  bool         `json:"deprecated,omitempty"`
	Auth        string       `json:"auth"`
	Parameters  []Param      `json:"parameters,omitempty"`
	RequestBody *RequestBody `json:"requestBody,omitempty"`
	Responses   []string     `json:"responses"`
	Curl        string       `json:"curl"`
}

// Param is a merged path/operation parameter
type Param struct {
	Name       string `json:"name"`
	In         string `json:"in"`
	Required   bool   `json:"required,omitempty"`
	Deprecated bool   `json:"deprecated,omitempty"`
	Type       string `json:"type,omitempty"`
}

// RequestBody summarizes a request body by its flattened fields
type RequestBody struct {
	ContentType    string   `json:"contentType"`
	Required       bool     `json:"required,omitempty"`
	Schema         string   `json:"schema,omitempty"`
	Fields         []Field  `json:"fields,omitempty"`
	RequiredFields []string `json:"requiredFields,omitempty"`
}

// Field is one flattened request body property
type Field struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Options control index generation
type Options struct {
	// Source is the path recorded in the index; defaults to doc.Source
	Source string
	// BaseURL overrides servers[] in curl examples
	BaseURL string
}

// Build generates the index for doc. GeneratedAt is left empty for the
// caller to stamp.
func Build(doc *openapi.Document, opts Options) *Index {
	info := doc.Info()
	source := opts.Source
	if source == "" {
		source = doc.Source
	}

	idx := &Index{
		Schema:         artifact.APIIndexSchema,
		Source:         source,
		SourceChecksum: doc.Checksum,
		API: API{
			Title:   info.Title,
			Version: info.Version,
			OpenAPI: doc.Version(),
			BaseURL: baseURL(doc, opts.BaseURL),
		},
		Endpoints: []Endpoint{},
	}

	schemes := doc.SecuritySchemes()
	for _, op := range doc.Operations() {
		reqs := doc.EffectiveSecurity(op)
		ep := Endpoint{
			Method:      strings.ToUpper(op.Method),
			Path:        op.Path,
			OperationID: op.OperationID,
			Summary:     op.Summary,
			Tags:        op.Tags,
			Deprecated:  op.Deprecated,
			Auth:        AuthLabel(reqs, schemes),
			Parameters:  MergeParameters(op.PathParameters, op.Parameters),
			RequestBody: requestBody(op.RequestBody),
			Responses:   op.Responses,
		}
		if ep.Responses == nil {
			ep.Responses = []string{}
		}
		ep.Curl = Curl(ep, idx.API.BaseURL, primaryScheme(reqs, schemes))
		idx.Endpoints = append(idx.Endpoints, ep)
	}

	sortEndpoints(idx.Endpoints)
	return idx
}

func baseURL(doc *openapi.Document, override string) string {
	base := override
	if base == "" {
		if servers := doc.Servers(); len(servers) > 0 {
			base = servers[0]
		}
	}
	if base == "" {
		base = DefaultBaseURL
	}
	return strings.TrimRight(base, "/")
}

// MergeParameters merges path-level parameters with operation-level ones.
// Operation-level parameters replace path-level ones with the same
// (in, name) in place; new ones are appended in declaration order.
func MergeParameters(pathParams, opParams []openapi.Parameter) []Param {
	var merged []Param
	pos := make(map[string]int)
	add := func(p openapi.Parameter) {
		key := p.In + "\x00" + p.Name
		param := Param{
			Name:       p.Name,
			In:         p.In,
			Required:   p.Required,
			Deprecated: p.Deprecated,
			Type:       p.Type,
		}
		if i, ok := pos[key]; ok {
			merged[i] = param
			return
		}
		pos[key] = len(merged)
		merged = append(merged, param)
	}
	for _, p := range pathParams {
		add(p)
	}
	for _, p := range opParams {
		add(p)
	}
	return merged
}

func requestBody(rb *openapi.RequestBody) *RequestBody {
	if rb == nil {
		return nil
	}
	out := &RequestBody{
		Required:       rb.Required,
		Schema:         rb.Schema.Ref,
		RequiredFields: rb.Schema.Required,
	}
	for _, ct := range rb.ContentTypes {
		if isJSON(ct) {
			out.ContentType = ct
			break
		}
	}
	if out.ContentType == "" && len(rb.ContentTypes) > 0 {
		out.ContentType = rb.ContentTypes[0]
	}
	for _, p := range rb.Schema.Properties {
		out.Fields = append(out.Fields, Field{Name: p.Name, Type: p.Type})
	}
	return out
}

func isJSON(contentType string) bool {
	ct, _, _ := strings.Cut(contentType, ";")
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}

func methodRank(method string) int {
	for i, m := range openapi.Methods {
		if strings.EqualFold(m, method) {
			return i
		}
	}
	return len(openapi.Methods)
}

func sortEndpoints(eps []Endpoint) {
	sort.SliceStable(eps, func(i, j int) bool {
		if eps[i].Path != eps[j].Path {
			return eps[i].Path < eps[j].Path
		}
		return methodRank(eps[i].Method) < methodRank(eps[j].Method)
	})
}
