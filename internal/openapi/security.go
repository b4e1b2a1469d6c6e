package openapi

import (
	"strings"

	"github.com/kennyg/ctxkit/internal/yamlite"
)

// Security scheme types
const (
	SchemeHTTP          = "http"
	SchemeAPIKey        = "apiKey"
	SchemeOAuth2        = "oauth2"
	SchemeOpenIDConnect = "openIdConnect"
	SchemeMutualTLS     = "mutualTLS"
)

// SecurityScheme binds a requirement name to how credentials are sent
type SecurityScheme struct {
	Name      string // key under components.securitySchemes
	Type      string // http, apiKey, oauth2, openIdConnect, mutualTLS
	Scheme    string // bearer, basic, ... (http only), lower case
	In        string // header, query, cookie (apiKey only)
	ParamName string // header/query/cookie name (apiKey only)
}

// Requirement is one security requirement object: the scheme names that
// must all be satisfied together. An empty requirement means anonymous
// access is allowed.
type Requirement []string

// Security returns the document-level requirements and whether the
// document declares any.
func (d *Document) Security() ([]Requirement, bool) {
	if !d.Root.Has("security") {
		return nil, false
	}
	return requirements(d.Root.Get("security")), true
}

// EffectiveSecurity returns the requirements that apply to op: its own when
// declared, otherwise the document's.
func (d *Document) EffectiveSecurity(op Operation) []Requirement {
	if op.SecurityDeclared {
		return op.Security
	}
	reqs, _ := d.Security()
	return reqs
}

func requirements(list *yamlite.Node) []Requirement {
	if !list.IsSeq() {
		return nil
	}
	reqs := make([]Requirement, 0, list.Len())
	for _, item := range list.Items {
		reqs = append(reqs, Requirement(item.Keys()))
	}
	return reqs
}

// SecuritySchemes returns the declared schemes keyed by name. Swagger 2
// securityDefinitions are mapped onto their OpenAPI 3 equivalents.
func (d *Document) SecuritySchemes() map[string]SecurityScheme {
	schemes := make(map[string]SecurityScheme)

	for _, p := range d.Root.Get("securityDefinitions").Entries() {
		n := d.Resolve(p.Value)
		s := SecurityScheme{
			Name:      p.Key,
			Type:      n.Get("type").Text(),
			In:        n.Get("in").Text(),
			ParamName: n.Get("name").Text(),
		}
		if s.Type == "basic" {
			s.Type, s.Scheme = SchemeHTTP, "basic"
		}
		schemes[p.Key] = s
	}

	for _, p := range d.Root.Lookup("components", "securitySchemes").Entries() {
		n := d.Resolve(p.Value)
		schemes[p.Key] = SecurityScheme{
			Name:      p.Key,
			Type:      n.Get("type").Text(),
			Scheme:    strings.ToLower(n.Get("scheme").Text()),
			In:        n.Get("in").Text(),
			ParamName: n.Get("name").Text(),
		}
	}
	return schemes
}
