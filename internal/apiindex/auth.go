package apiindex

import (
	"fmt"
	"strings"

	"github.com/kennyg/ctxkit/internal/openapi"
)

// AuthNone is the label for endpoints that need no credentials
const AuthNone = "none"

// AuthLabel describes the effective security requirements. Alternatives
// are joined with " | " and schemes required together with " + ". An empty
// requirement next to named ones marks the auth as optional.
func AuthLabel(reqs []openapi.Requirement, schemes map[string]openapi.SecurityScheme) string {
	var alts []string
	optional := false
	for _, req := range reqs {
		if len(req) == 0 {
			optional = true
			continue
		}
		parts := make([]string, 0, len(req))
		for _, name := range req {
			parts = append(parts, schemeLabel(name, schemes))
		}
		alts = appendOnce(alts, strings.Join(parts, " + "))
	}

	if len(alts) == 0 {
		return AuthNone
	}
	label := strings.Join(alts, " | ")
	if optional {
		label += " (optional)"
	}
	return label
}

func schemeLabel(name string, schemes map[string]openapi.SecurityScheme) string {
	s, ok := schemes[name]
	if !ok {
		return name
	}
	switch s.Type {
	case openapi.SchemeHTTP:
		if s.Scheme != "" {
			return s.Scheme
		}
		return s.Type
	case openapi.SchemeAPIKey:
		return fmt.Sprintf("apiKey (%s:%s)", s.In, s.ParamName)
	case openapi.SchemeOAuth2, openapi.SchemeOpenIDConnect, openapi.SchemeMutualTLS:
		return s.Type
	}
	return name
}

// primaryScheme picks the scheme used in the curl example: the first
// named scheme of the first non-empty requirement.
func primaryScheme(reqs []openapi.Requirement, schemes map[string]openapi.SecurityScheme) *openapi.SecurityScheme {
	for _, req := range reqs {
		if len(req) == 0 {
			continue
		}
		if s, ok := schemes[req[0]]; ok {
			return &s
		}
		return nil
	}
	return nil
}

func appendOnce(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
