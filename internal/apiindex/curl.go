package apiindex

import (
	"fmt"
	"strings"

	"github.com/kennyg/ctxkit/internal/openapi"
)

// Credential placeholders used in curl examples
const (
	TokenPlaceholder  = "$TOKEN"
	APIKeyPlaceholder = "$API_KEY"
	BasicPlaceholder  = "$USERNAME:$PASSWORD"
)

// Curl renders a single-line curl example for ep. Required query
// parameters appear as name=<name>; auth comes from scheme when set. HTTP
// schemes other than basic, digest and bearer get no credential flags.
func Curl(ep Endpoint, base string, scheme *openapi.SecurityScheme) string {
	var query []string
	for _, p := range ep.Parameters {
		if p.In == "query" && p.Required {
			query = append(query, fmt.Sprintf("%s=<%s>", p.Name, p.Name))
		}
	}

	var flags []string
	if scheme != nil {
		switch {
		case scheme.Type == openapi.SchemeHTTP && scheme.Scheme == "basic":
			flags = append(flags, fmt.Sprintf(`-u "%s"`, BasicPlaceholder))
		case scheme.Type == openapi.SchemeHTTP && scheme.Scheme == "digest":
			flags = append(flags, fmt.Sprintf(`--digest -u "%s"`, BasicPlaceholder))
		case scheme.Type == openapi.SchemeHTTP && scheme.Scheme == "bearer",
			scheme.Type == openapi.SchemeOAuth2,
			scheme.Type == openapi.SchemeOpenIDConnect:
			flags = append(flags, fmt.Sprintf(`-H "Authorization: Bearer %s"`, TokenPlaceholder))
		case scheme.Type == openapi.SchemeAPIKey && scheme.In == "query":
			query = append(query, fmt.Sprintf("%s=%s", scheme.ParamName, APIKeyPlaceholder))
		case scheme.Type == openapi.SchemeAPIKey && scheme.In == "cookie":
			flags = append(flags, fmt.Sprintf(`--cookie "%s=%s"`, scheme.ParamName, APIKeyPlaceholder))
		case scheme.Type == openapi.SchemeAPIKey:
			flags = append(flags, fmt.Sprintf(`-H "%s: %s"`, scheme.ParamName, APIKeyPlaceholder))
		}
	}

	if rb := ep.RequestBody; rb != nil && rb.ContentType != "" {
		flags = append(flags, fmt.Sprintf(`-H "Content-Type: %s"`, rb.ContentType))
		if isJSON(rb.ContentType) {
			flags = append(flags, fmt.Sprintf("-d '%s'", exampleJSON(rb.Fields)))
		} else {
			flags = append(flags, "--data-binary @body")
		}
	}

	url := base + ep.Path
	if len(query) > 0 {
		url += "?" + strings.Join(query, "&")
	}

	parts := append([]string{"curl", "-X", ep.Method, `"` + url + `"`}, flags...)
	return strings.Join(parts, " ")
}

func exampleJSON(fields []Field) string {
	if len(fields) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%q: %s", f.Name, exampleValue(f.Type)))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func exampleValue(typ string) string {
	switch typ {
	case "integer", "number":
		return "0"
	case "boolean":
		return "false"
	case "array":
		return "[]"
	case "object":
		return "{}"
	}
	return `"string"`
}
