package apiindex

import (
	"fmt"
	"strings"
)

// Markdown renders the index as a Markdown table. The output carries no
// timestamp so it only changes when the endpoints do.
func Markdown(idx *Index) string {
	var b strings.Builder

	title := idx.API.Title
	if title == "" {
		title = "API"
	}
	fmt.Fprintf(&b, "# %s index\n\n", cell(title))
	fmt.Fprintf(&b, "Generated from `%s`", idx.Source)
	if idx.API.Version != "" {
		fmt.Fprintf(&b, " (version %s)", cell(idx.API.Version))
	}
	fmt.Fprintf(&b, ". Base URL: `%s`.\n\n", idx.API.BaseURL)

	if len(idx.Endpoints) == 0 {
		b.WriteString("No operations.\n")
		return b.String()
	}

	b.WriteString("| Method | Path | Operation | Summary | Auth | Parameters | Body | Responses |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, ep := range idx.Endpoints {
		summary := ep.Summary
		if ep.Deprecated {
			summary = strings.TrimSpace("(deprecated) " + summary)
		}
		fmt.Fprintf(&b, "| %s | `%s` | %s | %s | %s | %s | %s | %s |\n",
			ep.Method,
			cell(ep.Path),
			cell(ep.OperationID),
			cell(summary),
			cell(ep.Auth),
			cell(paramsCell(ep.Parameters)),
			cell(bodyCell(ep.RequestBody)),
			cell(strings.Join(ep.Responses, ", ")),
		)
	}

	b.WriteString("\n## Examples\n")
	for _, ep := range idx.Endpoints {
		fmt.Fprintf(&b, "\n### %s %s\n\n```sh\n%s\n```\n", ep.Method, ep.Path, ep.Curl)
	}
	return b.String()
}

func paramsCell(params []Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		attrs := []string{p.In}
		if p.Required {
			attrs = append(attrs, "required")
		}
		if p.Deprecated {
			attrs = append(attrs, "deprecated")
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", p.Name, strings.Join(attrs, ", ")))
	}
	return strings.Join(parts, ", ")
}

func bodyCell(rb *RequestBody) string {
	if rb == nil {
		return ""
	}
	names := make([]string, 0, len(rb.Fields))
	for _, f := range rb.Fields {
		names = append(names, f.Name)
	}
	s := rb.ContentType
	if rb.Schema != "" {
		s += " " + rb.Schema
	}
	if len(names) > 0 {
		s += " {" + strings.Join(names, ", ") + "}"
	}
	return strings.TrimSpace(s)
}

// cell makes s safe for a table cell: pipes are escaped and line breaks
// collapse to single spaces.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
