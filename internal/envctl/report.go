package envctl

import (
	"fmt"
	"strings"

	"github.com/kennyg/ctxkit/internal/stablejson"
)

// DoctorMarkdown renders a doctor report. It holds no secret material
// because the report never does.
func DoctorMarkdown(r *Report) string {
	var b strings.Builder
	b.WriteString("# Local Environment Doctor\n\n")
	header(&b, r)
	b.WriteString("\n")

	list(&b, "Errors", r.Errors)
	list(&b, "Warnings", r.Warnings)
	list(&b, "Next actions", r.Actions)

	b.WriteString("## Details (redacted)\n\n")
	jsonBlock(&b, r)
	b.WriteString("\n## Notes\n\n")
	b.WriteString("- Do not paste secret values into chat.\n")
	b.WriteString("- Evidence files must not include secret values.\n")
	return b.String()
}

// CompileMarkdown renders a compile report. Missing requirements are
// listed once, under their own heading.
func CompileMarkdown(r *Report) string {
	var b strings.Builder
	b.WriteString("# Local Environment Compile Report\n\n")
	header(&b, r)
	fmt.Fprintf(&b, "- Env file: `%s`\n", r.EnvFile)
	fmt.Fprintf(&b, "- Effective context: `%s`\n\n", r.ContextFile)

	missing := make(map[string]bool, len(r.Missing))
	for _, m := range r.Missing {
		missing[m] = true
	}
	var other []string
	for _, e := range r.Errors {
		if !missing[e] {
			other = append(other, e)
		}
	}

	list(&b, "Errors", other)
	list(&b, "Missing requirements", r.Missing)
	list(&b, "Warnings", r.Warnings)

	b.WriteString("## Key summary (redacted)\n\n")
	jsonBlock(&b, r.Keys)
	b.WriteString("\n## Notes\n\n")
	b.WriteString("- Secret values are written only to the local env file.\n")
	b.WriteString("- Do not commit the local env file.\n")
	return b.String()
}

func header(b *strings.Builder, r *Report) {
	fmt.Fprintf(b, "- Generated (UTC): `%s`\n", r.GeneratedAt)
	fmt.Fprintf(b, "- Env: `%s`\n", r.Env)
	fmt.Fprintf(b, "- Status: **%s**\n", r.Status)
}

func list(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func jsonBlock(b *strings.Builder, v any) {
	data, err := stablejson.Marshal(v)
	if err != nil {
		data = []byte("null\n")
	}
	b.WriteString("```json\n")
	b.Write(data)
	b.WriteString("```\n")
}
