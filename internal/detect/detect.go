// Package detect guesses the artifact type of a context file from its name
// and content, so add-artifact can be run without --type.
package detect

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kennyg/ctxkit/internal/artifact"
)

// Detection is a guessed type and what gave it away
type Detection struct {
	Type   artifact.Type
	Reason string
}

// Patterns for recognizing artifact content
var (
	// top-level openapi/swagger key, YAML or JSON
	openAPIYAMLRe = regexp.MustCompile(`(?m)^["']?(openapi|swagger)["']?\s*:`)
	openAPIJSONRe = regexp.MustCompile(`^\s*\{[^{]*?"(openapi|swagger)"\s*:`)

	apiIndexRe = regexp.MustCompile(`"schema"\s*:\s*"` + regexp.QuoteMeta(artifact.APIIndexSchema) + `"`)
	bpmnRe     = regexp.MustCompile(`<(?:bpmn2?:)?definitions[^>]*BPMN/2`)
	ddlRe      = regexp.MustCompile(`(?im)^\s*create\s+(?:table|view|index|type)\b`)
	prismaRe   = regexp.MustCompile(`(?m)^\s*(?:model|datasource)\s+\w+\s*\{`)

	docExts = map[string]bool{
		".md": true, ".mdx": true, ".markdown": true, ".rst": true, ".txt": true, ".adoc": true,
	}
	schemaExts = map[string]bool{
		".sql": true, ".prisma": true, ".dbml": true,
	}
)

// Type guesses the artifact type of the file at path with the given
// content. Content wins over the extension; TypeOther means no rule matched.
func Type(path string, content []byte) Detection {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))
	text := string(content)

	switch {
	case base == artifact.SkillFilename:
		return Detection{artifact.TypeSkill, "named " + artifact.SkillFilename}
	case ext == ".bpmn" || bpmnRe.MatchString(text):
		return Detection{artifact.TypeBPMN, "BPMN 2.0 definitions"}
	}

	switch ext {
	case ".yaml", ".yml":
		if m := openAPIYAMLRe.FindStringSubmatch(text); m != nil {
			return Detection{artifact.TypeOpenAPI, "top-level " + m[1] + " key"}
		}
	case ".json":
		if apiIndexRe.MatchString(text) {
			return Detection{artifact.TypeAPIIndex, "schema " + artifact.APIIndexSchema}
		}
		if m := openAPIJSONRe.FindStringSubmatch(text); m != nil {
			return Detection{artifact.TypeOpenAPI, "top-level " + m[1] + " key"}
		}
	}

	if schemaExts[ext] || ddlRe.MatchString(text) || prismaRe.MatchString(text) {
		return Detection{artifact.TypeDBSchema, "database schema definitions"}
	}
	if docExts[ext] {
		return Detection{artifact.TypeDoc, ext + " document"}
	}
	return Detection{artifact.TypeOther, "no rule matched"}
}
