package artifact

import "strings"

// Type represents the kind of context artifact
type Type string

const (
	TypeOpenAPI  Type = "openapi"
	TypeAPIIndex Type = "api-index"
	TypeDBSchema Type = "db-schema"
	TypeBPMN     Type = "bpmn"
	TypeSkill    Type = "skill"
	TypeDoc      Type = "doc"
	TypeOther    Type = "other"
)

// AllTypes returns every known artifact type
func AllTypes() []Type {
	return []Type{TypeOpenAPI, TypeAPIIndex, TypeDBSchema, TypeBPMN, TypeSkill, TypeDoc, TypeOther}
}

// IsValid returns true if the type is known
func (t Type) IsValid() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

func (t Type) String() string {
	return string(t)
}

// Mode says whether an artifact is hand-authored or produced by a command
type Mode string

const (
	// ModeContract artifacts are authoritative and edited by hand
	ModeContract Mode = "contract"
	// ModeGenerated artifacts are derived and can be regenerated
	ModeGenerated Mode = "generated"
)

// IsValid returns true if the mode is known
func (m Mode) IsValid() bool {
	return m == ModeContract || m == ModeGenerated
}

// ParseType parses a type name case-insensitively
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	return t, t.IsValid()
}

// ParseMode parses a mode name case-insensitively
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	return m, m.IsValid()
}
