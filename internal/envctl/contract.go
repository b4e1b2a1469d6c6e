// Package envctl checks a repository's environment contract against the
// values and secret references of one environment, and compiles the local
// env file together with a redacted snapshot of the effective settings.
//
// Secret material is only ever written to the local env file. Reports,
// snapshots and log lines carry variable names, never secret values.
package envctl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kennyg/ctxkit/internal/yamlite"
)

// VarType is the declared type of a contract variable
type VarType string

const (
	TypeString VarType = "string"
	TypeInt    VarType = "int"
	TypeFloat  VarType = "float"
	TypeBool   VarType = "bool"
	TypeJSON   VarType = "json"
	TypeEnum   VarType = "enum"
	TypeURL    VarType = "url"
)

var varTypes = []VarType{TypeBool, TypeEnum, TypeFloat, TypeInt, TypeJSON, TypeString, TypeURL}

// State is the lifecycle state of a contract variable
type State string

const (
	StateActive     State = "active"
	StateDeprecated State = "deprecated"
	StateRemoved    State = "removed"
)

var states = []State{StateActive, StateDeprecated, StateRemoved}

var (
	namePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Var is one variable declared in the contract
type Var struct {
	Name        string
	Type        VarType
	Required    bool
	Secret      bool
	SecretRef   string
	Default     *yamlite.Node // nil when none is declared
	Enum        []string
	Scopes      []string // nil means every environment
	Description string

	State          State
	DeprecateAfter string
	Replacement    string
	// RenameFrom is the legacy name still accepted in values files
	RenameFrom string
}

// AppliesTo reports whether the variable is in scope for env
func (v *Var) AppliesTo(env string) bool {
	if v.Scopes == nil {
		return true
	}
	for _, s := range v.Scopes {
		if s == env {
			return true
		}
	}
	return false
}

// live reports whether the variable takes part in env at all
func (v *Var) live(env string) bool {
	return v.AppliesTo(env) && v.State != StateRemoved
}

// Contract is the parsed env/contract.yaml
type Contract struct {
	Vars   []*Var // source order
	byName map[string]*Var
}

// Lookup returns the variable called name, or nil
func (c *Contract) Lookup(name string) *Var {
	if c == nil {
		return nil
	}
	return c.byName[name]
}

// renames maps legacy names to the variables that replaced them
func (c *Contract) renames() map[string]string {
	m := make(map[string]string)
	for _, v := range c.Vars {
		if v.RenameFrom != "" {
			m[v.RenameFrom] = v.Name
		}
	}
	return m
}

// LoadContract reads and validates the contract at path. Problems are
// returned as messages; a contract that cannot be read at all comes back
// empty.
func LoadContract(path, label string) (*Contract, []string) {
	empty := &Contract{byName: map[string]*Var{}}
	if !exists(path) {
		return empty, []string{fmt.Sprintf("Missing contract: %s", label)}
	}
	doc, err := yamlite.ParseFile(path)
	if err != nil {
		return empty, []string{fmt.Sprintf("Failed to parse contract YAML: %v", err)}
	}
	return ParseContract(doc)
}

// ParseContract validates a parsed contract document
func ParseContract(doc *yamlite.Node) (*Contract, []string) {
	c := &Contract{byName: map[string]*Var{}}
	vars := doc.Get("variables")
	if !doc.IsMap() || !vars.IsMap() {
		return c, []string{"Contract must be a mapping with top-level 'variables' mapping."}
	}

	var problems []string
	for _, p := range vars.Entries() {
		v, errs := parseVar(p.Key, p.Value)
		problems = append(problems, errs...)
		if v != nil {
			c.Vars = append(c.Vars, v)
			c.byName[v.Name] = v
		}
	}

	// legacy names must map to one variable and must not still be live
	seen := make(map[string]string)
	var order []string
	for _, v := range c.Vars {
		if v.RenameFrom == "" {
			continue
		}
		if prev, ok := seen[v.RenameFrom]; ok && prev != v.Name {
			problems = append(problems, fmt.Sprintf("Contract rename_from collision: %s -> %s and %s", v.RenameFrom, prev, v.Name))
			continue
		}
		if _, ok := seen[v.RenameFrom]; !ok {
			order = append(order, v.RenameFrom)
		}
		seen[v.RenameFrom] = v.Name
	}
	for _, old := range order {
		if prev := c.byName[old]; prev != nil && prev.State != StateRemoved {
			problems = append(problems, fmt.Sprintf("Contract rename_from conflict: %s declares rename_from=%s but %s exists and is not state='removed'", seen[old], old, old))
		}
	}
	return c, problems
}

func parseVar(name string, n *yamlite.Node) (*Var, []string) {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf("Variable %s: ", name)+fmt.Sprintf(format, args...))
	}

	if !namePattern.MatchString(name) {
		return nil, []string{fmt.Sprintf("Invalid env var name in contract: %q", name)}
	}
	if !n.IsMap() {
		return nil, []string{fmt.Sprintf("Variable %s: definition must be a mapping", name)}
	}

	typ, _ := text(n.Get("type"))
	if !validType(VarType(typ)) {
		return nil, []string{fmt.Sprintf("Variable %s: invalid type %q (allowed: %s)", name, typ, joinTypes())}
	}
	v := &Var{
		Name:     name,
		Type:     VarType(typ),
		Required: n.Get("required").Bool(),
		Secret:   n.Get("secret").Bool(),
		State:    StateActive,
	}

	deprecated := n.Get("deprecated").Bool()
	if s, ok := text(n.Get("state")); ok && strings.TrimSpace(s) != "" {
		v.State = State(strings.TrimSpace(s))
	} else if deprecated {
		v.State = StateDeprecated
	}
	if !validState(v.State) {
		fail("invalid state %q (allowed: active, deprecated, removed)", v.State)
		v.State = StateActive
	}
	if deprecated && v.State != StateDeprecated {
		fail("deprecated=true conflicts with state=%q", v.State)
	}

	if da := n.Get("deprecate_after"); !da.IsNull() {
		s, ok := text(da)
		s = strings.TrimSpace(s)
		if !ok || !datePattern.MatchString(s) {
			fail("deprecate_after must be YYYY-MM-DD if present")
		} else {
			v.DeprecateAfter = s
		}
		if v.State != StateDeprecated {
			fail("deprecate_after is only valid when state='deprecated'")
			v.DeprecateAfter = ""
		}
	}

	repl := n.Get("replacement")
	if repl.IsNull() {
		repl = n.Get("replaced_by")
	}
	if !repl.IsNull() {
		s, ok := text(repl)
		validName := ok && namePattern.MatchString(s)
		if !validName {
			fail("replacement must be a valid env var name")
		}
		if v.State != StateDeprecated {
			fail("replacement is only valid when state='deprecated'")
		} else if validName {
			v.Replacement = s
		}
	}

	if m := n.Get("migration"); !m.IsNull() {
		if !m.IsMap() {
			fail("migration must be a mapping if present")
		} else if rf := m.Get("rename_from"); !rf.IsNull() {
			s, ok := text(rf)
			switch {
			case !ok || !namePattern.MatchString(s):
				fail("migration.rename_from must be a valid env var name")
			case s == name:
				fail("migration.rename_from must not equal the variable name")
			default:
				v.RenameFrom = s
			}
		}
	}

	ref := n.Get("secret_ref")
	if v.Secret {
		s, ok := text(ref)
		if !ok || strings.TrimSpace(s) == "" {
			fail("secret variables must set non-empty secret_ref")
		}
		v.SecretRef = strings.TrimSpace(s)
		if n.Has("default") {
			fail("secret variables must not define a default")
		}
	} else if !ref.IsNull() {
		fail("non-secret variables must not set secret_ref")
	}

	if d := n.Get("default"); !d.IsNull() && !v.Secret {
		v.Default = d
	}

	if v.Type == TypeEnum {
		list, ok := stringList(n.Get("enum"))
		if !ok || len(list) == 0 {
			fail("enum type requires non-empty string list 'enum'")
		} else {
			v.Enum = list
		}
	}

	if sc := n.Get("scopes"); !sc.IsNull() {
		list, ok := stringList(sc)
		if !ok {
			fail("scopes must be a list of env names")
		} else {
			v.Scopes = list
		}
	}

	desc, ok := text(n.Get("description"))
	if !ok || strings.TrimSpace(desc) == "" || strings.Contains(desc, "\n") {
		fail("description must be a non-empty single line")
		desc = strings.TrimSpace(strings.ReplaceAll(desc, "\n", " "))
	}
	v.Description = desc

	return v, problems
}

// text returns the string value of a scalar that resolves to a string
func text(n *yamlite.Node) (string, bool) {
	if n == nil || n.Kind != yamlite.ScalarNode || n.Tag() != yamlite.StrTag {
		return "", false
	}
	return n.Value, true
}

// stringList returns a sequence of strings; ok is false for anything else
func stringList(n *yamlite.Node) ([]string, bool) {
	if !n.IsSeq() {
		return nil, false
	}
	out := make([]string, 0, n.Len())
	for _, item := range n.Elements() {
		s, ok := text(item)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func validType(t VarType) bool {
	for _, v := range varTypes {
		if v == t {
			return true
		}
	}
	return false
}

func validState(s State) bool {
	for _, v := range states {
		if v == s {
			return true
		}
	}
	return false
}

func joinTypes() string {
	parts := make([]string, len(varTypes))
	for i, t := range varTypes {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
