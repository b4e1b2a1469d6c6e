package envctl

import (
	"fmt"
	"os"
	"strings"

	"github.com/kennyg/ctxkit/internal/yamlite"
)

// Values holds canonical values keyed by contract name
type Values map[string]*yamlite.Node

// LoadValues reads a values file. A missing or empty file has no values.
func LoadValues(path, label string) ([]yamlite.Pair, []string) {
	if !exists(path) {
		return nil, nil
	}
	doc, err := yamlite.ParseFile(path)
	if err != nil {
		return nil, []string{fmt.Sprintf("Failed to parse values file %s: %v", label, err)}
	}
	if doc.IsNull() {
		return nil, nil
	}
	if !doc.IsMap() {
		return nil, []string{fmt.Sprintf("Values file %s must be a mapping", label)}
	}

	var (
		out      []yamlite.Pair
		problems []string
	)
	for _, p := range doc.Entries() {
		if !namePattern.MatchString(p.Key) {
			problems = append(problems, fmt.Sprintf("Invalid key in values file %s: %q", label, p.Key))
			continue
		}
		out = append(out, p)
	}
	return out, problems
}

// Canonicalize maps raw values onto contract names for env. Legacy keys
// declared through migration.rename_from are accepted with a warning;
// unknown, out-of-scope, removed and secret keys are errors.
func Canonicalize(c *Contract, raw []yamlite.Pair, env, label string) (Values, []string, []string) {
	var errs, warns []string
	out := make(Values)

	present := make(map[string]bool, len(raw))
	for _, p := range raw {
		present[p.Key] = true
	}
	renames := c.renames()

	for _, p := range raw {
		k := p.Key
		if v := c.Lookup(k); v != nil {
			switch {
			case !v.AppliesTo(env):
				errs = append(errs, fmt.Sprintf("Out-of-scope key in values file %s: %s (env=%s)", label, k, env))
			case v.State == StateRemoved:
				errs = append(errs, fmt.Sprintf("Removed contract key set in values file %s: %s", label, k))
			case v.Secret:
				errs = append(errs, fmt.Sprintf("Values file must not include secret variable %s: %s", k, label))
			default:
				if v.State == StateDeprecated {
					msg := fmt.Sprintf("Deprecated contract key used in values file %s: %s", label, k)
					if v.DeprecateAfter != "" {
						msg += fmt.Sprintf(" (deprecate_after=%s)", v.DeprecateAfter)
					}
					if v.Replacement != "" {
						msg += fmt.Sprintf(" (replacement=%s)", v.Replacement)
					}
					warns = append(warns, msg)
				}
				out[k] = p.Value
			}
			continue
		}

		target, ok := renames[k]
		if !ok {
			errs = append(errs, fmt.Sprintf("Unknown key in values file %s: %s", label, k))
			continue
		}
		if present[target] {
			errs = append(errs, fmt.Sprintf("Conflicting keys in values file %s: both legacy %s and new %s are set. Remove %s.", label, k, target, k))
			continue
		}
		v := c.Lookup(target)
		switch {
		case v == nil:
			errs = append(errs, fmt.Sprintf("Legacy key %s maps to unknown contract key %s: %s", k, target, label))
		case !v.AppliesTo(env):
			errs = append(errs, fmt.Sprintf("Out-of-scope key in values file %s: %s -> %s (env=%s)", label, k, target, env))
		case v.State == StateRemoved:
			errs = append(errs, fmt.Sprintf("Legacy key %s maps to removed contract key %s: %s", k, target, label))
		case v.Secret:
			errs = append(errs, fmt.Sprintf("Values file must not include secret variable %s (renamed to %s): %s", k, target, label))
		default:
			warns = append(warns, fmt.Sprintf("Legacy key used in values file %s: %s -> %s (migration.rename_from).", label, k, target))
			out[target] = p.Value
		}
	}
	return out, errs, warns
}

// CheckType returns "" when n is acceptable for v, or what was expected
func CheckType(v *Var, n *yamlite.Node) string {
	tag := n.Tag()
	switch v.Type {
	case TypeString:
		if tag != yamlite.StrTag {
			return "expected string"
		}
	case TypeURL:
		if tag != yamlite.StrTag {
			return "expected url string"
		}
	case TypeInt:
		if tag != yamlite.IntTag {
			return "expected int"
		}
	case TypeFloat:
		if tag != yamlite.IntTag && tag != yamlite.FloatTag {
			return "expected float"
		}
	case TypeBool:
		if tag != yamlite.BoolTag {
			return "expected bool"
		}
	case TypeJSON:
		if tag == yamlite.NullTag {
			return "expected json-like"
		}
	case TypeEnum:
		if tag != yamlite.StrTag {
			return "expected enum string"
		}
		if len(v.Enum) > 0 && !contains(v.Enum, n.Value) {
			return fmt.Sprintf("expected one of [%s]", strings.Join(v.Enum, ", "))
		}
	}
	return ""
}

// blank reports whether a value counts as unset for a required variable
func blank(n *yamlite.Node) bool {
	return n.IsNull() || (n.Kind == yamlite.ScalarNode && n.Value == "")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
