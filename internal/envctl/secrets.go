package envctl

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/kennyg/ctxkit/internal/yamlite"
)

// Secret backends
const (
	BackendMock = "mock" // <env dir>/.secrets-store/<env>/<name>
	BackendEnv  = "env"  // env://VAR or env:VAR
	BackendFile = "file" // file:///abs/path or file:relative/path
	BackendBWS  = "bws"
)

// SecretRef says where the material of one named secret lives
type SecretRef struct {
	Name    string
	Backend string
	Ref     string
}

// LoadSecretRefs reads env/secrets/<env>.ref.yaml. Both the
// {version, secrets: {...}} form and a top-level mapping of secrets are
// accepted.
func LoadSecretRefs(path, label string) (map[string]SecretRef, []string) {
	if !exists(path) {
		return nil, []string{fmt.Sprintf("Missing secret ref file: %s", label)}
	}
	doc, err := yamlite.ParseFile(path)
	if err != nil {
		return nil, []string{fmt.Sprintf("Failed to parse secrets ref %s: %v", label, err)}
	}
	if doc.IsNull() {
		return nil, []string{fmt.Sprintf("Secrets ref %s is empty", label)}
	}
	if !doc.IsMap() {
		return nil, []string{fmt.Sprintf("Secrets ref %s must be a mapping", label)}
	}

	entries := doc.Entries()
	nested := doc.Get("secrets").IsMap()
	if nested {
		entries = doc.Get("secrets").Entries()
	}

	refs := make(map[string]SecretRef)
	var problems []string
	for _, p := range entries {
		if !nested && p.Key == "version" {
			continue
		}
		if strings.TrimSpace(p.Key) == "" {
			problems = append(problems, fmt.Sprintf("Invalid secret name in %s: %q", label, p.Key))
			continue
		}
		if !p.Value.IsMap() {
			problems = append(problems, fmt.Sprintf("Secret %s in %s: definition must be a mapping", p.Key, label))
			continue
		}
		backend, _ := text(p.Value.Get("backend"))
		ref, _ := text(p.Value.Get("ref"))
		if strings.TrimSpace(backend) == "" {
			problems = append(problems, fmt.Sprintf("Secret %s in %s: backend must be a non-empty string", p.Key, label))
		}
		if strings.TrimSpace(ref) == "" {
			problems = append(problems, fmt.Sprintf("Secret %s in %s: ref must be a non-empty string", p.Key, label))
		}
		refs[p.Key] = SecretRef{Name: p.Key, Backend: strings.TrimSpace(backend), Ref: strings.TrimSpace(ref)}
	}
	return refs, problems
}

// resolver reads secret material. The returned error text never contains
// the material itself.
type resolver struct {
	root     string
	envDir   string
	env      string
	lookup   func(string) (string, bool)
	readFile func(string) ([]byte, error)
}

func newResolver(o Options) *resolver {
	lookup := o.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &resolver{root: o.Root, envDir: o.Dir, env: o.Env, lookup: lookup, readFile: os.ReadFile}
}

func (r *resolver) resolve(ref SecretRef) (string, error) {
	switch ref.Backend {
	case BackendMock:
		path := filepath.Join(r.envDir, ".secrets-store", r.env, ref.Name)
		data, err := r.readFile(path)
		if err != nil {
			return "", errors.Errorf("mock secret missing: create %s", path)
		}
		return strings.TrimRight(string(data), "\n"), nil

	case BackendEnv:
		name := strings.TrimSpace(trimScheme(ref.Ref, "env"))
		if name == "" {
			return "", errors.Errorf("env backend requires ref like env://VAR_NAME (got %q)", ref.Ref)
		}
		val, ok := r.lookup(name)
		if !ok {
			return "", errors.Errorf("missing environment variable for secret backend env: %s", name)
		}
		return val, nil

	case BackendFile:
		path := strings.TrimSpace(trimScheme(ref.Ref, "file"))
		if path == "" {
			return "", errors.Errorf("file backend requires ref like file:///abs/path (got %q)", ref.Ref)
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.root, filepath.FromSlash(path))
		}
		data, err := r.readFile(path)
		if err != nil {
			return "", errors.Errorf("file secret missing: %s", path)
		}
		return strings.TrimRight(string(data), "\n"), nil

	case BackendBWS:
		return "", errors.New("bws backend needs the Bitwarden CLI and network access, which ctxkit does not use; export the secret and reference it with the env backend")
	}
	return "", errors.Errorf("unsupported secret backend: %q (supported: mock, env, file)", ref.Backend)
}

// trimScheme strips "scheme://" or "scheme:" from ref
func trimScheme(ref, scheme string) string {
	if s, ok := strings.CutPrefix(ref, scheme+"://"); ok {
		return s
	}
	if s, ok := strings.CutPrefix(ref, scheme+":"); ok {
		return s
	}
	return ref
}
