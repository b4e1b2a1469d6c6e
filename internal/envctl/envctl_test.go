package envctl

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennyg/ctxkit/internal/yamlite"
)

const secretValue = "s3cr3t-value"

const contractYAML = `variables:
  APP_ENV:
    type: enum
    enum: [dev, staging, prod]
    required: true
    default: dev
    description: Selected environment
  PORT:
    type: int
    required: true
    default: 8080
    description: HTTP port
  DATABASE_URL:
    type: url
    required: true
    description: Primary database   # renamed in 2026
    migration:
      rename_from: DATABASE_DSN
  FEATURE_FLAGS:
    type: json
    description: Flag overrides
  DEBUG:
    type: bool
    default: false
    description: Verbose logging
  LEGACY_MODE:
    type: string
    state: deprecated
    deprecate_after: 2026-12-31
    replacement: APP_MODE
    description: Old mode switch
  API_TOKEN:
    type: string
    required: true
    secret: true
    secret_ref: api_token
    description: Upstream API token
  PROD_ONLY:
    type: string
    required: true
    scopes: [prod]
    description: Only in production
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// setup writes a passing dev environment and returns its options
func setup(t *testing.T) Options {
	t.Helper()
	orig := now
	now = func() time.Time { return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = orig })

	root := t.TempDir()
	dir := filepath.Join(root, "env")
	writeFile(t, filepath.Join(root, "docs", "project", "env-ssot.json"), `{"mode": "repo-env-contract"}`)
	writeFile(t, filepath.Join(dir, "contract.yaml"), contractYAML)
	writeFile(t, filepath.Join(dir, "values", "dev.yaml"), `DATABASE_DSN: postgres://localhost:5432/app
LEGACY_MODE: fast
FEATURE_FLAGS: {beta: true}
`)
	writeFile(t, filepath.Join(dir, "values", "dev.local.yaml"), "PORT: 9090\nDEBUG: true\n")
	writeFile(t, filepath.Join(dir, "secrets", "dev.ref.yaml"), `version: 1
secrets:
  api_token:
    backend: env
    ref: env://TEST_API_TOKEN
`)

	return Options{
		Root:       root,
		Dir:        dir,
		Gate:       filepath.Join(root, "docs", "project", "env-ssot.json"),
		ContextDir: filepath.Join(root, "docs", "context", "env"),
		Env:        "dev",
		LookupEnv: func(name string) (string, bool) {
			if name == "TEST_API_TOKEN" {
				return secretValue, true
			}
			return "", false
		},
	}
}

func mustParse(t *testing.T, src string) *yamlite.Node {
	t.Helper()
	n, err := yamlite.Parse([]byte(src))
	require.NoError(t, err)
	return n
}

func TestParseContract(t *testing.T) {
	c, problems := ParseContract(mustParse(t, contractYAML))
	require.Empty(t, problems)
	require.Len(t, c.Vars, 8)

	assert.Equal(t, "APP_ENV", c.Vars[0].Name, "source order is kept")
	assert.Equal(t, []string{"dev", "staging", "prod"}, c.Lookup("APP_ENV").Enum)
	assert.Equal(t, "Primary database", c.Lookup("DATABASE_URL").Description)
	assert.Equal(t, "DATABASE_DSN", c.Lookup("DATABASE_URL").RenameFrom)

	legacy := c.Lookup("LEGACY_MODE")
	assert.Equal(t, StateDeprecated, legacy.State)
	assert.Equal(t, "2026-12-31", legacy.DeprecateAfter)
	assert.Equal(t, "APP_MODE", legacy.Replacement)

	token := c.Lookup("API_TOKEN")
	assert.True(t, token.Secret)
	assert.Equal(t, "api_token", token.SecretRef)

	prod := c.Lookup("PROD_ONLY")
	assert.False(t, prod.AppliesTo("dev"))
	assert.True(t, prod.AppliesTo("prod"))
	assert.True(t, c.Lookup("PORT").AppliesTo("anything"))
	assert.Nil(t, c.Lookup("NOPE"))
}

func TestParseContract_Problems(t *testing.T) {
	tests := []struct {
		name string
		vars string
		want string
	}{
		{"bad name", "  lower_case: {type: string, description: x}", `Invalid env var name in contract: "lower_case"`},
		{"not a mapping", "  FOO: string", "Variable FOO: definition must be a mapping"},
		{"bad type", "  FOO: {type: text, description: x}", `Variable FOO: invalid type "text"`},
		{"bad state", "  FOO: {type: string, state: retired, description: x}", `invalid state "retired"`},
		{"deprecated conflicts", "  FOO: {type: string, deprecated: true, state: removed, description: x}", `deprecated=true conflicts with state="removed"`},
		{"bad date", "  FOO: {type: string, state: deprecated, deprecate_after: soon, description: x}", "deprecate_after must be YYYY-MM-DD"},
		{"date needs deprecated", "  FOO: {type: string, deprecate_after: 2026-01-01, description: x}", "deprecate_after is only valid when state='deprecated'"},
		{"replacement needs deprecated", "  FOO: {type: string, replaced_by: BAR, description: x}", "replacement is only valid when state='deprecated'"},
		{"bad replacement", "  FOO: {type: string, state: deprecated, replacement: bar, description: x}", "replacement must be a valid env var name"},
		{"migration not a mapping", "  FOO: {type: string, migration: BAR, description: x}", "migration must be a mapping"},
		{"rename to self", "  FOO: {type: string, migration: {rename_from: FOO}, description: x}", "must not equal the variable name"},
		{"secret without ref", "  FOO: {type: string, secret: true, description: x}", "secret variables must set non-empty secret_ref"},
		{"secret with default", "  FOO: {type: string, secret: true, secret_ref: foo, default: x, description: x}", "secret variables must not define a default"},
		{"ref without secret", "  FOO: {type: string, secret_ref: foo, description: x}", "non-secret variables must not set secret_ref"},
		{"enum without values", "  FOO: {type: enum, description: x}", "enum type requires non-empty string list 'enum'"},
		{"scopes not strings", "  FOO: {type: string, scopes: [1, 2], description: x}", "scopes must be a list of env names"},
		{"no description", "  FOO: {type: string}", "description must be a non-empty single line"},
		{"multi-line description", "  FOO:\n    type: string\n    description: |\n      two\n      lines", "description must be a non-empty single line"},
		{"rename collision", "  FOO: {type: string, migration: {rename_from: OLD}, description: x}\n  BAR: {type: string, migration: {rename_from: OLD}, description: x}", "Contract rename_from collision: OLD -> FOO and BAR"},
		{"rename of live variable", "  OLD: {type: string, description: x}\n  NEW: {type: string, migration: {rename_from: OLD}, description: x}", "NEW declares rename_from=OLD but OLD exists and is not state='removed'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, problems := ParseContract(mustParse(t, "variables:\n"+tt.vars+"\n"))
			require.NotEmpty(t, problems)
			assert.Contains(t, strings.Join(problems, "\n"), tt.want)
		})
	}

	_, problems := ParseContract(mustParse(t, "vars: {}\n"))
	assert.Equal(t, []string{"Contract must be a mapping with top-level 'variables' mapping."}, problems)

	c, problems := ParseContract(mustParse(t, "variables:\n  OLD: {type: string, state: removed, description: x}\n  NEW: {type: string, migration: {rename_from: OLD}, description: x}\n"))
	assert.Empty(t, problems, "renaming a removed variable is allowed")
	assert.Equal(t, "OLD", c.Lookup("NEW").RenameFrom)
}

func TestCanonicalize(t *testing.T) {
	c, problems := ParseContract(mustParse(t, contractYAML))
	require.Empty(t, problems)

	raw := mustParse(t, `DATABASE_DSN: legacy
DATABASE_URL: current
PROD_ONLY: x
API_TOKEN: leaked
UNKNOWN_KEY: 1
LEGACY_MODE: fast
`).Entries()

	values, errs, warns := Canonicalize(c, raw, "dev", "env/values/dev.yaml")
	assert.Equal(t, []string{
		"Conflicting keys in values file env/values/dev.yaml: both legacy DATABASE_DSN and new DATABASE_URL are set. Remove DATABASE_DSN.",
		"Out-of-scope key in values file env/values/dev.yaml: PROD_ONLY (env=dev)",
		"Values file must not include secret variable API_TOKEN: env/values/dev.yaml",
		"Unknown key in values file env/values/dev.yaml: UNKNOWN_KEY",
	}, errs)
	assert.Equal(t, []string{
		"Deprecated contract key used in values file env/values/dev.yaml: LEGACY_MODE (deprecate_after=2026-12-31) (replacement=APP_MODE)",
	}, warns)
	assert.Equal(t, []string{"DATABASE_URL", "LEGACY_MODE"}, sortedKeys(values))
	assert.Equal(t, "current", values["DATABASE_URL"].Text())

	values, errs, warns = Canonicalize(c, mustParse(t, "DATABASE_DSN: legacy\n").Entries(), "dev", "v.yaml")
	assert.Empty(t, errs)
	assert.Equal(t, []string{"Legacy key used in values file v.yaml: DATABASE_DSN -> DATABASE_URL (migration.rename_from)."}, warns)
	assert.Equal(t, "legacy", values["DATABASE_URL"].Text())
}

func TestCheckType(t *testing.T) {
	enum := &Var{Type: TypeEnum, Enum: []string{"a", "b"}}
	tests := []struct {
		v     *Var
		value string
		want  string
	}{
		{&Var{Type: TypeString}, "hello", ""},
		{&Var{Type: TypeString}, "42", "expected string"},
		{&Var{Type: TypeString}, `"42"`, ""},
		{&Var{Type: TypeURL}, "https://example.com", ""},
		{&Var{Type: TypeInt}, "42", ""},
		{&Var{Type: TypeInt}, "4.2", "expected int"},
		{&Var{Type: TypeInt}, "true", "expected int"},
		{&Var{Type: TypeFloat}, "4.2", ""},
		{&Var{Type: TypeFloat}, "4", ""},
		{&Var{Type: TypeBool}, "false", ""},
		{&Var{Type: TypeBool}, "yes", "expected bool"},
		{&Var{Type: TypeJSON}, "[1, 2]", ""},
		{&Var{Type: TypeJSON}, "~", "expected json-like"},
		{enum, "a", ""},
		{enum, "c", "expected one of [a, b]"},
		{enum, "1", "expected enum string"},
	}
	for _, tt := range tests {
		t.Run(string(tt.v.Type)+"="+tt.value, func(t *testing.T) {
			n := mustParse(t, "v: "+tt.value+"\n").Get("v")
			assert.Equal(t, tt.want, CheckType(tt.v, n))
		})
	}
}

func TestDoctor_Pass(t *testing.T) {
	o := setup(t)

	r, err := Doctor(context.Background(), o)
	require.NoError(t, err)
	assert.True(t, r.OK(), "errors: %v", r.Errors)
	assert.Equal(t, StatusPass, r.Status)
	assert.Empty(t, r.Actions)
	assert.Equal(t, []string{
		"Legacy key used in values file env/values/dev.yaml: DATABASE_DSN -> DATABASE_URL (migration.rename_from).",
		"Deprecated contract key used in values file env/values/dev.yaml: LEGACY_MODE (deprecate_after=2026-12-31) (replacement=APP_MODE)",
	}, r.Warnings)

	md := DoctorMarkdown(r)
	assert.True(t, strings.HasPrefix(md, "# Local Environment Doctor\n"))
	assert.Contains(t, md, "- Status: **PASS**")
	assert.Contains(t, md, "## Warnings")
	assert.NotContains(t, md, "## Errors")
	assert.NotContains(t, md, secretValue)
}

func TestDoctor_Failures(t *testing.T) {
	o := setup(t)
	o.LookupEnv = func(string) (string, bool) { return "", false }
	require.NoError(t, os.Remove(filepath.Join(o.Dir, "values", "dev.yaml")))
	require.NoError(t, os.Remove(o.Gate))
	writeFile(t, filepath.Join(o.Dir, "values", "dev.local.yaml"), "PORT: eighty\n")

	r, err := Doctor(context.Background(), o)
	require.NoError(t, err)
	assert.False(t, r.OK())
	assert.Equal(t, []string{
		"SSOT mode gate failed: docs/project/env-ssot.json must set mode=repo-env-contract",
		"Type check failed for PORT: expected int",
		"DATABASE_URL (required; provide in env/values/dev.yaml or env/values/dev.local.yaml or contract default)",
		"API_TOKEN (secret material unavailable: missing environment variable for secret backend env: TEST_API_TOKEN)",
	}, r.Errors)
	require.Len(t, r.Actions, 3)
	assert.Contains(t, r.Actions[0], "env/values/dev.local.yaml")
	assert.Contains(t, r.Actions[2], "env/.secrets-store/dev/<secret_name>")

	md := DoctorMarkdown(r)
	assert.Contains(t, md, "- Status: **FAIL**")
	assert.Contains(t, md, "## Next actions")
}

func TestDoctor_SecretRefs(t *testing.T) {
	o := setup(t)
	require.NoError(t, os.Remove(filepath.Join(o.Dir, "secrets", "dev.ref.yaml")))

	r, err := Doctor(context.Background(), o)
	require.NoError(t, err)
	assert.Contains(t, r.Errors, "Missing secret ref file: env/secrets/dev.ref.yaml")
	assert.Contains(t, r.Errors, "API_TOKEN (missing secret ref entry: api_token in env/secrets/dev.ref.yaml)")

	// without live secrets the ref file is not needed
	o.Env = "staging"
	writeFile(t, filepath.Join(o.Dir, "contract.yaml"), "variables:\n  PORT: {type: int, default: 80, description: Port}\n")
	r, err = Doctor(context.Background(), o)
	require.NoError(t, err)
	assert.True(t, r.OK(), "errors: %v", r.Errors)
}

func TestCompile_WritesEnvFileAndRedactedContext(t *testing.T) {
	o := setup(t)

	r, err := Compile(context.Background(), o, false)
	require.NoError(t, err)
	require.True(t, r.OK(), "errors: %v", r.Errors)
	assert.True(t, r.EnvFileWritten)
	assert.True(t, r.ContextWritten)
	assert.Equal(t, ".env.local", r.EnvFile)
	assert.Equal(t, "docs/context/env/effective-dev.json", r.ContextFile)
	assert.Equal(t, KeySummary{Secret: true, Present: true, Type: "string"}, r.Keys["API_TOKEN"])
	assert.NotContains(t, r.Keys, "PROD_ONLY")

	envFile := filepath.Join(o.Root, ".env.local")
	data, err := os.ReadFile(envFile)
	require.NoError(t, err)
	assert.Equal(t, `# Generated by ctxkit env compile. Do not hand-edit; rerun ctxkit env compile.

API_TOKEN=s3cr3t-value
APP_ENV=dev
DATABASE_URL=postgres://localhost:5432/app
DEBUG=true
FEATURE_FLAGS={"beta":true}
LEGACY_MODE=fast
PORT=9090
`, string(data))
	if runtime.GOOS != "windows" {
		info, err := os.Stat(envFile)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	ctxData, err := os.ReadFile(o.ContextFile())
	require.NoError(t, err)
	assert.NotContains(t, string(ctxData), secretValue)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(ctxData, &snap))
	assert.Equal(t, "dev", snap.Env)
	assert.Equal(t, Redacted, snap.Values["API_TOKEN"])
	assert.Equal(t, float64(9090), snap.Values["PORT"])
	assert.Equal(t, map[string]any{"beta": true}, snap.Values["FEATURE_FLAGS"])

	md := CompileMarkdown(r)
	assert.Contains(t, md, "- Env file: `.env.local`")
	assert.Contains(t, md, "## Key summary (redacted)")
	assert.NotContains(t, md, secretValue)

	// a second run with a new timestamp rewrites nothing
	now = func() time.Time { return time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC) }
	r, err = Compile(context.Background(), o, false)
	require.NoError(t, err)
	assert.False(t, r.EnvFileWritten)
	assert.False(t, r.ContextWritten)
}

func TestCompile_FailureWritesNothing(t *testing.T) {
	o := setup(t)
	o.Env = "staging"
	writeFile(t, filepath.Join(o.Dir, "values", "staging.yaml"), "PORT: eighty\n")

	r, err := Compile(context.Background(), o, false)
	require.NoError(t, err)
	assert.False(t, r.OK())
	assert.Equal(t, ".env.staging.local", r.EnvFile)
	assert.Equal(t, []string{
		"Missing secret ref file: env/secrets/staging.ref.yaml",
		"Type check failed for PORT in env/values/staging.yaml: expected int",
		"API_TOKEN (missing secret ref entry: api_token in env/secrets/staging.ref.yaml)",
		"DATABASE_URL (required but missing)",
	}, r.Errors)
	assert.Equal(t, r.Errors[2:], r.Missing)

	assert.NoFileExists(t, filepath.Join(o.Root, ".env.staging.local"))
	assert.NoFileExists(t, o.ContextFile())

	md := CompileMarkdown(r)
	assert.Contains(t, md, "## Missing requirements\n\n- API_TOKEN")
	assert.Equal(t, 1, strings.Count(md, "DATABASE_URL (required but missing)"), "missing items are listed once")
}

func TestCompile_NoWrite(t *testing.T) {
	o := setup(t)

	r, err := Compile(context.Background(), o, true)
	require.NoError(t, err)
	require.True(t, r.OK())
	assert.False(t, r.EnvFileWritten)
	assert.NoFileExists(t, filepath.Join(o.Root, ".env.local"))
	assert.FileExists(t, o.ContextFile())
}

func TestCompile_RejectsBadEnvName(t *testing.T) {
	o := setup(t)
	o.Env = "../etc"
	_, err := Compile(context.Background(), o, false)
	assert.ErrorContains(t, err, "invalid environment name")
}

func TestResolveBackends(t *testing.T) {
	o := setup(t)
	r := newResolver(o)

	writeFile(t, filepath.Join(o.Dir, ".secrets-store", "dev", "db_password"), "hunter2\n")
	val, err := r.resolve(SecretRef{Name: "db_password", Backend: BackendMock, Ref: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "hunter2", val)

	_, err = r.resolve(SecretRef{Name: "absent", Backend: BackendMock, Ref: "mock"})
	assert.ErrorContains(t, err, "mock secret missing")

	writeFile(t, filepath.Join(o.Root, "secrets", "token.txt"), "from-file\n\n")
	val, err = r.resolve(SecretRef{Name: "t", Backend: BackendFile, Ref: "file:secrets/token.txt"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", val)
	val, err = r.resolve(SecretRef{Name: "t", Backend: BackendFile, Ref: "file://" + filepath.ToSlash(filepath.Join(o.Root, "secrets", "token.txt"))})
	require.NoError(t, err)
	assert.Equal(t, "from-file", val)

	val, err = r.resolve(SecretRef{Name: "t", Backend: BackendEnv, Ref: "env:TEST_API_TOKEN"})
	require.NoError(t, err)
	assert.Equal(t, secretValue, val)
	_, err = r.resolve(SecretRef{Name: "t", Backend: BackendEnv, Ref: "env://"})
	assert.ErrorContains(t, err, "env backend requires ref")

	_, err = r.resolve(SecretRef{Name: "t", Backend: BackendBWS, Ref: "bws://project?key=k"})
	assert.ErrorContains(t, err, "bws backend")
	_, err = r.resolve(SecretRef{Name: "t", Backend: "vault", Ref: "x"})
	assert.ErrorContains(t, err, `unsupported secret backend: "vault"`)
}

func TestLoadSecretRefs_TopLevelForm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.ref.yaml")
	writeFile(t, path, `version: 1
api_token: {backend: env, ref: "env:TOKEN"}
broken: {backend: "", ref: x}
scalar: nope
`)
	refs, problems := LoadSecretRefs(path, "dev.ref.yaml")
	assert.Equal(t, SecretRef{Name: "api_token", Backend: "env", Ref: "env:TOKEN"}, refs["api_token"])
	assert.NotContains(t, refs, "version")
	assert.Equal(t, []string{
		"Secret broken in dev.ref.yaml: backend must be a non-empty string",
		"Secret scalar in dev.ref.yaml: definition must be a mapping",
	}, problems)
}

func TestLoadValues(t *testing.T) {
	dir := t.TempDir()

	pairs, problems := LoadValues(filepath.Join(dir, "missing.yaml"), "missing.yaml")
	assert.Empty(t, pairs)
	assert.Empty(t, problems)

	writeFile(t, filepath.Join(dir, "list.yaml"), "- a\n- b\n")
	_, problems = LoadValues(filepath.Join(dir, "list.yaml"), "list.yaml")
	assert.Equal(t, []string{"Values file list.yaml must be a mapping"}, problems)

	writeFile(t, filepath.Join(dir, "keys.yaml"), "GOOD: 1\nbad-key: 2\n")
	pairs, problems = LoadValues(filepath.Join(dir, "keys.yaml"), "keys.yaml")
	require.Len(t, pairs, 1)
	assert.Equal(t, "GOOD", pairs[0].Key)
	assert.Equal(t, []string{`Invalid key in values file keys.yaml: "bad-key"`}, problems)
}

func TestEnvironments(t *testing.T) {
	o := setup(t)
	writeFile(t, filepath.Join(o.Dir, "values", "staging.yaml"), "{}\n")
	writeFile(t, filepath.Join(o.Dir, "secrets", "prod.ref.yaml"), "{}\n")
	writeFile(t, filepath.Join(o.Dir, "inventory", "qa.yaml"), "{}\n")

	envs, err := Environments(o.Dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "prod", "qa", "staging"}, envs)

	envs, err = Environments(filepath.Join(o.Root, "nope"))
	require.NoError(t, err)
	assert.Empty(t, envs)
}

func TestRenderEnvFile(t *testing.T) {
	doc := mustParse(t, `A: ~
B: "two\nlines"
C: [1, "x"]
D: True
`)
	effective := make(map[string]*yamlite.Node)
	for _, p := range doc.Entries() {
		effective[p.Key] = p.Value
	}
	out := string(RenderEnvFile(effective))
	assert.Contains(t, out, "\nA=\n")
	assert.Contains(t, out, "\nB=\"two\\nlines\"\n")
	assert.Contains(t, out, "\nC=[1,\"x\"]\n")
	assert.Contains(t, out, "\nD=true\n")
}
