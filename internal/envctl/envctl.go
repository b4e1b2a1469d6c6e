package envctl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/kennyg/ctxkit/internal/artifact"
	"github.com/kennyg/ctxkit/internal/logger"
	"github.com/kennyg/ctxkit/internal/stablejson"
	"github.com/kennyg/ctxkit/internal/yamlite"
)

// RequiredMode is the value the mode gate file must declare
const RequiredMode = "repo-env-contract"

// Redacted replaces secret values in the effective-context snapshot
const Redacted = "***REDACTED***"

// volatileKey is ignored when deciding whether the snapshot changed
const volatileKey = "generatedAt"

// now is replaced in tests
var now = time.Now

// Options locates the contract files for one environment
type Options struct {
	// Root is the project root; relative file: secret refs and report
	// paths are resolved against it
	Root string
	// Dir holds contract.yaml, values/ and secrets/
	Dir string
	// Gate is the mode gate JSON file, empty to skip the gate
	Gate string
	// ContextDir receives effective-<env>.json
	ContextDir string
	// Env is the environment name (dev, staging, ...)
	Env string
	// LookupEnv resolves env:// secrets, os.LookupEnv when nil
	LookupEnv func(string) (string, bool)
}

// Status is the overall outcome of a run
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// KeySummary describes one compiled key without its value
type KeySummary struct {
	Secret  bool   `json:"secret"`
	Present bool   `json:"present"`
	Type    string `json:"type"`
}

// Report is the redacted outcome of doctor or compile
type Report struct {
	GeneratedAt string   `json:"generatedAt"`
	Env         string   `json:"env"`
	Status      Status   `json:"status"`
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Actions     []string `json:"actions,omitempty"`

	// compile only
	Missing        []string              `json:"missing,omitempty"`
	EnvFile        string                `json:"envFile,omitempty"`
	ContextFile    string                `json:"contextFile,omitempty"`
	Keys           map[string]KeySummary `json:"keys,omitempty"`
	EnvFileWritten bool                  `json:"-"`
	ContextWritten bool                  `json:"-"`
}

// OK reports whether the run passed
func (r *Report) OK() bool { return r.Status == StatusPass }

func (r *Report) finish() {
	r.Status = StatusPass
	if len(r.Errors) > 0 {
		r.Status = StatusFail
	}
}

// Snapshot is the redacted effective context written on a passing compile
type Snapshot struct {
	GeneratedAt string         `json:"generatedAt"`
	Env         string         `json:"env"`
	Values      map[string]any `json:"values"`
}

// inputs are the loaded and canonicalized files of one environment
type inputs struct {
	contract  *Contract
	values    Values // env/values/<env>.yaml
	local     Values // env/values/<env>.local.yaml
	valuesRel string
	localRel  string
	refsRel   string
	refs      map[string]SecretRef
}

func (o Options) rel(path string) string {
	rel, err := filepath.Rel(o.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func (o Options) valuesPath(suffix string) string {
	return filepath.Join(o.Dir, "values", o.Env+suffix+".yaml")
}

// EnvFile returns the local env file path: .env.local for dev and
// .env.<env>.local otherwise
func (o Options) EnvFile() string {
	if o.Env == "dev" {
		return filepath.Join(o.Root, ".env.local")
	}
	return filepath.Join(o.Root, ".env."+o.Env+".local")
}

// ContextFile returns the redacted snapshot path
func (o Options) ContextFile() string {
	return filepath.Join(o.ContextDir, "effective-"+o.Env+".json")
}

func (o Options) validate() error {
	if o.Env == "" {
		return errors.New("no environment given")
	}
	if strings.ContainsAny(o.Env, `/\`) || o.Env == "." || o.Env == ".." {
		return errors.Errorf("invalid environment name %q", o.Env)
	}
	return nil
}

// load reads the gate, contract, values and (when a live secret needs
// them) secret refs, recording problems on r
func (o Options) load(r *Report) *inputs {
	if o.Gate != "" {
		if mode := readMode(o.Gate); mode != RequiredMode {
			r.Errors = append(r.Errors, fmt.Sprintf("SSOT mode gate failed: %s must set mode=%s", o.rel(o.Gate), RequiredMode))
		}
	}

	contractPath := filepath.Join(o.Dir, "contract.yaml")
	c, problems := LoadContract(contractPath, o.rel(contractPath))
	r.Errors = append(r.Errors, problems...)

	in := &inputs{
		contract:  c,
		valuesRel: o.rel(o.valuesPath("")),
		localRel:  o.rel(o.valuesPath(".local")),
	}

	raw, errs := LoadValues(o.valuesPath(""), in.valuesRel)
	rawLocal, localErrs := LoadValues(o.valuesPath(".local"), in.localRel)
	r.Errors = append(r.Errors, errs...)
	r.Errors = append(r.Errors, localErrs...)

	var warns []string
	in.values, errs, warns = Canonicalize(c, raw, o.Env, in.valuesRel)
	r.Errors = append(r.Errors, errs...)
	r.Warnings = append(r.Warnings, warns...)
	in.local, errs, warns = Canonicalize(c, rawLocal, o.Env, in.localRel)
	r.Errors = append(r.Errors, errs...)
	r.Warnings = append(r.Warnings, warns...)

	refsPath := filepath.Join(o.Dir, "secrets", o.Env+".ref.yaml")
	in.refsRel = o.rel(refsPath)
	for _, v := range c.Vars {
		if v.Secret && v.live(o.Env) {
			in.refs, errs = LoadSecretRefs(refsPath, in.refsRel)
			r.Errors = append(r.Errors, errs...)
			break
		}
	}
	return in
}

// readMode returns the mode declared by the gate file, or ""
func readMode(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var doc map[string]any
	if json.Unmarshal(data, &doc) != nil {
		return ""
	}
	for _, key := range []string{"mode", "env_ssot", "ssot_mode"} {
		if s, ok := doc[key].(string); ok {
			return s
		}
	}
	return ""
}

func newReport(env string) *Report {
	return &Report{
		GeneratedAt: now().UTC().Format(time.RFC3339),
		Env:         env,
		Errors:      []string{},
		Warnings:    []string{},
	}
}

// Doctor checks that every live variable of the environment can be
// satisfied. Secret material is resolved to prove it is reachable and then
// discarded.
func Doctor(ctx context.Context, o Options) (*Report, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	r := newReport(o.Env)
	in := o.load(r)
	res := newResolver(o)

	var missing []string
	for _, v := range in.contract.Vars {
		if !v.live(o.Env) {
			continue
		}
		if v.Secret {
			if _, reason := in.secret(v, res); reason != "" {
				missing = append(missing, fmt.Sprintf("%s (%s)", v.Name, reason))
			}
			continue
		}

		value := v.Default
		if n, ok := in.values[v.Name]; ok {
			value = n
		}
		if n, ok := in.local[v.Name]; ok {
			value = n
		}
		if v.Required && blank(value) {
			missing = append(missing, fmt.Sprintf("%s (required; provide in %s or %s or contract default)", v.Name, in.valuesRel, in.localRel))
			continue
		}
		if !value.IsNull() {
			if msg := CheckType(v, value); msg != "" {
				r.Errors = append(r.Errors, fmt.Sprintf("Type check failed for %s: %s", v.Name, msg))
			}
		}
	}
	r.Errors = append(r.Errors, missing...)

	if anyContains(missing, in.valuesRel) {
		r.Actions = append(r.Actions, fmt.Sprintf("Add missing non-secret values to %s (developer-specific) or %s (project-wide).", in.localRel, in.valuesRel))
	}
	if anyContains(missing, "secret") {
		r.Actions = append(r.Actions,
			fmt.Sprintf("Ensure %s contains the referenced secrets and provide secret material via an approved backend (never via chat).", in.refsRel),
			fmt.Sprintf("For the mock backend: create files under %s/<secret_name>.", o.rel(filepath.Join(o.Dir, ".secrets-store", o.Env))),
		)
	}

	r.finish()
	logger.G(ctx).WithField("env", o.Env).WithField("status", r.Status).WithField("errors", len(r.Errors)).Debug("env doctor finished")
	return r, nil
}

// secret resolves the material of a secret variable. reason is empty on
// success and never contains the material.
func (in *inputs) secret(v *Var, res *resolver) (value, reason string) {
	if v.SecretRef == "" {
		return "", "secret_ref missing in contract"
	}
	ref, ok := in.refs[v.SecretRef]
	if !ok {
		return "", fmt.Sprintf("missing secret ref entry: %s in %s", v.SecretRef, in.refsRel)
	}
	val, err := res.resolve(ref)
	if err != nil {
		return "", "secret material unavailable: " + err.Error()
	}
	return val, ""
}

// Compile resolves the effective settings of the environment. On a pass
// it writes the local env file (unless noWrite) with mode 0600 and the
// redacted snapshot; on a fail nothing is written.
func Compile(ctx context.Context, o Options, noWrite bool) (*Report, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	r := newReport(o.Env)
	r.EnvFile = o.rel(o.EnvFile())
	r.ContextFile = o.rel(o.ContextFile())
	in := o.load(r)
	res := newResolver(o)
	c := in.contract

	effective := make(map[string]*yamlite.Node)
	for _, v := range c.Vars {
		if v.live(o.Env) && !v.Secret && v.Default != nil {
			effective[v.Name] = v.Default
		}
	}

	// canonical values only hold live, non-secret keys
	for _, src := range []struct {
		values Values
		label  string
	}{{in.values, in.valuesRel}, {in.local, in.localRel}} {
		for _, k := range sortedKeys(src.values) {
			n := src.values[k]
			if msg := CheckType(c.Lookup(k), n); msg != "" {
				r.Errors = append(r.Errors, fmt.Sprintf("Type check failed for %s in %s: %s", k, src.label, msg))
				continue
			}
			effective[k] = n
		}
	}

	var missing []string
	for _, v := range c.Vars {
		if !v.live(o.Env) || !v.Secret {
			continue
		}
		val, reason := in.secret(v, res)
		if reason != "" {
			missing = append(missing, fmt.Sprintf("%s (%s)", v.Name, reason))
			continue
		}
		effective[v.Name] = &yamlite.Node{Kind: yamlite.ScalarNode, Style: yamlite.DoubleQuotedStyle, Value: val}
	}

	for _, v := range c.Vars {
		if !v.live(o.Env) || !v.Required {
			continue
		}
		if n, ok := effective[v.Name]; !ok || blank(n) {
			if !v.Secret || !anyPrefix(missing, v.Name+" (") {
				missing = append(missing, fmt.Sprintf("%s (required but missing)", v.Name))
			}
		}
	}
	r.Missing = missing
	r.Errors = append(r.Errors, missing...)

	// the environment selector always names the compiled environment
	if v := c.Lookup("APP_ENV"); v != nil && v.live(o.Env) {
		effective["APP_ENV"] = &yamlite.Node{Kind: yamlite.ScalarNode, Style: yamlite.DoubleQuotedStyle, Value: o.Env}
	}

	r.Keys = make(map[string]KeySummary, len(effective))
	for k := range effective {
		v := c.Lookup(k)
		r.Keys[k] = KeySummary{Secret: v.Secret, Present: true, Type: string(v.Type)}
	}

	r.finish()
	log := logger.G(ctx).WithField("env", o.Env).WithField("status", r.Status)
	if !r.OK() {
		log.WithField("errors", len(r.Errors)).Debug("env compile failed; nothing written")
		return r, nil
	}

	var err error
	if !noWrite {
		r.EnvFileWritten, err = writeIfDifferent(o.EnvFile(), RenderEnvFile(effective), 0600)
		if err != nil {
			return nil, err
		}
	}
	snap := Snapshot{GeneratedAt: r.GeneratedAt, Env: o.Env, Values: redact(c, effective)}
	r.ContextWritten, err = stablejson.WriteIfChanged(o.ContextFile(), snap, volatileKey)
	if err != nil {
		return nil, err
	}
	log.WithField("envFileWritten", r.EnvFileWritten).WithField("contextWritten", r.ContextWritten).Debug("env compile finished")
	return r, nil
}

// RenderEnvFile renders KEY=value lines sorted by key. Mappings and
// sequences are written as compact JSON; values spanning lines are quoted.
func RenderEnvFile(effective map[string]*yamlite.Node) []byte {
	var b strings.Builder
	b.WriteString("# Generated by ctxkit env compile. Do not hand-edit; rerun ctxkit env compile.\n\n")
	for _, k := range sortedKeys(effective) {
		fmt.Fprintf(&b, "%s=%s\n", k, envValue(effective[k]))
	}
	return []byte(b.String())
}

func envValue(n *yamlite.Node) string {
	if n.IsNull() {
		return ""
	}
	if n.Kind != yamlite.ScalarNode {
		data, err := json.Marshal(n.Interface())
		if err != nil {
			return ""
		}
		return string(data)
	}
	if n.Tag() == yamlite.BoolTag {
		return strconv.FormatBool(n.Bool())
	}
	if strings.ContainsAny(n.Value, "\n\r") {
		return strconv.Quote(n.Value)
	}
	return n.Value
}

func redact(c *Contract, effective map[string]*yamlite.Node) map[string]any {
	out := make(map[string]any, len(effective))
	for k, n := range effective {
		if v := c.Lookup(k); v != nil && v.Secret {
			out[k] = Redacted
			continue
		}
		out[k] = n.Interface()
	}
	return out
}

// writeIfDifferent writes data with perm unless path already holds it
func writeIfDifferent(path string, data []byte, perm os.FileMode) (bool, error) {
	if existing, err := os.ReadFile(path); err == nil && string(existing) == string(data) {
		return false, errors.Wrapf(os.Chmod(path, perm), "failed to chmod %s", path)
	}
	if err := artifact.WriteFileMode(path, data, perm); err != nil {
		return false, err
	}
	return true, nil
}

// Environments lists the environments that have values, secret refs or an
// inventory file under dir, sorted
func Environments(dir string) ([]string, error) {
	if !exists(dir) {
		return nil, nil
	}
	fsys := os.DirFS(dir)
	seen := make(map[string]bool)
	for _, pattern := range []string{"values/*.yaml", "secrets/*.ref.yaml", "inventory/*.yaml"} {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list %s", pattern)
		}
		for _, m := range matches {
			name := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(m), ".yaml"), ".ref")
			if strings.HasSuffix(name, ".local") {
				continue
			}
			seen[name] = true
		}
	}
	envs := make([]string, 0, len(seen))
	for e := range seen {
		envs = append(envs, e)
	}
	sort.Strings(envs)
	return envs, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func anyContains(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func anyPrefix(list []string, prefix string) bool {
	for _, s := range list {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
