// Package config loads ctxkit settings from .ctxkit.yaml, CTXKIT_*
// environment variables and command-line flags (through viper) and
// resolves every path against the project root.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kennyg/ctxkit/internal/artifact"
)

// EnvPrefix is the prefix of environment overrides (CTXKIT_REGISTRY, ...)
const EnvPrefix = "CTXKIT"

// Viper keys
const (
	KeyRegistry        = "registry"
	KeySkillsSSOT      = "skills.ssot"
	KeySkillsPacksDir  = "skills.packs_dir"
	KeySkillsStateFile = "skills.state_file"
	KeySkillsManifest  = "skills.manifest"
	KeySkillsAgents    = "skills.agents"
	KeySkillsBasePack  = "skills.base_pack"
	KeyAPIIndexOut     = "api_index.out"
	KeyAPIIndexOutMD   = "api_index.out_md"
	KeyAPIIndexBaseURL = "api_index.base_url"
	KeyEnvDir          = "env.dir"
	KeyEnvContextDir   = "env.context_dir"
	KeyEnvGate         = "env.ssot_gate"
	KeyEnvDefault      = "env.default"
)

// Config is the resolved configuration. Paths are absolute.
type Config struct {
	Root string
	// File is the config file that was read, empty when none
	File string

	Registry string
	Skills   SkillsConfig
	APIIndex APIIndexConfig
	Env      EnvConfig
}

// SkillsConfig locates the skill SSOT and pack files
type SkillsConfig struct {
	SSOT      string
	PacksDir  string
	StateFile string
	Manifest  string
	Agents    []AgentConfig
	BasePack  string
}

// APIIndexConfig holds api-index defaults
type APIIndexConfig struct {
	Out     string
	OutMD   string
	BaseURL string
}

// EnvConfig locates the environment contract and its outputs
type EnvConfig struct {
	// Dir holds contract.yaml, values/ and secrets/
	Dir string
	// ContextDir receives the redacted effective-<env>.json files
	ContextDir string
	// Gate is the JSON file that must declare mode repo-env-contract
	Gate string
	// Default is the environment used when --env is not given
	Default string
}

// FileConfig is the on-disk shape of .ctxkit.yaml
type FileConfig struct {
	Registry string       `yaml:"registry" mapstructure:"registry"`
	Skills   FileSkills   `yaml:"skills" mapstructure:"skills"`
	APIIndex FileAPIIndex `yaml:"api_index" mapstructure:"api_index"`
	Env      FileEnv      `yaml:"env" mapstructure:"env"`
}

// FileSkills is the skills section of .ctxkit.yaml
type FileSkills struct {
	SSOT      string   `yaml:"ssot" mapstructure:"ssot"`
	PacksDir  string   `yaml:"packs_dir" mapstructure:"packs_dir"`
	StateFile string   `yaml:"state_file" mapstructure:"state_file"`
	Manifest  string   `yaml:"manifest" mapstructure:"manifest"`
	Agents    []string `yaml:"agents" mapstructure:"agents"`
	BasePack  string   `yaml:"base_pack" mapstructure:"base_pack"`
}

// FileAPIIndex is the api_index section of .ctxkit.yaml
type FileAPIIndex struct {
	Out     string `yaml:"out" mapstructure:"out"`
	OutMD   string `yaml:"out_md" mapstructure:"out_md"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FileEnv is the env section of .ctxkit.yaml
type FileEnv struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	ContextDir string `yaml:"context_dir" mapstructure:"context_dir"`
	SSOTGate   string `yaml:"ssot_gate" mapstructure:"ssot_gate"`
	Default    string `yaml:"default" mapstructure:"default"`
}

// Defaults returns the built-in settings
func Defaults() FileConfig {
	return FileConfig{
		Registry: "docs/context/" + artifact.RegistryFilename,
		Skills: FileSkills{
			SSOT:      ".ai/skills",
			PacksDir:  ".ai/skills/_packs",
			StateFile: ".ai/skills/_packs/" + artifact.PackStateFilename,
			Manifest:  ".ai/skills/_packs/" + artifact.SyncManifestFilename,
			Agents:    []string{string(AgentClaude), string(AgentCodex)},
			BasePack:  "base",
		},
		APIIndex: FileAPIIndex{
			Out:   "docs/context/api/api-index.json",
			OutMD: "docs/context/api/API-INDEX.md",
		},
		Env: FileEnv{
			Dir:        "env",
			ContextDir: "docs/context/env",
			SSOTGate:   "docs/project/env-ssot.json",
			Default:    "dev",
		},
	}
}

// SetDefaults registers the built-in settings and environment overrides
// on v
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault(KeyRegistry, d.Registry)
	v.SetDefault(KeySkillsSSOT, d.Skills.SSOT)
	v.SetDefault(KeySkillsPacksDir, d.Skills.PacksDir)
	v.SetDefault(KeySkillsStateFile, d.Skills.StateFile)
	v.SetDefault(KeySkillsManifest, d.Skills.Manifest)
	v.SetDefault(KeySkillsAgents, d.Skills.Agents)
	v.SetDefault(KeySkillsBasePack, d.Skills.BasePack)
	v.SetDefault(KeyAPIIndexOut, d.APIIndex.Out)
	v.SetDefault(KeyAPIIndexOutMD, d.APIIndex.OutMD)
	v.SetDefault(KeyAPIIndexBaseURL, d.APIIndex.BaseURL)
	v.SetDefault(KeyEnvDir, d.Env.Dir)
	v.SetDefault(KeyEnvContextDir, d.Env.ContextDir)
	v.SetDefault(KeyEnvGate, d.Env.SSOTGate)
	v.SetDefault(KeyEnvDefault, d.Env.Default)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// FindProjectRoot walks up from start looking for .ctxkit.yaml or .git.
// It returns "" when neither is found.
func FindProjectRoot(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, artifact.ConfigFilename)); err == nil {
			return dir
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "" // reached filesystem root
		}
		dir = parent
	}
}

// Load reads configuration into v and resolves it. root may be empty, in
// which case the project root is searched from the working directory
// (falling back to the working directory itself). configFile may be empty,
// in which case <root>/.ctxkit.yaml is used when present.
func Load(v *viper.Viper, root, configFile string) (*Config, error) {
	root, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Root: root}
	if configFile == "" {
		candidate := filepath.Join(root, artifact.ConfigFilename)
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", configFile)
		}
		cfg.File = v.ConfigFileUsed()
	}

	agents, err := ParseAgents(v.GetStringSlice(KeySkillsAgents))
	if err != nil {
		return nil, errors.Wrap(err, KeySkillsAgents)
	}

	cfg.Registry = cfg.Abs(v.GetString(KeyRegistry))
	cfg.Skills = SkillsConfig{
		SSOT:      cfg.Abs(v.GetString(KeySkillsSSOT)),
		PacksDir:  cfg.Abs(v.GetString(KeySkillsPacksDir)),
		StateFile: cfg.Abs(v.GetString(KeySkillsStateFile)),
		Manifest:  cfg.Abs(v.GetString(KeySkillsManifest)),
		Agents:    agents,
		BasePack:  v.GetString(KeySkillsBasePack),
	}
	cfg.APIIndex = APIIndexConfig{
		Out:     cfg.Abs(v.GetString(KeyAPIIndexOut)),
		OutMD:   cfg.OptionalAbs(v.GetString(KeyAPIIndexOutMD)),
		BaseURL: v.GetString(KeyAPIIndexBaseURL),
	}
	cfg.Env = EnvConfig{
		Dir:        cfg.Abs(v.GetString(KeyEnvDir)),
		ContextDir: cfg.Abs(v.GetString(KeyEnvContextDir)),
		Gate:       cfg.OptionalAbs(v.GetString(KeyEnvGate)),
		Default:    v.GetString(KeyEnvDefault),
	}
	return cfg, nil
}

func resolveRoot(root string) (string, error) {
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return "", errors.Wrapf(err, "failed to resolve root %s", root)
		}
		return abs, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to get working directory")
	}
	if found := FindProjectRoot(cwd); found != "" {
		return found, nil
	}
	return cwd, nil
}

// Abs resolves a project-relative path
func (c *Config) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, filepath.FromSlash(p))
}

// OptionalAbs is Abs, except that "" and "-" mean "disabled"
func (c *Config) OptionalAbs(p string) string {
	if p == "-" {
		return ""
	}
	return c.Abs(p)
}

// Rel returns p relative to the project root with forward slashes, or p
// unchanged when it lies outside the root
func (c *Config) Rel(p string) string {
	rel, err := filepath.Rel(c.Root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(rel)
}

// MarshalDefaults renders the default .ctxkit.yaml
func MarshalDefaults() ([]byte, error) {
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode default config")
	}
	return append([]byte("# ctxkit configuration. Paths are relative to the project root.\n"), data...), nil
}
