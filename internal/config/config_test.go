package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "services", "api", "docs")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".ctxkit.yaml"), []byte("{}\n"), 0644))

	assert.Equal(t, root, FindProjectRoot(nested))

	gitRoot := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(gitRoot, ".git"), 0755))
	sub := filepath.Join(gitRoot, "pkg")
	require.NoError(t, os.Mkdir(sub, 0755))
	assert.Equal(t, gitRoot, FindProjectRoot(sub))
}

func TestLoad_Defaults(t *testing.T) {
	root := t.TempDir()
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v, root, "")
	require.NoError(t, err)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"registry", cfg.Registry, filepath.Join(root, "docs", "context", "registry.json")},
		{"ssot", cfg.Skills.SSOT, filepath.Join(root, ".ai", "skills")},
		{"packs dir", cfg.Skills.PacksDir, filepath.Join(root, ".ai", "skills", "_packs")},
		{"state file", cfg.Skills.StateFile, filepath.Join(root, ".ai", "skills", "_packs", "state.json")},
		{"manifest", cfg.Skills.Manifest, filepath.Join(root, ".ai", "skills", "_packs", "sync-manifest.json")},
		{"base pack", cfg.Skills.BasePack, "base"},
		{"api index", cfg.APIIndex.Out, filepath.Join(root, "docs", "context", "api", "api-index.json")},
		{"api index md", cfg.APIIndex.OutMD, filepath.Join(root, "docs", "context", "api", "API-INDEX.md")},
		{"base url", cfg.APIIndex.BaseURL, ""},
		{"env dir", cfg.Env.Dir, filepath.Join(root, "env")},
		{"env context dir", cfg.Env.ContextDir, filepath.Join(root, "docs", "context", "env")},
		{"env gate", cfg.Env.Gate, filepath.Join(root, "docs", "project", "env-ssot.json")},
		{"env default", cfg.Env.Default, "dev"},
		{"config file", cfg.File, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}

	require.Len(t, cfg.Skills.Agents, 2)
	assert.Equal(t, AgentClaude, cfg.Skills.Agents[0].Name)
	assert.Equal(t, AgentCodex, cfg.Skills.Agents[1].Name)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	root := t.TempDir()
	content := `registry: context/registry.json
skills:
  agents: [claude, amp]
api_index:
  out_md: "-"
  base_url: https://api.example.com
env:
  ssot_gate: "-"
  default: staging
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".ctxkit.yaml"), []byte(content), 0644))
	t.Setenv("CTXKIT_SKILLS_BASE_PACK", "core")

	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v, root, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, ".ctxkit.yaml"), cfg.File)
	assert.Equal(t, filepath.Join(root, "context", "registry.json"), cfg.Registry)
	assert.Equal(t, "core", cfg.Skills.BasePack, "environment overrides the default")
	assert.Empty(t, cfg.APIIndex.OutMD, "- disables the markdown output")
	assert.Equal(t, "https://api.example.com", cfg.APIIndex.BaseURL)
	assert.Empty(t, cfg.Env.Gate, "- disables the mode gate")
	assert.Equal(t, "staging", cfg.Env.Default)

	require.Len(t, cfg.Skills.Agents, 2)
	assert.Equal(t, filepath.Join(root, ".agents", "skills"), cfg.Skills.Agents[1].SkillsPath(root))
}

func TestLoad_Errors(t *testing.T) {
	root := t.TempDir()

	v := viper.New()
	SetDefaults(v)
	_, err := Load(v, root, filepath.Join(root, "missing.yaml"))
	assert.Error(t, err, "a missing explicit config file fails")

	require.NoError(t, os.WriteFile(filepath.Join(root, ".ctxkit.yaml"), []byte("skills:\n  agents: [vim]\n"), 0644))
	v = viper.New()
	SetDefaults(v)
	_, err = Load(v, root, "")
	assert.ErrorContains(t, err, `unknown agent "vim"`)
}

func TestParseAgents(t *testing.T) {
	agents, err := ParseAgents([]string{"Claude", "codex", "claude", " "})
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "Claude Code", agents[0].DisplayName)

	assert.Nil(t, GetAgentConfig("vim"))
}

func TestConfig_AbsRel(t *testing.T) {
	cfg := &Config{Root: filepath.FromSlash("/repo")}

	assert.Equal(t, filepath.Join("/repo", "docs", "a.md"), cfg.Abs("docs/a.md"))
	assert.Equal(t, "docs/a.md", cfg.Rel(filepath.Join("/repo", "docs", "a.md")))

	outside := filepath.Join("/elsewhere", "a.md")
	assert.Equal(t, outside, cfg.Rel(outside), "paths outside the root are unchanged")
}

func TestMarshalDefaults(t *testing.T) {
	data, err := MarshalDefaults()
	require.NoError(t, err)

	var parsed FileConfig
	require.NoError(t, yaml.Unmarshal(data, &parsed), "default config is valid YAML")
	assert.Equal(t, Defaults().Registry, parsed.Registry)
	assert.Equal(t, "base", parsed.Skills.BasePack)
	assert.Equal(t, "env", parsed.Env.Dir)
	assert.True(t, len(data) > 0 && data[0] == '#', "default config starts with a comment")
	assert.Contains(t, string(data), "# ctxkit configuration")
}
