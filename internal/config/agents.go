package config

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Agent represents a supported AI coding agent
type Agent string

const (
	AgentClaude   Agent = "claude"
	AgentCodex    Agent = "codex"
	AgentOpenCode Agent = "opencode"
	AgentGemini   Agent = "gemini"
	AgentAmp      Agent = "amp"
)

// AgentConfig says where an agent looks for project skills
type AgentConfig struct {
	Name        Agent
	DisplayName string
	ConfigDir   string // relative to the project root, e.g. ".claude"
	SkillsDir   string // relative to ConfigDir
}

// KnownAgents returns all known agent configurations
func KnownAgents() []AgentConfig {
	return []AgentConfig{
		{Name: AgentClaude, DisplayName: "Claude Code", ConfigDir: ".claude", SkillsDir: "skills"},
		{Name: AgentCodex, DisplayName: "Codex", ConfigDir: ".codex", SkillsDir: "skills"},
		{Name: AgentOpenCode, DisplayName: "OpenCode", ConfigDir: ".opencode", SkillsDir: "skills"},
		{Name: AgentGemini, DisplayName: "Gemini CLI", ConfigDir: ".gemini", SkillsDir: "skills"},
		// Amp reads the shared .agents directory
		{Name: AgentAmp, DisplayName: "Amp", ConfigDir: ".agents", SkillsDir: "skills"},
	}
}

// GetAgentConfig returns the config for a specific agent
func GetAgentConfig(agent Agent) *AgentConfig {
	for _, a := range KnownAgents() {
		if a.Name == agent {
			return &a
		}
	}
	return nil
}

// ParseAgents resolves agent names (case-insensitive), rejecting unknown
// ones and dropping duplicates.
func ParseAgents(names []string) ([]AgentConfig, error) {
	var out []AgentConfig
	seen := make(map[Agent]bool)
	for _, name := range names {
		agent := Agent(strings.ToLower(strings.TrimSpace(name)))
		if agent == "" || seen[agent] {
			continue
		}
		cfg := GetAgentConfig(agent)
		if cfg == nil {
			return nil, errors.Errorf("unknown agent %q (known: %s)", name, strings.Join(AgentNames(), ", "))
		}
		seen[agent] = true
		out = append(out, *cfg)
	}
	return out, nil
}

// AgentNames lists the known agent names
func AgentNames() []string {
	var names []string
	for _, a := range KnownAgents() {
		names = append(names, string(a.Name))
	}
	return names
}

// SkillsPath returns the agent's skills directory below root
func (a AgentConfig) SkillsPath(root string) string {
	return filepath.Join(root, a.ConfigDir, a.SkillsDir)
}
