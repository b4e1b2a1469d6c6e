package skills

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/kennyg/ctxkit/internal/artifact"
	"github.com/kennyg/ctxkit/internal/logger"
	"github.com/kennyg/ctxkit/internal/packs"
)

// GeneratedMarker identifies wrappers owned by skills sync. Files without
// it are hand-written and never modified.
const GeneratedMarker = "<!-- generated by ctxkit skills sync: edit the source SKILL.md instead -->"

// Target is one agent's skills directory
type Target struct {
	Agent string
	Dir   string // absolute skills directory, e.g. <root>/.claude/skills
}

// ActionKind says what sync does with one wrapper
type ActionKind string

const (
	ActionCreate    ActionKind = "create"
	ActionUpdate    ActionKind = "update"
	ActionRemove    ActionKind = "remove"
	ActionUnchanged ActionKind = "unchanged"
	ActionConflict  ActionKind = "conflict" // a hand-written wrapper is in the way
)

// Action is one planned wrapper change
type Action struct {
	Agent string
	Skill string
	Path  string
	Kind  ActionKind
}

// Options configure a sync run
type Options struct {
	// Root is the project root; wrappers point at SSOT files relative to it
	Root     string
	SSOT     string
	Targets  []Target
	Manifest *packs.Manifest
	// DryRun plans without writing
	DryRun bool
}

// Plan is the outcome of a sync run
type Plan struct {
	Actions []Action
}

// Changes returns the actions that modify files
func (p *Plan) Changes() []Action {
	var out []Action
	for _, a := range p.Actions {
		if a.Kind == ActionCreate || a.Kind == ActionUpdate || a.Kind == ActionRemove {
			out = append(out, a)
		}
	}
	return out
}

// Conflicts returns the hand-written wrappers that block a skill
func (p *Plan) Conflicts() []Action {
	var out []Action
	for _, a := range p.Actions {
		if a.Kind == ActionConflict {
			out = append(out, a)
		}
	}
	return out
}

// Select filters skills by the manifest
func Select(skills []*Skill, m *packs.Manifest) []*Skill {
	var out []*Skill
	for _, s := range skills {
		if m.Selects(s.Dir) {
			out = append(out, s)
		}
	}
	return out
}

// Sync writes a wrapper for every selected skill into every target and
// removes generated wrappers whose skill is gone or deselected.
func Sync(ctx context.Context, opts Options) (*Plan, error) {
	all, err := Discover(opts.SSOT)
	if err != nil {
		return nil, err
	}
	selected := Select(all, opts.Manifest)

	plan := &Plan{}
	for _, target := range opts.Targets {
		actions, err := syncTarget(ctx, opts, target, selected)
		if err != nil {
			return nil, err
		}
		plan.Actions = append(plan.Actions, actions...)
	}
	return plan, nil
}

func syncTarget(ctx context.Context, opts Options, target Target, selected []*Skill) ([]Action, error) {
	log := logger.G(ctx).WithField("agent", target.Agent)
	var actions []Action
	want := make(map[string]bool, len(selected))

	for _, skill := range selected {
		want[skill.Name] = true
		path := filepath.Join(target.Dir, skill.Name, artifact.SkillFilename)
		content, err := Wrapper(skill, opts.Root)
		if err != nil {
			return nil, err
		}

		action := Action{Agent: target.Agent, Skill: skill.Name, Path: path}
		existing, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			action.Kind = ActionCreate
		case err != nil:
			return nil, errors.Wrapf(err, "failed to read %s", path)
		case string(existing) == string(content):
			action.Kind = ActionUnchanged
		case !IsGenerated(existing):
			action.Kind = ActionConflict
		default:
			action.Kind = ActionUpdate
		}
		actions = append(actions, action)

		if opts.DryRun || (action.Kind != ActionCreate && action.Kind != ActionUpdate) {
			continue
		}
		if err := artifact.WriteFile(path, content); err != nil {
			return nil, err
		}
		log.WithField("skill", skill.Name).Debugf("%s wrapper", action.Kind)
	}

	stale, err := staleWrappers(target, want)
	if err != nil {
		return nil, err
	}
	for _, a := range stale {
		actions = append(actions, a)
		if opts.DryRun {
			continue
		}
		if err := os.Remove(a.Path); err != nil {
			return nil, errors.Wrapf(err, "failed to remove %s", a.Path)
		}
		// the directory is only removed when nothing else lives there
		_ = os.Remove(filepath.Dir(a.Path))
		log.WithField("skill", a.Skill).Debug("removed stale wrapper")
	}
	return actions, nil
}

// staleWrappers finds generated wrappers in target that no selected skill
// claims
func staleWrappers(target Target, want map[string]bool) ([]Action, error) {
	entries, err := os.ReadDir(target.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read %s", target.Dir)
	}

	var stale []Action
	for _, entry := range entries {
		if !entry.IsDir() || want[entry.Name()] {
			continue
		}
		path := filepath.Join(target.Dir, entry.Name(), artifact.SkillFilename)
		data, err := os.ReadFile(path)
		if err != nil || !IsGenerated(data) {
			continue
		}
		stale = append(stale, Action{Agent: target.Agent, Skill: entry.Name(), Path: path, Kind: ActionRemove})
	}
	return stale, nil
}

// IsGenerated reports whether a wrapper carries the generated marker
func IsGenerated(content []byte) bool {
	return strings.Contains(string(content), GeneratedMarker)
}

type wrapperFrontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

// Wrapper renders the agent-side SKILL.md for skill: its frontmatter, the
// generated marker and a pointer to the source file.
func Wrapper(skill *Skill, root string) ([]byte, error) {
	fm, err := yaml.Marshal(wrapperFrontmatter{Name: skill.Name, Description: skill.Description})
	if err != nil {
		return nil, errors.Wrap(err, "failed to serialize frontmatter")
	}

	source := skill.File
	if rel, err := filepath.Rel(root, skill.File); err == nil && !strings.HasPrefix(rel, "..") {
		source = filepath.ToSlash(rel)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString(GeneratedMarker)
	b.WriteString("\n\nThe full instructions for this skill live in `")
	b.WriteString(source)
	b.WriteString("`. Read that file before using the skill.\n")
	return []byte(b.String()), nil
}
