// Package skills discovers SKILL.md files in the single source of truth
// directory and keeps per-agent wrapper directories in sync with it.
package skills

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"

	"github.com/kennyg/ctxkit/internal/artifact"
)

// Skill is a SKILL.md found under the SSOT directory
type Skill struct {
	Name        string // flattened name, from frontmatter or the directory
	Description string
	Dir         string // SSOT-relative, slash separated ("core/git")
	File        string // path to SKILL.md
}

// Discover walks ssot for SKILL.md files. Directories whose name starts
// with "_" or "." (pack definitions, hidden dirs) are skipped. Nested
// category directories are flattened, so two skills with the same name
// anywhere in the tree are an error. Skills are returned sorted by name.
func Discover(ssot string) ([]*Skill, error) {
	if _, err := os.Stat(ssot); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read skills directory %s", ssot)
	}

	var result *multierror.Error
	byName := make(map[string]*Skill)
	var found []*Skill

	err := filepath.WalkDir(ssot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != ssot && (strings.HasPrefix(d.Name(), "_") || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != artifact.SkillFilename {
			return nil
		}

		dir := filepath.Dir(path)
		if dir == ssot {
			return nil
		}
		rel, err := filepath.Rel(ssot, dir)
		if err != nil {
			return err
		}

		skill, err := LoadSkill(path)
		if err != nil {
			result = multierror.Append(result, err)
			return nil
		}
		skill.Dir = filepath.ToSlash(rel)

		if other, ok := byName[skill.Name]; ok {
			result = multierror.Append(result, errors.Errorf(
				"skill name %q is used by both %s and %s", skill.Name, other.Dir, skill.Dir))
			return nil
		}
		byName[skill.Name] = skill
		found = append(found, skill)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", ssot)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found, nil
}

// LoadSkill reads the frontmatter of a single SKILL.md. The name defaults
// to the containing directory.
func LoadSkill(path string) (*Skill, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	pctx := parser.NewContext()
	var buf bytes.Buffer
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	data, err := meta.TryGet(pctx)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid frontmatter in %s", path)
	}

	name, _ := data["name"].(string)
	description, _ := data["description"].(string)
	if name == "" {
		name = filepath.Base(filepath.Dir(path))
	}
	if strings.ContainsAny(name, `/\ `) || name == "." || name == ".." {
		return nil, errors.Errorf("%s: skill name %q cannot be used as a directory name", path, name)
	}

	return &Skill{
		Name:        name,
		Description: strings.TrimSpace(description),
		File:        path,
	}, nil
}
