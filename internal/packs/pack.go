// Package packs manages skill pack selection: which packs are enabled on
// top of the base pack, and the sync manifest derived from that choice.
package packs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrUnknownPack is returned for pack ids with no definition file
var ErrUnknownPack = errors.New("unknown pack")

// Pack is a named set of skill globs, defined in <packsDir>/<id>.yaml
type Pack struct {
	ID          string   `yaml:"id"`
	Description string   `yaml:"description,omitempty"`
	Includes    []string `yaml:"includes"`
	Excludes    []string `yaml:"excludes,omitempty"`

	// File is where the definition was read from
	File string `yaml:"-"`
}

// LoadPack reads a single pack definition. The id defaults to the file
// name without extension.
func LoadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read pack %s", path)
	}

	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrapf(err, "failed to parse pack %s", path)
	}
	p.File = path
	if p.ID == "" {
		p.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	for _, pattern := range append(append([]string{}, p.Includes...), p.Excludes...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("pack %s: invalid glob %q", p.ID, pattern)
		}
	}
	return &p, nil
}

// LoadPacks reads every *.yaml and *.yml definition in dir, sorted by id.
// A missing directory yields no packs.
func LoadPacks(dir string) ([]*Pack, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read packs directory %s", dir)
	}

	var result *multierror.Error
	var packs []*Pack
	seen := make(map[string]string)
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := LoadPack(path)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if other, ok := seen[p.ID]; ok {
			result = multierror.Append(result, errors.Errorf("pack %q defined in both %s and %s", p.ID, other, path))
			continue
		}
		seen[p.ID] = path
		packs = append(packs, p)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	sort.Slice(packs, func(i, j int) bool { return packs[i].ID < packs[j].ID })
	return packs, nil
}
