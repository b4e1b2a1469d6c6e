package packs

import (
	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/kennyg/ctxkit/internal/stablejson"
)

// Config locates the pack files
type Config struct {
	Dir          string // pack definitions
	StateFile    string
	ManifestFile string
	Base         string // id of the always-on pack
}

// Controller is the only writer of the selection state
type Controller struct {
	cfg   Config
	packs map[string]*Pack
	order []*Pack
	state *State
}

// Open loads the pack definitions and the current state
func Open(cfg Config) (*Controller, error) {
	list, err := LoadPacks(cfg.Dir)
	if err != nil {
		return nil, err
	}
	state, err := LoadState(cfg.StateFile, cfg.Base)
	if err != nil {
		return nil, err
	}

	c := &Controller{cfg: cfg, packs: make(map[string]*Pack, len(list)), order: list, state: state}
	for _, p := range list {
		c.packs[p.ID] = p
	}
	return c, nil
}

// Packs returns every defined pack sorted by id
func (c *Controller) Packs() []*Pack {
	return c.order
}

// State returns the current selection
func (c *Controller) State() State {
	s := *c.state
	s.EnabledPacks = append([]string{}, c.state.EnabledPacks...)
	return s
}

// IsBase reports whether id is the base pack
func (c *Controller) IsBase(id string) bool {
	return id == c.state.Base
}

// Enabled reports whether id is selected (the base pack always is)
func (c *Controller) Enabled(id string) bool {
	if c.IsBase(id) {
		return true
	}
	for _, e := range c.state.EnabledPacks {
		if e == id {
			return true
		}
	}
	return false
}

// Enable selects packs. Already enabled ids are skipped; unknown ids fail
// before anything changes. It returns the ids that were newly enabled.
func (c *Controller) Enable(ids ...string) ([]string, error) {
	if err := c.checkKnown(ids); err != nil {
		return nil, err
	}
	var changed []string
	for _, id := range ids {
		if c.Enabled(id) {
			continue
		}
		c.state.EnabledPacks = append(c.state.EnabledPacks, id)
		changed = append(changed, id)
	}
	return changed, nil
}

// Disable deselects packs. The base pack cannot be disabled. It returns
// the ids that were actually disabled.
func (c *Controller) Disable(ids ...string) ([]string, error) {
	if err := c.checkKnown(ids); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if c.IsBase(id) {
			return nil, errors.Errorf("the base pack %q cannot be disabled", id)
		}
	}

	var changed []string
	kept := c.state.EnabledPacks[:0]
	for _, e := range c.state.EnabledPacks {
		if contains(ids, e) {
			changed = append(changed, e)
			continue
		}
		kept = append(kept, e)
	}
	c.state.EnabledPacks = kept
	return changed, nil
}

func (c *Controller) checkKnown(ids []string) error {
	for _, id := range ids {
		if _, ok := c.packs[id]; !ok {
			return errors.Wrap(ErrUnknownPack, id)
		}
	}
	return nil
}

// Manifest derives the sync manifest from the selection: packs in
// selection order (base first), their includes and excludes concatenated
// and de-duplicated.
func (c *Controller) Manifest() (*Manifest, error) {
	m := &Manifest{Version: StateVersion, Packs: []string{}, Includes: []string{}, Excludes: []string{}}
	ids := append([]string{c.state.Base}, c.state.EnabledPacks...)
	for _, id := range ids {
		if contains(m.Packs, id) {
			continue
		}
		p, ok := c.packs[id]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownPack, "%s (selected in %s)", id, c.cfg.StateFile)
		}
		m.Packs = append(m.Packs, id)
		for _, inc := range p.Includes {
			if !contains(m.Includes, inc) {
				m.Includes = append(m.Includes, inc)
			}
		}
		for _, exc := range p.Excludes {
			if !contains(m.Excludes, exc) {
				m.Excludes = append(m.Excludes, exc)
			}
		}
	}
	return m, nil
}

// Save writes the state and the re-derived manifest, each only when its
// content changed.
func (c *Controller) Save() (stateWritten, manifestWritten bool, err error) {
	m, err := c.Manifest()
	if err != nil {
		return false, false, err
	}
	if stateWritten, err = SaveState(c.cfg.StateFile, c.state); err != nil {
		return false, false, err
	}
	if manifestWritten, err = stablejson.WriteIfChanged(c.cfg.ManifestFile, m); err != nil {
		return stateWritten, false, err
	}
	return stateWritten, manifestWritten, nil
}

// Sync re-derives and writes the manifest without touching the state
func (c *Controller) Sync() (bool, error) {
	m, err := c.Manifest()
	if err != nil {
		return false, err
	}
	return stablejson.WriteIfChanged(c.cfg.ManifestFile, m)
}

// Selects reports whether a skill at the SSOT-relative, slash-separated
// dir is selected: it matches an include and no exclude. A nil manifest
// selects everything.
func (m *Manifest) Selects(dir string) bool {
	if m == nil {
		return true
	}
	if !matchAny(m.Includes, dir) {
		return false
	}
	return !matchAny(m.Excludes, dir)
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
