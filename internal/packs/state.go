package packs

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/kennyg/ctxkit/internal/stablejson"
)

// StateVersion is the state and manifest file format version
const StateVersion = 1

// State is the persisted pack selection
type State struct {
	Version      int      `json:"version"`
	Base         string   `json:"base"`
	EnabledPacks []string `json:"enabledPacks"`
}

// LoadState reads the selection state. A missing file yields a state with
// only the base pack.
func LoadState(path, base string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Version: StateVersion, Base: base, EnabledPacks: []string{}}, nil
		}
		return nil, errors.Wrapf(err, "failed to read pack state %s", path)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrapf(err, "failed to parse pack state %s", path)
	}
	if s.Version == 0 {
		s.Version = StateVersion
	}
	if s.Base == "" {
		s.Base = base
	}
	if s.EnabledPacks == nil {
		s.EnabledPacks = []string{}
	}
	return &s, nil
}

// SaveState writes the state when it changed
func SaveState(path string, s *State) (bool, error) {
	return stablejson.WriteIfChanged(path, s)
}

// Manifest is the derived sync-manifest.json: the union of the base pack
// and the enabled packs.
type Manifest struct {
	Version  int      `json:"version"`
	Packs    []string `json:"packs"`
	Includes []string `json:"includes"`
	Excludes []string `json:"excludes"`
}

// LoadManifest reads a sync manifest. A missing file returns nil, nil:
// without a manifest every skill is selected.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read sync manifest %s", path)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(err, "failed to parse sync manifest %s", path)
	}
	return &m, nil
}
