// Package registry tracks context artifacts and their checksums in
// registry.json.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/kennyg/ctxkit/internal/artifact"
	"github.com/kennyg/ctxkit/internal/stablejson"
)

// Version is the registry file format version
const Version = 1

var (
	// ErrMalformed is returned when registry.json violates its schema
	ErrMalformed = errors.New("malformed registry")
	// ErrDuplicateID is returned when adding an id that is already registered
	ErrDuplicateID = errors.New("duplicate artifact id")
	// ErrNotFound is returned when an id is not registered
	ErrNotFound = errors.New("artifact not found")
)

// now is replaced in tests
var now = time.Now

// Entry is one tracked context file
type Entry struct {
	ID             string        `json:"id"`
	Type           artifact.Type `json:"type"`
	Path           string        `json:"path"`
	Mode           artifact.Mode `json:"mode"`
	ChecksumSHA256 string        `json:"checksumSha256,omitempty"`
	UpdatedAt      string        `json:"updatedAt"`
	Source         string        `json:"source,omitempty"`
}

// Registry is the on-disk artifact list. Entries keep insertion order.
type Registry struct {
	Version     int     `json:"version"`
	GeneratedAt string  `json:"generatedAt"`
	Artifacts   []Entry `json:"artifacts"`

	file string
	root string
}

// New returns an empty registry stored at file. Entry paths are resolved
// against root.
func New(file, root string) *Registry {
	return &Registry{
		Version:   Version,
		Artifacts: []Entry{},
		file:      file,
		root:      root,
	}
}

// Load reads and validates the registry at file. A missing file yields an
// empty registry.
func Load(file, root string) (*Registry, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return New(file, root), nil
		}
		return nil, errors.Wrapf(err, "failed to read registry %s", file)
	}

	reg := New(file, root)
	if err := json.Unmarshal(data, reg); err != nil {
		return nil, &MalformedError{File: file, Err: err}
	}
	if reg.Artifacts == nil {
		reg.Artifacts = []Entry{}
	}
	if err := reg.Validate(); err != nil {
		return nil, &MalformedError{File: file, Err: err}
	}
	return reg, nil
}

// MalformedError describes why a registry file failed to load. It matches
// ErrMalformed with errors.Is.
type MalformedError struct {
	File string
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed registry %s: %v", e.File, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformed
func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// File returns the path the registry is stored at
func (r *Registry) File() string {
	return r.file
}

// Root returns the directory entry paths are relative to
func (r *Registry) Root() string {
	return r.root
}

// Validate checks the registry against its schema and returns every
// violation found.
func (r *Registry) Validate() error {
	var result *multierror.Error
	if r.Version != Version {
		result = multierror.Append(result, errors.Errorf("unsupported version %d (want %d)", r.Version, Version))
	}

	seen := make(map[string]int, len(r.Artifacts))
	for i, e := range r.Artifacts {
		where := fmt.Sprintf("artifacts[%d]", i)
		if e.ID != "" {
			where = fmt.Sprintf("artifacts[%d] (%s)", i, e.ID)
		}
		for _, err := range validateEntry(e) {
			result = multierror.Append(result, errors.Wrap(err, where))
		}
		if e.ID == "" {
			continue
		}
		if j, ok := seen[e.ID]; ok {
			result = multierror.Append(result, errors.Errorf("%s: id already used by artifacts[%d]", where, j))
			continue
		}
		seen[e.ID] = i
	}

	if result == nil {
		return nil
	}
	result.ErrorFormat = listFormat
	return result
}

func validateEntry(e Entry) []error {
	var errs []error
	if e.ID == "" {
		errs = append(errs, errors.New("missing id"))
	}
	if !e.Type.IsValid() {
		errs = append(errs, errors.Errorf("unknown type %q", e.Type))
	}
	if !e.Mode.IsValid() {
		errs = append(errs, errors.Errorf("unknown mode %q", e.Mode))
	}
	if err := checkPath(e.Path); err != nil {
		errs = append(errs, err)
	}
	if e.ChecksumSHA256 != "" && !artifact.IsChecksum(e.ChecksumSHA256) {
		errs = append(errs, errors.Errorf("checksumSha256 %q is not a sha256 hex digest", e.ChecksumSHA256))
	}
	if e.UpdatedAt == "" {
		errs = append(errs, errors.New("missing updatedAt"))
	} else if _, err := time.Parse(time.RFC3339, e.UpdatedAt); err != nil {
		errs = append(errs, errors.Errorf("updatedAt %q is not an RFC 3339 timestamp", e.UpdatedAt))
	}
	return errs
}

func checkPath(p string) error {
	switch {
	case p == "":
		return errors.New("missing path")
	case strings.Contains(p, "\\"):
		return errors.Errorf("path %q must use forward slashes", p)
	case path.IsAbs(p):
		return errors.Errorf("path %q must be relative to the project root", p)
	case path.Clean(p) == ".." || strings.HasPrefix(path.Clean(p), "../"):
		return errors.Errorf("path %q escapes the project root", p)
	}
	return nil
}

func listFormat(errs []error) string {
	var b strings.Builder
	if len(errs) == 1 {
		b.WriteString("1 problem:")
	} else {
		fmt.Fprintf(&b, "%d problems:", len(errs))
	}
	for _, err := range errs {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Find returns the entry with id, or nil
func (r *Registry) Find(id string) *Entry {
	for i := range r.Artifacts {
		if r.Artifacts[i].ID == id {
			return &r.Artifacts[i]
		}
	}
	return nil
}

// Abs returns the filesystem path of an entry path
func (r *Registry) Abs(p string) string {
	return filepath.Join(r.root, filepath.FromSlash(p))
}

// Rel converts a filesystem path into a registry path relative to root
func (r *Registry) Rel(p string) (string, error) {
	if !filepath.IsAbs(p) {
		return path.Clean(filepath.ToSlash(p)), nil
	}
	rel, err := filepath.Rel(r.root, p)
	if err != nil {
		return "", errors.Wrapf(err, "%s is not below %s", p, r.root)
	}
	return filepath.ToSlash(rel), nil
}

// Add registers a new artifact. Mode defaults to contract. Contract
// artifacts must exist; the checksum is recorded whenever the file exists.
func (r *Registry) Add(e Entry) (*Entry, error) {
	if e.Mode == "" {
		e.Mode = artifact.ModeContract
	}
	if e.Path != "" {
		rel, err := r.Rel(e.Path)
		if err != nil {
			return nil, err
		}
		e.Path = rel
	}
	e.ChecksumSHA256 = ""
	e.UpdatedAt = timestamp()

	if errs := validateEntry(e); len(errs) > 0 {
		return nil, errors.Wrapf(errs[0], "invalid artifact %q", e.ID)
	}
	if r.Find(e.ID) != nil {
		return nil, errors.Wrap(ErrDuplicateID, e.ID)
	}

	sum, err := artifact.ChecksumFile(r.Abs(e.Path))
	switch {
	case err == nil:
		e.ChecksumSHA256 = sum
	case os.IsNotExist(err) && e.Mode == artifact.ModeGenerated:
	case os.IsNotExist(err):
		return nil, errors.Errorf("contract artifact %s does not exist", e.Path)
	default:
		return nil, errors.Wrapf(err, "failed to checksum %s", e.Path)
	}

	r.Artifacts = append(r.Artifacts, e)
	return &r.Artifacts[len(r.Artifacts)-1], nil
}

// Remove unregisters the artifact with id. The file itself is left alone.
func (r *Registry) Remove(id string) error {
	for i := range r.Artifacts {
		if r.Artifacts[i].ID == id {
			r.Artifacts = append(r.Artifacts[:i], r.Artifacts[i+1:]...)
			return nil
		}
	}
	return errors.Wrap(ErrNotFound, id)
}

// Save writes the registry unless its content, ignoring generatedAt, is
// already on disk. It reports whether the file was written.
func (r *Registry) Save() (bool, error) {
	r.GeneratedAt = timestamp()
	return stablejson.WriteIfChanged(r.file, r, "generatedAt")
}

func timestamp() string {
	return now().UTC().Format(time.RFC3339)
}
