package registry

import (
	"os"

	"github.com/pkg/errors"

	"github.com/kennyg/ctxkit/internal/artifact"
)

// Status is the outcome of checking one entry against its file
type Status string

const (
	StatusOK         Status = "ok"
	StatusUpdated    Status = "updated"
	StatusMissing    Status = "missing"
	StatusDrift      Status = "drift"
	StatusUnrecorded Status = "unrecorded"
)

// Check is the result of comparing one entry with the file on disk
type Check struct {
	ID       string
	Path     string
	Status   Status
	Recorded string // checksum in the registry
	Actual   string // checksum of the file, empty when missing
}

// Finding reports whether the check needs attention
func (c Check) Finding() bool {
	return c.Status == StatusMissing || c.Status == StatusDrift || c.Status == StatusUnrecorded
}

// Touch recomputes the checksum of every registered file. Entries whose
// checksum changed get the new value and a fresh updatedAt; missing files
// are reported and their entries left untouched.
func (r *Registry) Touch() ([]Check, error) {
	checks := make([]Check, 0, len(r.Artifacts))
	for i := range r.Artifacts {
		e := &r.Artifacts[i]
		c, err := r.check(e)
		if err != nil {
			return nil, err
		}
		if c.Status == StatusDrift || c.Status == StatusUnrecorded {
			e.ChecksumSHA256 = c.Actual
			e.UpdatedAt = timestamp()
			c.Status = StatusUpdated
		}
		checks = append(checks, c)
	}
	return checks, nil
}

// Verify compares every entry with its file without modifying anything
func (r *Registry) Verify() ([]Check, error) {
	checks := make([]Check, 0, len(r.Artifacts))
	for i := range r.Artifacts {
		c, err := r.check(&r.Artifacts[i])
		if err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, nil
}

// Findings filters checks down to the ones that need attention
func Findings(checks []Check) []Check {
	var out []Check
	for _, c := range checks {
		if c.Finding() {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) check(e *Entry) (Check, error) {
	c := Check{ID: e.ID, Path: e.Path, Recorded: e.ChecksumSHA256}

	sum, err := artifact.ChecksumFile(r.Abs(e.Path))
	if err != nil {
		if os.IsNotExist(err) {
			c.Status = StatusMissing
			return c, nil
		}
		return c, errors.Wrapf(err, "failed to checksum %s", e.Path)
	}
	c.Actual = sum

	switch {
	case e.ChecksumSHA256 == "":
		c.Status = StatusUnrecorded
	case e.ChecksumSHA256 != sum:
		c.Status = StatusDrift
	default:
		c.Status = StatusOK
	}
	return c, nil
}
