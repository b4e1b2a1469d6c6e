package apiindex

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/aymanbagabas/go-udiff"
	"github.com/pkg/errors"

	"github.com/kennyg/ctxkit/internal/artifact"
	"github.com/kennyg/ctxkit/internal/logger"
	"github.com/kennyg/ctxkit/internal/openapi"
	"github.com/kennyg/ctxkit/internal/stablejson"
)

// volatileKey is ignored when deciding whether the index changed
const volatileKey = "generatedAt"

// now is replaced in tests
var now = time.Now

// Config describes one generation run
type Config struct {
	// Source is the OpenAPI file to read
	Source string
	// SourceLabel is the path recorded in the index (project-relative)
	SourceLabel string
	// Out is the api-index.json path
	Out string
	// OutMD is the optional Markdown path
	OutMD string
	// BaseURL overrides servers[] in curl examples
	BaseURL string
}

// Result reports what a generation run produced
type Result struct {
	Index           *Index
	JSONWritten     bool
	MarkdownWritten bool
}

// Build loads the source document and builds its index, stamped with the
// current time.
func (c Config) Build() (*Index, error) {
	if c.Source == "" {
		return nil, errors.New("no OpenAPI source given")
	}
	doc, err := openapi.Load(c.Source)
	if err != nil {
		return nil, err
	}
	idx := Build(doc, Options{Source: c.SourceLabel, BaseURL: c.BaseURL})
	idx.GeneratedAt = now().UTC().Format(time.RFC3339)
	return idx, nil
}

// Generate builds the index and writes the outputs whose content changed.
// Unchanged outputs are left byte-identical.
func Generate(ctx context.Context, c Config) (*Result, error) {
	idx, err := c.Build()
	if err != nil {
		return nil, err
	}
	res := &Result{Index: idx}

	if c.Out != "" {
		res.JSONWritten, err = stablejson.WriteIfChanged(c.Out, idx, volatileKey)
		if err != nil {
			return nil, err
		}
	}
	if c.OutMD != "" {
		res.MarkdownWritten, err = writeIfDifferent(c.OutMD, []byte(Markdown(idx)))
		if err != nil {
			return nil, err
		}
	}

	logger.G(ctx).WithFields(map[string]interface{}{
		"source":    c.Source,
		"endpoints": len(idx.Endpoints),
		"json":      res.JSONWritten,
		"markdown":  res.MarkdownWritten,
	}).Debug("generated api index")
	return res, nil
}

func writeIfDifferent(path string, data []byte) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, errors.Wrapf(err, "failed to read %s", path)
	}
	if err := artifact.WriteFile(path, data); err != nil {
		return false, err
	}
	return true, nil
}

// Diff regenerates the index in memory and returns a unified diff against
// the file at c.Out. The existing generatedAt is carried over so only real
// changes show up. An empty string means the index is current.
func Diff(c Config) (string, error) {
	idx, err := c.Build()
	if err != nil {
		return "", err
	}

	existing, err := os.ReadFile(c.Out)
	if err != nil && !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "failed to read %s", c.Out)
	}
	if len(existing) > 0 {
		var stamp struct {
			GeneratedAt string `json:"generatedAt"`
		}
		if json.Unmarshal(existing, &stamp) == nil {
			idx.GeneratedAt = stamp.GeneratedAt
		}
	}

	fresh, err := stablejson.Marshal(idx)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode index")
	}
	if len(existing) > 0 && stablejson.Equal(existing, fresh, volatileKey) {
		return "", nil
	}
	return udiff.Unified(c.Out, c.Out+" (regenerated)", string(existing), string(fresh)), nil
}
