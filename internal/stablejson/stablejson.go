// Package stablejson writes JSON files deterministically and skips writes
// whose content has not changed apart from volatile fields.
package stablejson

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/kennyg/ctxkit/internal/artifact"
)

// Marshal encodes v as two-space indented JSON with a trailing newline.
// Struct fields keep declaration order and map keys are sorted.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Canonical re-encodes a JSON document compactly with every object's keys
// sorted. Top-level keys named in ignore are dropped first.
func Canonical(data []byte, ignore ...string) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if obj, ok := v.(map[string]any); ok {
		for _, key := range ignore {
			delete(obj, key)
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Equal reports whether two JSON documents are the same once the ignored
// top-level keys are removed. Invalid JSON is never equal to anything.
func Equal(a, b []byte, ignore ...string) bool {
	ca, err := Canonical(a, ignore...)
	if err != nil {
		return false
	}
	cb, err := Canonical(b, ignore...)
	if err != nil {
		return false
	}
	return bytes.Equal(ca, cb)
}

// WriteIfChanged marshals v and writes it to path unless the file already
// holds equal content (ignoring the given top-level keys). It reports
// whether the file was written.
func WriteIfChanged(path string, v any, ignore ...string) (bool, error) {
	data, err := Marshal(v)
	if err != nil {
		return false, errors.Wrapf(err, "failed to encode %s", path)
	}

	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if Equal(existing, data, ignore...) {
			return false, nil
		}
	case !os.IsNotExist(err):
		return false, errors.Wrapf(err, "failed to read %s", path)
	}

	if err := artifact.WriteFile(path, data); err != nil {
		return false, err
	}
	return true, nil
}
