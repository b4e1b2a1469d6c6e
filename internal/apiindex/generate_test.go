package apiindex

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kennyg/ctxkit/internal/yamlite"
)

func setClock(t *testing.T, ts string) {
	t.Helper()
	fixed, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	orig := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = orig })
}

func testConfig(t *testing.T, source string) Config {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "openapi.yaml")
	require.NoError(t, os.WriteFile(src, []byte(source), 0644))
	return Config{
		Source:      src,
		SourceLabel: "openapi.yaml",
		Out:         filepath.Join(dir, "out", "api-index.json"),
		OutMD:       filepath.Join(dir, "out", "API-INDEX.md"),
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	cfg := testConfig(t, securedAPI)

	setClock(t, "2026-01-01T00:00:00Z")
	res, err := Generate(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, res.JSONWritten)
	assert.True(t, res.MarkdownWritten)
	firstJSON, err := os.ReadFile(cfg.Out)
	require.NoError(t, err)
	firstMD, err := os.ReadFile(cfg.OutMD)
	require.NoError(t, err)

	setClock(t, "2026-06-01T12:00:00Z")
	res, err = Generate(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, res.JSONWritten)
	assert.False(t, res.MarkdownWritten)
	assert.Equal(t, "2026-06-01T12:00:00Z", res.Index.GeneratedAt)

	secondJSON, err := os.ReadFile(cfg.Out)
	require.NoError(t, err)
	secondMD, err := os.ReadFile(cfg.OutMD)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
	assert.Equal(t, string(firstMD), string(secondMD))
	assert.Contains(t, string(secondJSON), `"generatedAt": "2026-01-01T00:00:00Z"`)
	assert.Contains(t, string(secondJSON), `"schema": "api-index-v1"`)
}

func TestGenerate_RewritesOnChange(t *testing.T) {
	cfg := testConfig(t, usersAPI)
	_, err := Generate(context.Background(), cfg)
	require.NoError(t, err)

	changed := usersAPI + "  /groups:\n    get:\n      responses:\n        '200':\n          description: ok\n"
	require.NoError(t, os.WriteFile(cfg.Source, []byte(changed), 0644))

	res, err := Generate(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, res.JSONWritten)
	assert.True(t, res.MarkdownWritten)
	assert.Len(t, res.Index.Endpoints, 2)
	assert.Equal(t, "/groups", res.Index.Endpoints[0].Path)
}

func TestGenerate_RejectsAnchors(t *testing.T) {
	cfg := testConfig(t, `openapi: 3.0.0
info:
  title: Anchored
paths:
  /a:
    get: &op
      responses:
        '200': {description: ok}
`)
	_, err := Generate(context.Background(), cfg)
	require.Error(t, err)

	var perr *yamlite.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, yamlite.ErrAnchor, perr.Kind)
	assert.Equal(t, 6, perr.Line)
	assert.Contains(t, err.Error(), "line 6")
	assert.NoFileExists(t, cfg.Out)
}

func TestGenerate_EmphasisIsNotAnAlias(t *testing.T) {
	cfg := testConfig(t, `openapi: 3.0.0
info:
  title: Emphasis
  description: Use *bold* and **strong** text, &amp; entities too.
paths:
  /a:
    get:
      summary: "*quoted* value"
      description: |
        *emphasis* inside a block scalar
      responses:
        '200': {description: ok}
`)
	res, err := Generate(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "*quoted* value", res.Index.Endpoints[0].Summary)
}

func TestDiff(t *testing.T) {
	cfg := testConfig(t, usersAPI)

	diff, err := Diff(cfg)
	require.NoError(t, err)
	assert.Contains(t, diff, `+  "schema": "api-index-v1",`, "a missing index diffs against nothing")

	setClock(t, "2026-01-01T00:00:00Z")
	_, err = Generate(context.Background(), cfg)
	require.NoError(t, err)

	setClock(t, "2026-02-01T00:00:00Z")
	diff, err = Diff(cfg)
	require.NoError(t, err)
	assert.Empty(t, diff, "a newer timestamp alone is not a difference")

	changed := []byte(`openapi: 3.0.3
info:
  title: Users
  version: "2.1"
paths: {}
`)
	require.NoError(t, os.WriteFile(cfg.Source, changed, 0644))
	diff, err = Diff(cfg)
	require.NoError(t, err)
	assert.Contains(t, diff, `-    "version": "2.0",`)
	assert.Contains(t, diff, `+    "version": "2.1",`)
	assert.NotContains(t, diff, `"generatedAt": "2026-02-01T00:00:00Z"`)
}

func TestConfig_BuildRequiresSource(t *testing.T) {
	_, err := Config{}.Build()
	assert.ErrorContains(t, err, "no OpenAPI source")
}

func TestWatch(t *testing.T) {
	cfg := testConfig(t, usersAPI)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var runs []int
	report := func(res *Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil {
			runs = append(runs, len(res.Index.Endpoints))
		}
	}
	count := func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), runs...)
	}

	done := make(chan error, 1)
	go func() { done <- Watch(ctx, cfg, 20*time.Millisecond, report) }()

	require.Eventually(t, func() bool { return len(count()) == 1 }, 5*time.Second, 10*time.Millisecond)

	changed := usersAPI + "  /groups:\n    get:\n      responses:\n        '200':\n          description: ok\n"
	require.NoError(t, os.WriteFile(cfg.Source, []byte(changed), 0644))

	require.Eventually(t, func() bool {
		r := count()
		return len(r) >= 2 && r[len(r)-1] == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
