package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger_FallsBackToGlobal(t *testing.T) {
	entry := G(context.Background())
	assert.Equal(t, L.Logger, entry.Logger)
}

func TestWithLogger(t *testing.T) {
	custom := logrus.NewEntry(logrus.New()).WithField("command", "verify")
	ctx := WithLogger(context.Background(), custom)

	got := G(ctx)
	assert.Equal(t, custom.Logger, got.Logger)
	assert.Equal(t, "verify", got.Data["command"])
}

func TestConfigure(t *testing.T) {
	origLevel := L.Logger.GetLevel()
	origFormatter := L.Logger.Formatter
	t.Cleanup(func() {
		L.Logger.SetLevel(origLevel)
		L.Logger.Formatter = origFormatter
		SetLogOutput(os.Stderr)
	})

	var buf bytes.Buffer
	SetLogOutput(&buf)

	require.NoError(t, Configure("debug", "json"))
	assert.Equal(t, logrus.DebugLevel, L.Logger.GetLevel())

	G(context.Background()).WithField("id", "petstore").Debug("touched")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "touched", line["message"])
	assert.Equal(t, "debug", line["logLevel"])
	assert.Equal(t, "petstore", line["id"])

	assert.ErrorContains(t, Configure("loud", "text"), "invalid log level")
}

func TestConfigure_RejectsUnknownFormat(t *testing.T) {
	origLevel := L.Logger.GetLevel()
	origFormatter := L.Logger.Formatter
	t.Cleanup(func() {
		L.Logger.SetLevel(origLevel)
		L.Logger.Formatter = origFormatter
	})

	err := Configure("debug", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid log format "yaml"`)
	assert.NotContains(t, err.Error(), "level")

	assert.Equal(t, origLevel, L.Logger.GetLevel(), "a rejected format leaves the level alone")
	assert.Same(t, origFormatter, L.Logger.Formatter)
}
