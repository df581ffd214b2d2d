package logger

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("info")
	t.Cleanup(func() { SetOutput(os.Stdout) })

	log := With("store")
	log.Infof("opened %s", "runs.db")
	log.Debugf("hidden")

	out := buf.String()
	assert.Contains(t, out, "component=store")
	assert.Contains(t, out, "opened runs.db")
	assert.NotContains(t, out, "hidden")
}
