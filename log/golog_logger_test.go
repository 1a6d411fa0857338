package log

import (
	"bytes"
	"testing"

	"github.com/kataras/golog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedGolog() (*golog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	g := golog.New()
	g.SetOutput(buf)
	return g, buf
}

func TestNewGologLogger(t *testing.T) {
	logger := NewGologLogger(golog.New())

	assert.NotNil(t, logger)
	assert.Equal(t, LogLevelInfo, logger.GetLevel())
}

func TestGologLogger_LevelControl(t *testing.T) {
	logger := NewGologLogger(golog.New())

	logger.SetLevel(LogLevelDebug)
	assert.Equal(t, LogLevelDebug, logger.GetLevel())

	logger.SetLevel(LogLevelError)
	assert.Equal(t, LogLevelError, logger.GetLevel())

	logger.SetLevel(LogLevelNone)
	assert.Equal(t, LogLevelNone, logger.GetLevel())
}

func TestGologLogger_FormatsArguments(t *testing.T) {
	g, buf := newBufferedGolog()
	logger := NewGologLogger(g)

	logger.Info("ingested %s into %d chunks", "a.txt", 3)

	assert.Contains(t, buf.String(), "ingested a.txt into 3 chunks")
}

func TestGologLogger_LevelFiltering(t *testing.T) {
	g, buf := newBufferedGolog()
	logger := NewGologLogger(g)
	logger.SetLevel(LogLevelError)

	logger.Debug("debug line")
	logger.Info("info line")
	logger.Warn("warn line")
	logger.Error("error line")

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.NotContains(t, out, "warn line")
	assert.Contains(t, out, "error line")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"":        LogLevelInfo,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
		"off":     LogLevelNone,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	got, err := ParseLevel("verbose")
	assert.Error(t, err)
	assert.Equal(t, LogLevelInfo, got)
}

func TestPackageLevelLogger(t *testing.T) {
	prev := GetDefaultLogger()
	defer SetDefaultLogger(prev)

	g, buf := newBufferedGolog()
	l := NewGologLogger(g)
	l.SetLevel(LogLevelDebug)
	SetDefaultLogger(l)

	Debug("routing to %s", "retriever")
	assert.Contains(t, buf.String(), "routing to retriever")

	SetDefaultLogger(nil)
	_, ok := GetDefaultLogger().(*NoOpLogger)
	assert.True(t, ok)
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LogLevelDebug.String())
	assert.Equal(t, "NONE", LogLevelNone.String())
	assert.Equal(t, "UNKNOWN(42)", LogLevel(42).String())
}
