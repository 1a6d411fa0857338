package sandbox

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
}

func TestPythonExecutor_Artifacts(t *testing.T) {
	requirePython(t)
	e, err := NewPythonExecutor(t.TempDir())
	require.NoError(t, err)

	code := `
import os
p = os.path.join(os.environ["INSIGHTGRAPH_ARTIFACT_DIR"], "chart.png")
open(p, "wb").write(b"png")
print(p)
print("rel.txt")
open("rel.txt", "w").write("x")
print("not a file")
`
	res, err := e.Execute(context.Background(), code)
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 2)
	assert.Equal(t, "chart.png", filepath.Base(res.Artifacts[0]))
	assert.True(t, filepath.IsAbs(res.Artifacts[1]))
}

func TestPythonExecutor_NonZeroExit(t *testing.T) {
	requirePython(t)
	e, err := NewPythonExecutor(t.TempDir())
	require.NoError(t, err)

	res, err := e.Execute(context.Background(), "raise ValueError('bad data')")
	require.ErrorIs(t, err, ErrNonZeroExit)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Stderr, "bad data")
	assert.NotZero(t, res.ExitCode)
}

func TestPythonExecutor_Timeout(t *testing.T) {
	requirePython(t)
	e, err := NewPythonExecutor(t.TempDir(), WithTimeout(200*time.Millisecond))
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), "import time\ntime.sleep(5)")
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPythonExecutor_MissingInterpreter(t *testing.T) {
	e, err := NewPythonExecutor(t.TempDir(), WithInterpreter("definitely-not-python-xyz"))
	require.NoError(t, err)

	_, err = e.Execute(context.Background(), "print(1)")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNonZeroExit)
}

func TestFindArtifacts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("x"), 0o644))

	got := findArtifacts("a.png\n'a.png'\n"+dir+"\nmissing.png\n", dir)
	assert.Equal(t, []string{filepath.Join(dir, "a.png")}, got)
}

func TestLimitedWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, max: 5}
	n, err := lw.Write([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
	assert.Equal(t, "hello", buf.String())
	assert.True(t, lw.truncated)

	_, _ = lw.Write([]byte("more"))
	assert.Equal(t, "hello", buf.String())
}
