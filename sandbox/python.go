package sandbox

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/smallnest/insightgraph/log"
)

const (
	DefaultTimeout        = 60 * time.Second
	DefaultMaxOutputBytes = 64 * 1024
)

// PythonExecutor runs code with a Python interpreter.
type PythonExecutor struct {
	// Interpreter is the python binary, python3 when empty.
	Interpreter string
	// ArtifactDir receives one working directory per execution.
	ArtifactDir    string
	Timeout        time.Duration
	MaxOutputBytes int64
}

// Option configures a PythonExecutor.
type Option func(*PythonExecutor)

// WithInterpreter sets the python binary.
func WithInterpreter(bin string) Option {
	return func(e *PythonExecutor) { e.Interpreter = bin }
}

// WithTimeout bounds a single execution.
func WithTimeout(d time.Duration) Option {
	return func(e *PythonExecutor) { e.Timeout = d }
}

// WithMaxOutputBytes caps each of stdout and stderr.
func WithMaxOutputBytes(n int64) Option {
	return func(e *PythonExecutor) { e.MaxOutputBytes = n }
}

// NewPythonExecutor creates an executor writing artifacts below artifactDir.
func NewPythonExecutor(artifactDir string, opts ...Option) (*PythonExecutor, error) {
	if artifactDir == "" {
		artifactDir = filepath.Join(os.TempDir(), "insightgraph")
	}
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}
	abs, err := filepath.Abs(artifactDir)
	if err != nil {
		return nil, err
	}

	e := &PythonExecutor{
		Interpreter:    "python3",
		ArtifactDir:    abs,
		Timeout:        DefaultTimeout,
		MaxOutputBytes: DefaultMaxOutputBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute feeds code to the interpreter on stdin. The working directory is a new
// directory below ArtifactDir, also exported as INSIGHTGRAPH_ARTIFACT_DIR, and
// matplotlib is forced onto a non-interactive backend.
func (e *PythonExecutor) Execute(ctx context.Context, code string) (Result, error) {
	workDir, err := os.MkdirTemp(e.ArtifactDir, "run-")
	if err != nil {
		return Result{}, fmt.Errorf("failed to create work dir: %w", err)
	}

	execCtx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, e.Interpreter, "-")
	cmd.Dir = workDir
	cmd.Stdin = strings.NewReader(code)
	cmd.Env = append(os.Environ(),
		"MPLBACKEND=Agg",
		"INSIGHTGRAPH_ARTIFACT_DIR="+workDir,
	)

	var stdoutBuf, stderrBuf bytes.Buffer
	stdout := &limitedWriter{w: &stdoutBuf, max: e.MaxOutputBytes}
	stderr := &limitedWriter{w: &stderrBuf, max: e.MaxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	log.Debug("sandbox: running %d bytes of python in %s", len(code), workDir)
	runErr := cmd.Run()

	result := Result{
		Stdout:    stdoutBuf.String(),
		Stderr:    stderrBuf.String(),
		Truncated: stdout.truncated || stderr.truncated,
	}
	result.Artifacts = findArtifacts(result.Stdout, workDir)

	if runErr != nil {
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return result, fmt.Errorf("%w after %s", ErrTimeout, e.Timeout)
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, &ExitError{Code: result.ExitCode, Stderr: tail(result.Stderr, 2000)}
		}
		return result, fmt.Errorf("failed to run %s: %w", e.Interpreter, runErr)
	}
	return result, nil
}

// findArtifacts returns the stdout lines naming existing regular files. Relative
// paths are resolved against workDir.
func findArtifacts(stdout, workDir string) []string {
	var paths []string
	seen := map[string]bool{}
	sc := bufio.NewScanner(strings.NewReader(stdout))
	for sc.Scan() {
		p := strings.Trim(strings.TrimSpace(sc.Text()), `"'`)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(workDir, p)
		}
		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() || seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// limitedWriter keeps the first max bytes and silently drops the rest.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil
	}
	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		p = p[:remaining]
	}
	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return n, err
}
