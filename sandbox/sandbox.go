// Package sandbox runs model-written code out of process.
//
// An Executor takes code and returns the captured output together with the
// files the code produced. PythonExecutor is the only implementation; it runs
// the interpreter as a child process with a timeout, a fresh working directory
// and capped output.
package sandbox

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when the code runs longer than allowed.
	ErrTimeout = errors.New("sandbox: execution timed out")

	// ErrNonZeroExit is returned when the interpreter exits with a failure code.
	ErrNonZeroExit = errors.New("sandbox: non-zero exit")
)

// Result is the outcome of one execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Artifacts are the absolute paths of existing files the code printed on stdout.
	Artifacts []string
	Truncated bool
}

// Executor runs a piece of code.
type Executor interface {
	Execute(ctx context.Context, code string) (Result, error)
}

// ExitError carries the stderr of a failed execution.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%v (code %d): %s", ErrNonZeroExit, e.Code, e.Stderr)
}

func (e *ExitError) Unwrap() error {
	return ErrNonZeroExit
}
