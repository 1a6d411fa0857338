package tool

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/smallnest/insightgraph/log"
	"github.com/smallnest/insightgraph/sandbox"
)

// Python executes model-written Python code in a sandbox.Executor.
type Python struct {
	executor sandbox.Executor

	mu        sync.Mutex
	artifacts []string
}

// NewPython creates a Python tool on top of executor.
func NewPython(executor sandbox.Executor) *Python {
	return &Python{executor: executor}
}

// Name returns the name of the tool.
func (p *Python) Name() string {
	return "python_repl"
}

// Description returns the description of the tool.
func (p *Python) Description() string {
	return "Execute python code to generate charts. Save every image to a file and print its path. " +
		"Input should be the complete python program."
}

// Call runs the code. Failures are returned as errors so the caller can hand
// them back to the model.
func (p *Python) Call(ctx context.Context, input string) (string, error) {
	code := stripFences(input)
	log.Debug("python tool code:\n%s", code)

	res, err := p.executor.Execute(ctx, code)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.artifacts = append(p.artifacts, res.Artifacts...)
	p.mu.Unlock()

	return fmt.Sprintf("Successfully executed:\nstdout: %s", res.Stdout), nil
}

// Artifacts returns every file produced by successful executions so far.
func (p *Python) Artifacts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.artifacts...)
}

func stripFences(code string) string {
	s := strings.TrimSpace(code)
	if !strings.HasPrefix(s, "```") {
		return code
	}
	s = strings.TrimPrefix(s, "```python")
	s = strings.TrimPrefix(s, "```py")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s) + "\n"
}
