package graph

import "context"

// DefaultRecursionLimit is used when neither the Config nor an enclosing run
// provides a step budget.
const DefaultRecursionLimit = 25

// Config tunes a single invocation.
type Config struct {
	// RecursionLimit caps the number of node executions of this invocation,
	// including executions of nested graphs invoked from its nodes.
	// Zero means inherit the enclosing budget, or DefaultRecursionLimit.
	RecursionLimit int

	// Metadata is free-form data made available to nodes via GetConfig.
	Metadata map[string]any
}

type configKey struct{}

type stepBudgetKey struct{}

// stepBudget is shared by a run and every graph invoked from inside its nodes.
// Runs are single-threaded, so no locking is needed.
type stepBudget struct {
	limit int
	used  int
}

func (b *stepBudget) take() bool {
	if b.used >= b.limit {
		return false
	}
	b.used++
	return true
}

// WithConfig adds a config to the context.
func WithConfig(ctx context.Context, config *Config) context.Context {
	return context.WithValue(ctx, configKey{}, config)
}

// GetConfig retrieves the config from the context, or nil.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return nil
}

func withStepBudget(ctx context.Context, b *stepBudget) context.Context {
	return context.WithValue(ctx, stepBudgetKey{}, b)
}

func stepBudgetFrom(ctx context.Context) *stepBudget {
	if b, ok := ctx.Value(stepBudgetKey{}).(*stepBudget); ok {
		return b
	}
	return nil
}

// RemainingSteps reports how many node executions the current run may still
// perform. ok is false outside of a running graph.
func RemainingSteps(ctx context.Context) (remaining int, ok bool) {
	b := stepBudgetFrom(ctx)
	if b == nil {
		return 0, false
	}
	return b.limit - b.used, true
}
