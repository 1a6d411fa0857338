package graph

// StateSchema defines how a node's returned state is folded into the running state.
type StateSchema[S any] interface {
	// Init returns the initial state.
	Init() S

	// Update merges the new state into the current state.
	Update(current, new S) (S, error)
}

// StructSchema implements StateSchema for struct states.
type StructSchema[S any] struct {
	InitialValue S
	MergeFunc    func(current, new S) (S, error)
}

// NewStructSchema creates a new StructSchema. A nil merge function makes the
// node's returned state replace the current one.
func NewStructSchema[S any](initial S, merge func(current, new S) (S, error)) *StructSchema[S] {
	if merge == nil {
		merge = func(_, new S) (S, error) { return new, nil }
	}
	return &StructSchema[S]{
		InitialValue: initial,
		MergeFunc:    merge,
	}
}

// Init returns the initial value.
func (s *StructSchema[S]) Init() S {
	return s.InitialValue
}

// Update merges the states using MergeFunc.
func (s *StructSchema[S]) Update(current, new S) (S, error) {
	if s.MergeFunc == nil {
		return new, nil
	}
	return s.MergeFunc(current, new)
}
