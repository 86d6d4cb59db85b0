package repository

import (
	"context"
	"sync"
)

type hooksKey struct{}

// CommitHooks collects callbacks that run once the transaction they were
// registered in has committed. They are dropped on rollback.
type CommitHooks struct {
	mu  sync.Mutex
	fns []func()
}

// Add registers fn.
func (h *CommitHooks) Add(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.fns = append(h.fns, fn)
}

// Run calls the registered callbacks in order and clears them.
func (h *CommitHooks) Run() {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// ContextWithCommitHooks returns a context carrying hooks.
func ContextWithCommitHooks(ctx context.Context, hooks *CommitHooks) context.Context {
	return context.WithValue(ctx, hooksKey{}, hooks)
}

// AfterCommit registers fn to run after the transaction carried by ctx
// commits. It reports false when ctx carries no managed transaction.
func AfterCommit(ctx context.Context, fn func()) bool {
	hooks, ok := ctx.Value(hooksKey{}).(*CommitHooks)
	if !ok || hooks == nil {
		return false
	}

	hooks.Add(fn)

	return true
}
