package restcache

import "context"

// PreRequestHook gates every collection network operation, e.g. to make
// sure credentials are fresh. A non-nil error aborts the operation before
// the transport is called.
type PreRequestHook interface {
	Run(ctx context.Context) error
}

// PreRequestFunc adapts a function to PreRequestHook.
type PreRequestFunc func(ctx context.Context) error

func (f PreRequestFunc) Run(ctx context.Context) error { return f(ctx) }

// Invalidator drops cached reads for a scope (a collection base URI).
// respcache.Transport implements it.
type Invalidator interface {
	InvalidateScope(ctx context.Context, scope string) error
}
